package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/dbx"
	"github.com/arkhipovds/studiodesk/internal/logging"
	"github.com/arkhipovds/studiodesk/internal/server/models"
	customersrepo "github.com/arkhipovds/studiodesk/internal/server/repositories/customers"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/deletequeue"
	settingsrepo "github.com/arkhipovds/studiodesk/internal/server/repositories/settings"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/transactions"
	uploadsrepo "github.com/arkhipovds/studiodesk/internal/server/repositories/uploads"
)

// --- helpers ---

// newTestDB opens an in-memory database so dbx.WithTx has something real to
// begin and commit against. The fakes ignore the handle they are given.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:services_tests?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	db.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...any) {}
func (noopLogger) Info(context.Context, string, ...any)  {}
func (noopLogger) Warn(context.Context, string, ...any)  {}
func (noopLogger) Error(context.Context, string, ...any) {}
func (l noopLogger) With(...any) logging.Logger          { return l }

// --- fake repositories (in-memory, concurrency-safe) ---

type fakeUploadsRepo struct {
	mu    sync.Mutex
	items map[string]*models.Upload

	// forcedConflicts makes the next N Create calls fail as duplicates.
	forcedConflicts int
	createErr       error
	saveErr         error
}

func newFakeUploadsRepo() *fakeUploadsRepo {
	return &fakeUploadsRepo{items: map[string]*models.Upload{}}
}

func (f *fakeUploadsRepo) Create(ctx context.Context, u *models.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.forcedConflicts > 0 {
		f.forcedConflicts--
		return common.ErrAlreadyExists
	}
	if _, ok := f.items[u.UploadID]; ok {
		return common.ErrAlreadyExists
	}
	cp := *u
	f.items[u.UploadID] = &cp
	return nil
}

func (f *fakeUploadsRepo) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUploadsRepo) Save(ctx context.Context, u *models.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.items[u.UploadID]; !ok {
		return common.ErrorNotFound
	}
	cp := *u
	f.items[u.UploadID] = &cp
	return nil
}

func (f *fakeUploadsRepo) MaxUploadIDByPrefix(ctx context.Context, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := ""
	for id := range f.items {
		if strings.HasPrefix(id, prefix) && id > max {
			max = id
		}
	}
	return max, nil
}

func (f *fakeUploadsRepo) ListActiveBySourceBefore(ctx context.Context, source models.SourceType, cutoff time.Time) ([]*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Upload
	for _, u := range f.items {
		if u.UploadedFrom == source && !u.MarkDeleted && u.CreatedAt.Before(cutoff) {
			cp := *u
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadID < result[j].UploadID })
	return result, nil
}

func (f *fakeUploadsRepo) ListAll(ctx context.Context) ([]*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Upload
	for _, u := range f.items {
		cp := *u
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadID < result[j].UploadID })
	return result, nil
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: map[string]time.Time{}}
}

func (f *fakeQueueRepo) Create(ctx context.Context, uploadID string, softDeleteTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[uploadID]; ok {
		return common.ErrAlreadyExists
	}
	f.entries[uploadID] = softDeleteTime
	return nil
}

func (f *fakeQueueRepo) ExistsByUploadID(ctx context.Context, uploadID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[uploadID]
	return ok, nil
}

func (f *fakeQueueRepo) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*models.DeleteQueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.DeleteQueueEntry
	for id, ts := range f.entries {
		if ts.Before(cutoff) {
			result = append(result, &models.DeleteQueueEntry{UploadID: id, SoftDeleteTime: ts})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadID < result[j].UploadID })
	return result, nil
}

func (f *fakeQueueRepo) DeleteByUploadID(ctx context.Context, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, uploadID)
	return nil
}

type fakeCustomersRepo struct {
	mu    sync.Mutex
	items map[int64]*models.Customer
}

func newFakeCustomersRepo() *fakeCustomersRepo {
	return &fakeCustomersRepo{items: map[int64]*models.Customer{}}
}

func (f *fakeCustomersRepo) Create(ctx context.Context, c *models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[c.ID]; ok {
		return common.ErrAlreadyExists
	}
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

func (f *fakeCustomersRepo) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomersRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	return ok, nil
}

func (f *fakeCustomersRepo) MaxIDInRange(ctx context.Context, lo, hi int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max int64
	for id := range f.items {
		if id >= lo && id <= hi && id > max {
			max = id
		}
	}
	return max, nil
}

func (f *fakeCustomersRepo) FindByMobile(ctx context.Context, mobile string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.Mobile == mobile {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCustomersRepo) SearchByMobile(ctx context.Context, fragment string) ([]*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Customer
	for _, c := range f.items {
		if strings.Contains(c.Mobile, fragment) {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeCustomersRepo) Save(ctx context.Context, c *models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[c.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

type fakeSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
	audits []*models.AuditLog
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{values: map[string]string{}}
}

func (f *fakeSettingsRepo) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", common.ErrorNotFound
	}
	return v, nil
}

func (f *fakeSettingsRepo) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeSettingsRepo) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, entry)
	return nil
}

type fakeBillPaymentsRepo struct {
	mu     sync.Mutex
	items  map[int64]*models.BillPayment
	nextID int64
}

func newFakeBillPaymentsRepo() *fakeBillPaymentsRepo {
	return &fakeBillPaymentsRepo{items: map[int64]*models.BillPayment{}}
}

func (f *fakeBillPaymentsRepo) Create(ctx context.Context, t *models.BillPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

func (f *fakeBillPaymentsRepo) GetByID(ctx context.Context, id int64) (*models.BillPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeBillPaymentsRepo) Save(ctx context.Context, t *models.BillPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[t.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

type fakePhotoOrdersRepo struct {
	mu     sync.Mutex
	items  map[int64]*models.PhotoOrder
	nextID int64
}

func newFakePhotoOrdersRepo() *fakePhotoOrdersRepo {
	return &fakePhotoOrdersRepo{items: map[int64]*models.PhotoOrder{}}
}

func (f *fakePhotoOrdersRepo) Create(ctx context.Context, t *models.PhotoOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

func (f *fakePhotoOrdersRepo) GetByID(ctx context.Context, id int64) (*models.PhotoOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakePhotoOrdersRepo) Save(ctx context.Context, t *models.PhotoOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[t.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

// --- fake repository manager ---

type fakeRepoManager struct {
	uploads      *fakeUploadsRepo
	queue        *fakeQueueRepo
	customers    *fakeCustomersRepo
	settings     *fakeSettingsRepo
	billPayments *fakeBillPaymentsRepo
	photoOrders  *fakePhotoOrdersRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		uploads:      newFakeUploadsRepo(),
		queue:        newFakeQueueRepo(),
		customers:    newFakeCustomersRepo(),
		settings:     newFakeSettingsRepo(),
		billPayments: newFakeBillPaymentsRepo(),
		photoOrders:  newFakePhotoOrdersRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Uploads(dbx.DBTX) uploadsrepo.Repository            { return m.uploads }
func (m *fakeRepoManager) DeleteQueue(dbx.DBTX) deletequeue.Repository        { return m.queue }
func (m *fakeRepoManager) Customers(dbx.DBTX) customersrepo.Repository        { return m.customers }
func (m *fakeRepoManager) Settings(dbx.DBTX) settingsrepo.Repository          { return m.settings }
func (m *fakeRepoManager) BillPayments(dbx.DBTX) transactions.BillPaymentRepository {
	return m.billPayments
}
func (m *fakeRepoManager) MoneyTransfers(dbx.DBTX) transactions.MoneyTransferRepository {
	return nil
}
func (m *fakeRepoManager) ServiceOrders(dbx.DBTX) transactions.ServiceOrderRepository {
	return nil
}
func (m *fakeRepoManager) PhotoOrders(dbx.DBTX) transactions.PhotoOrderRepository {
	return m.photoOrders
}

// --- fake blob store ---

type fakeBlobStore struct {
	mu    sync.Mutex
	files map[string][]byte

	writeErr  error
	deleteErr error
	existsErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{files: map[string][]byte{}}
}

func (f *fakeBlobStore) Write(ctx context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.files[path] = data
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.files, path)
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.files[path]
	return ok, nil
}
