// Package services contains server-side business logic.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/arkhipovds/studiodesk/internal/common"
	"github.com/arkhipovds/studiodesk/internal/server/models"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/repomanager"
	"github.com/arkhipovds/studiodesk/internal/timex"
)

var mobilePattern = regexp.MustCompile(`^\d{10}$`)

// CustomerService allocates daily, date-prefixed customer identifiers
// (YYMMDD*1000 + sequence) and keeps a per-instance reservation so an open
// UI session sees a stable "next number" until that number is consumed.
//
// The in-memory counter is advisory: it is raised to the store's persisted
// maximum on every call, so restarts and concurrent processes cannot hand
// out an already-used number.
type CustomerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock

	mu           sync.Mutex
	lastPrefix   int64
	currentSeq   int64
	reservations map[string]int64
}

// NewCustomerService constructs a CustomerService with an empty counter.
func NewCustomerService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock) *CustomerService {
	return &CustomerService{
		db:           db,
		repomanager:  m,
		clock:        clock,
		reservations: make(map[string]int64),
	}
}

// todayPrefix returns the current date as a YYMMDD number.
func (s *CustomerService) todayPrefix() int64 {
	t := s.clock.Now()
	return int64((t.Year()%100)*10000 + int(t.Month())*100 + t.Day())
}

// NextSequence returns the next customer sequence number for today.
//
// An instanceID makes the result sticky: repeated calls return the same
// number until a customer with that full ID is actually persisted. An empty
// instanceID requests no stickiness. The lock is held across the store
// queries so two concurrent callers can never be issued the same number.
func (s *CustomerService) NextSequence(ctx context.Context, instanceID string) (int64, error) {
	_, seq, err := s.nextSequence(ctx, instanceID)
	return seq, err
}

// nextSequence also reports the day prefix the number was allocated under,
// so a caller composing a full ID cannot pair the sequence with a prefix
// from a later day.
func (s *CustomerService) nextSequence(ctx context.Context, instanceID string) (int64, int64, error) {
	prefix := s.todayPrefix()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Day changed: discard yesterday's counter and reservations.
	if prefix != s.lastPrefix {
		s.currentSeq = 0
		s.reservations = make(map[string]int64)
		s.lastPrefix = prefix
	}

	lo := prefix * 1000
	hi := lo + 999

	repo := s.repomanager.Customers(s.db)

	// Reconcile with the persisted maximum; the store is the source of truth.
	dbMax, err := repo.MaxIDInRange(ctx, lo, hi)
	if err != nil {
		return 0, 0, fmt.Errorf("error selecting max customer id: %w", err)
	}
	if dbSeq := dbMax % 1000; dbSeq > s.currentSeq {
		s.currentSeq = dbSeq
	}

	if instanceID != "" {
		if reserved, ok := s.reservations[instanceID]; ok {
			exists, err := repo.ExistsByID(ctx, lo+reserved)
			if err != nil {
				return 0, 0, fmt.Errorf("error checking reserved customer id: %w", err)
			}
			// Unconsumed reservation: keep showing the same number.
			if !exists {
				return prefix, reserved, nil
			}
		}
	}

	s.currentSeq++
	if instanceID != "" {
		s.reservations[instanceID] = s.currentSeq
	}
	return prefix, s.currentSeq, nil
}

// GenerateID allocates a full customer identifier for server-side creation
// (no instance stickiness involved).
func (s *CustomerService) GenerateID(ctx context.Context) (int64, error) {
	prefix, seq, err := s.nextSequence(ctx, "")
	if err != nil {
		return 0, err
	}
	return prefix*1000 + seq, nil
}

// EnsureCustomer resolves the customer a transaction refers to: an existing
// ID is looked up, a known mobile number reuses the matching record, and
// anything else is persisted as a new customer with a generated ID.
func (s *CustomerService) EnsureCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if customer == nil {
		return nil, nil
	}

	repo := s.repomanager.Customers(s.db)

	if customer.ID != 0 {
		existing, err := repo.GetByID(ctx, customer.ID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		// ID provided but unknown: fall through and create with a fresh ID.
	} else if customer.Mobile != "" {
		existing, err := repo.FindByMobile(ctx, customer.Mobile)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}

	id, err := s.GenerateID(ctx)
	if err != nil {
		return nil, err
	}
	customer.ID = id
	if err := repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Search finds a single customer: a 10-digit query searches mobile numbers
// only, any other numeric query is treated as a customer ID.
func (s *CustomerService) Search(ctx context.Context, query string) (*models.Customer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.ErrorNotFound
	}

	repo := s.repomanager.Customers(s.db)

	if mobilePattern.MatchString(query) {
		return repo.FindByMobile(ctx, query)
	}

	id, err := strconv.ParseInt(query, 10, 64)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	return repo.GetByID(ctx, id)
}

// Suggestions returns customers whose mobile contains the fragment.
// Fragments shorter than 3 characters yield no suggestions.
func (s *CustomerService) Suggestions(ctx context.Context, query string) ([]*models.Customer, error) {
	query = strings.TrimSpace(query)
	if len(query) < 3 {
		return nil, nil
	}
	return s.repomanager.Customers(s.db).SearchByMobile(ctx, query)
}
