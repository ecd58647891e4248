// Package history implements the status-history engine shared by every
// transaction type (photo orders, bill payments, money transfers, service
// orders). A history is a JSON-encoded ordered list of {status, timestamp}
// entries stored as a field on the owning record.
//
// Two contracts exist:
//
//   - ModeUpsertRollback: moving to a status first prunes every entry whose
//     status ranks strictly higher than the new one (a rollback discards
//     now-invalid "future" entries), then replaces any entry for the same
//     status, then appends. At most one entry per status survives.
//   - ModeStrictAppend: the new entry is appended unconditionally.
//
// Malformed stored JSON is treated as an empty history: the old value is
// discarded rather than failing the request.
package history

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode selects which contract Apply follows. Call sites choose explicitly;
// the engine never infers intent.
type Mode int

const (
	// ModeUpsertRollback prunes higher-ranked entries and upserts the new status.
	ModeUpsertRollback Mode = iota
	// ModeStrictAppend appends to the end, keeping duplicates.
	ModeStrictAppend
)

// TimeLayout is the timestamp format stored inside history entries.
const TimeLayout = "2006-01-02T15:04:05"

// unknownRank is assigned to statuses missing from the rank table. It is
// higher than every known rank, so an unknown status never prunes anything
// and any later known status prunes it.
const unknownRank = 99

// statusRank orders statuses along the natural lifecycle. Done and Failed
// share a rank: they are mutually exclusive alternates, not ordered relative
// to each other. The pruning comparator is strictly ">", so a transition
// between same-ranked statuses leaves the old entry in place.
var statusRank = map[string]int{
	"Pending":   0,
	"Done":      1,
	"Failed":    1,
	"Discard":   2,
	"Discarded": 2,
}

// Rank returns the lifecycle rank of a status. Unknown statuses rank 99.
func Rank(status string) int {
	if r, ok := statusRank[status]; ok {
		return r
	}
	return unknownRank
}

// Entry is one recorded status change. Older records carry the status under
// the legacy "to" key; both forms are honored when pruning and upserting.
type Entry struct {
	Status    string `json:"status,omitempty"`
	LegacyTo  string `json:"to,omitempty"`
	Timestamp string `json:"timestamp"`
}

// EffectiveStatus returns the entry's status, falling back to the legacy key.
func (e Entry) EffectiveStatus() string {
	if e.Status != "" {
		return e.Status
	}
	return e.LegacyTo
}

// Parse decodes a stored history. Empty or malformed input yields an empty
// list, never an error.
func Parse(historyJSON string) []Entry {
	if historyJSON == "" {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(historyJSON), &entries); err != nil {
		return nil
	}
	return entries
}

// Init builds a fresh single-entry history for a newly created transaction.
func Init(status string, now time.Time) (string, error) {
	return marshal([]Entry{{Status: status, Timestamp: now.Format(TimeLayout)}})
}

// Apply transforms a serialized history for a transition to newStatus at the
// given instant and returns the new serialized history.
//
// The resulting positional order is insertion order after pruning, not rank
// order; consumers render the list as produced.
func Apply(historyJSON string, newStatus string, mode Mode, now time.Time) (string, error) {
	entries := Parse(historyJSON)

	if mode == ModeUpsertRollback {
		newRank := Rank(newStatus)

		// Rollback: drop entries that are "future" relative to the new status.
		kept := entries[:0]
		for _, e := range entries {
			if Rank(e.EffectiveStatus()) > newRank {
				continue
			}
			// Upsert: an existing entry for the same status is replaced below.
			if e.EffectiveStatus() == newStatus {
				continue
			}
			kept = append(kept, e)
		}
		entries = kept
	}

	entries = append(entries, Entry{Status: newStatus, Timestamp: now.Format(TimeLayout)})

	return marshal(entries)
}

func marshal(entries []Entry) (string, error) {
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}
	return string(b), nil
}
