package models

import "time"

// Customer is identified by a daily, date-prefixed numeric ID
// (YYMMDD*1000 + sequence), assigned by the sequence allocator.
type Customer struct {
	ID     int64
	Name   string
	Mobile string

	// EditHistoryJSON is an append-only JSON list of edit events.
	EditHistoryJSON string

	CreatedAt time.Time
	UpdatedAt time.Time
}
