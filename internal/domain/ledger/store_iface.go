package ledger

import (
	"context"

	"paystream/internal/platform/address"
)

type StoreAPI interface {
	// Load returns the persisted state and payee balances. ok is false when
	// the ledger has never been committed.
	Load(ctx context.Context) (state State, balances map[address.Address]uint64, ok bool, err error)
	// Commit persists one command's changes atomically.
	Commit(ctx context.Context, changes Changes) error
	CountEvents(ctx context.Context, filter EventFilter) (int, error)
	ListEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]EventRecord, error)
	ListPayouts(ctx context.Context, streamID uint64) ([]Payout, error)
}

type EventFilter struct {
	Kind     EventKind
	StreamID *uint64
	Account  address.Address
}

// EventRecord is a persisted Event with its sequence number.
type EventRecord struct {
	Seq int64 `json:"seq"`
	Event
}
