package ledger

import (
	"context"
	"sync"

	"paystream/internal/platform/address"
)

// Transferer moves value out of the ledger. All payouts of one call succeed
// or fail together. It runs after the ledger state is final, so it may call
// back into the ledger and will observe the settled state.
type Transferer interface {
	Transfer(ctx context.Context, payouts []Payout) error
}

type TransferFunc func(ctx context.Context, payouts []Payout) error

func (f TransferFunc) Transfer(ctx context.Context, payouts []Payout) error {
	return f(ctx, payouts)
}

// Book is an in-process account book crediting every payout recipient.
type Book struct {
	mu       sync.RWMutex
	balances map[address.Address]uint64
}

func NewBook(initial map[address.Address]uint64) *Book {
	b := &Book{balances: make(map[address.Address]uint64, len(initial))}
	for addr, amount := range initial {
		b.balances[addr] = amount
	}
	return b
}

func (b *Book) Transfer(_ context.Context, payouts []Payout) error {
	b.Credit(payouts)
	return nil
}

func (b *Book) Credit(payouts []Payout) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range payouts {
		b.balances[p.Recipient] = addSat(b.balances[p.Recipient], p.Amount)
	}
}

func (b *Book) BalanceOf(addr address.Address) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[addr]
}
