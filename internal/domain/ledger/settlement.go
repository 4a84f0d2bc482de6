package ledger

import (
	"context"

	"paystream/internal/platform/address"
)

// settle pays out everything the stream has accrued. State is final before
// the transfer runs; on transfer failure both the stream and the treasury
// are put back. A zero accrual settles nothing and is not an error here.
func (l *Ledger) settle(ctx context.Context, s *Stream, kind EventKind, apply func(*Stream, *Treasury)) (Settlement, error) {
	now := l.now()
	acc := ComputeAccrued(*s, now)
	gross := acc.Total()
	if gross > l.treasury.Balance {
		return Settlement{}, ErrInsufficientContractBalance
	}
	tax, net := l.tax.Split(gross)

	prevStream, prevTreasury := *s, l.treasury
	l.touch(s)

	if acc.EffectiveTime > s.LastClaimTime {
		s.LastClaimTime = acc.EffectiveTime
	}
	s.BonusWithdrawn = s.TotalBonusAdded
	l.treasury.Balance -= gross
	if !s.IsEndless {
		l.treasury.release(acc.Base)
	}
	l.treasury.release(acc.Bonus)

	out := Settlement{StreamID: s.ID, Employee: s.Employee, Gross: gross, Net: net, Tax: tax}
	if apply != nil {
		before := basePaid(*s)
		apply(s, &l.treasury)
		if !s.IsEndless {
			out.Remainder = subSat(s.TotalDeposited, before)
		}
	}

	id := s.ID
	payouts := []Payout{
		{StreamID: ptr(id), Recipient: s.Employee, Amount: net, Kind: PayoutNet, At: now},
		{StreamID: ptr(id), Recipient: l.tax.Vault, Amount: tax, Kind: PayoutTax, At: now},
	}
	if err := l.transfer(ctx, payouts); err != nil {
		// The transferer may have re-entered and moved s within the arena.
		if cur, gerr := l.registry.get(id); gerr == nil {
			*cur = prevStream
		}
		l.treasury = prevTreasury
		return Settlement{}, err
	}

	e := Event{Kind: kind, At: now, StreamID: ptr(id), Account: out.Employee, Net: net, Tax: tax}
	if kind == EventStreamCancelled {
		e.Amount = out.Remainder
	}
	l.emit(e)
	return out, nil
}

// Withdraw pays the caller everything their stream has accrued, split
// between the caller and the tax vault.
func (l *Ledger) Withdraw(ctx context.Context, caller address.Address, id uint64) (Settlement, error) {
	s, err := l.registry.get(id)
	if err != nil {
		return Settlement{}, err
	}
	if caller.IsZero() || caller != s.Employee {
		return Settlement{}, ErrNotEmployee
	}
	if !s.Active {
		return Settlement{}, ErrStreamInactive
	}
	if ComputeAccrued(*s, l.now()).Total() == 0 {
		return Settlement{}, ErrInsufficientAccrued
	}
	return l.settle(ctx, s, EventWithdrawn, nil)
}

// CancelStream settles whatever is owed, returns the unspent part of a finite
// stream to the free balance, and makes the stream terminal.
func (l *Ledger) CancelStream(ctx context.Context, caller address.Address, id uint64) (Settlement, error) {
	if err := l.requireManager(caller); err != nil {
		return Settlement{}, err
	}
	s, err := l.registry.get(id)
	if err != nil {
		return Settlement{}, err
	}
	if s.Cancelled() {
		return Settlement{}, ErrStreamInactive
	}
	return l.settle(ctx, s, EventStreamCancelled, func(s *Stream, t *Treasury) {
		if !s.IsEndless {
			t.release(subSat(s.TotalDeposited, basePaid(*s)))
		}
		s.Active = false
		s.PausedAt = 0
	})
}
