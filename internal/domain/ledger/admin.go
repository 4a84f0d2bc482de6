package ledger

import (
	"context"

	"paystream/internal/platform/address"
)

func (l *Ledger) Deposit(caller address.Address, amount uint64) error {
	if l.policy == DepositHROnly {
		if err := l.requireHR(caller); err != nil {
			return err
		}
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := l.treasury.credit(amount); err != nil {
		return err
	}
	l.emit(Event{Kind: EventDeposited, At: l.now(), Actor: caller, Account: caller, Amount: amount})
	return nil
}

// AddYield injects external profit into the free balance.
func (l *Ledger) AddYield(caller address.Address, amount uint64) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := l.treasury.credit(amount); err != nil {
		return err
	}
	l.emit(Event{Kind: EventYieldDeposited, At: l.now(), Actor: caller, Amount: amount})
	return nil
}

// WithdrawTreasury sends unreserved funds to the owner.
func (l *Ledger) WithdrawTreasury(ctx context.Context, caller address.Address, amount uint64) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if amount > l.treasury.Available() {
		return ErrInsufficientContractBalance
	}

	before := l.treasury
	if err := l.treasury.debit(amount); err != nil {
		return err
	}
	now := l.now()
	if err := l.transfer(ctx, []Payout{{Recipient: caller, Amount: amount, Kind: PayoutTreasury, At: now}}); err != nil {
		l.treasury = before
		return err
	}
	l.emit(Event{Kind: EventWithdrawnTreasury, At: now, Actor: caller, Account: caller, Amount: amount})
	return nil
}

func (l *Ledger) SetTaxConfig(caller, vault address.Address, bps uint16) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	cfg := TaxConfig{Vault: vault, BasisPoints: bps}
	if err := validateTax(cfg); err != nil {
		return err
	}
	l.tax = cfg
	l.emit(Event{Kind: EventTaxConfigUpdated, At: l.now(), Actor: caller, Account: vault, Bps: bps})
	return nil
}

// SetSimulatedYieldRate sets the basis points of the treasury balance the
// yield job adds per run. Zero disables it.
func (l *Ledger) SetSimulatedYieldRate(caller address.Address, bps uint16) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if bps > MaxBasisPoints {
		return ErrInvalidYieldRate
	}
	l.yieldBps = bps
	l.emit(Event{Kind: EventYieldRateUpdated, At: l.now(), Actor: caller, Bps: bps})
	return nil
}

// SimulatedYield is the amount the next yield run would add.
func (l *Ledger) SimulatedYield() uint64 {
	return mulDiv(l.treasury.Balance, uint64(l.yieldBps), MaxBasisPoints)
}

func (l *Ledger) AddHR(caller, account address.Address) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if account.IsZero() {
		return ErrZeroAddress
	}
	l.access.hr[account] = struct{}{}
	l.emit(Event{Kind: EventHRAdded, At: l.now(), Actor: caller, Account: account})
	return nil
}

func (l *Ledger) RemoveHR(caller, account address.Address) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if account.IsZero() {
		return ErrZeroAddress
	}
	delete(l.access.hr, account)
	l.emit(Event{Kind: EventHRRemoved, At: l.now(), Actor: caller, Account: account})
	return nil
}

// TransferOwnership takes effect immediately.
func (l *Ledger) TransferOwnership(caller, newOwner address.Address) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return ErrZeroAddress
	}
	l.access.owner = newOwner
	l.emit(Event{Kind: EventOwnershipTransferred, At: l.now(), Actor: caller, Account: newOwner})
	return nil
}
