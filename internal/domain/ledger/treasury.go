package ledger

// Treasury is the pooled balance backing every stream. Reserved is the part
// logically committed to finite streams and bonuses; it may exceed Balance
// after endless payouts, in which case nothing is available.
type Treasury struct {
	Balance  uint64
	Reserved uint64
}

func (t Treasury) Available() uint64 {
	return subSat(t.Balance, t.Reserved)
}

func (t *Treasury) credit(amount uint64) error {
	next, err := addChecked(t.Balance, amount)
	if err != nil {
		return err
	}
	t.Balance = next
	return nil
}

func (t *Treasury) debit(amount uint64) error {
	if amount > t.Balance {
		return ErrInsufficientContractBalance
	}
	t.Balance -= amount
	return nil
}

func (t *Treasury) reserve(amount uint64) error {
	if amount > t.Available() {
		return ErrInsufficientContractBalance
	}
	t.Reserved += amount
	return nil
}

func (t *Treasury) release(amount uint64) {
	t.Reserved = subSat(t.Reserved, amount)
}
