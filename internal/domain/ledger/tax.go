package ledger

// Enabled reports whether withdrawals are split at all.
func (c TaxConfig) Enabled() bool {
	return !c.Vault.IsZero() && c.BasisPoints > 0
}

// Split rounds tax down and net up so that tax+net == gross.
func (c TaxConfig) Split(gross uint64) (tax, net uint64) {
	if !c.Enabled() {
		return 0, gross
	}
	tax = mulDiv(gross, uint64(c.BasisPoints), MaxBasisPoints)
	return tax, gross - tax
}

func validateTax(c TaxConfig) error {
	if c.BasisPoints > MaxBasisPoints {
		return ErrInvalidTaxConfig
	}
	if c.BasisPoints > 0 && c.Vault.IsZero() {
		return ErrInvalidTaxConfig
	}
	return nil
}
