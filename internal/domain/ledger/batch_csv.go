package ledger

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"paystream/internal/platform/address"
)

var secondsPerMonth = big.NewInt(SecondsPerMonth)

// MonthlyToRate converts a monthly salary in whole currency units to a rate
// per second in the smallest unit, truncating.
func MonthlyToRate(monthly decimal.Decimal, decimals int32) (uint64, error) {
	if !monthly.IsPositive() {
		return 0, ErrInvalidSalary
	}
	units := monthly.Shift(decimals).Floor().BigInt()
	rate := new(big.Int).Quo(units, secondsPerMonth)
	if !rate.IsUint64() {
		return 0, ErrOverflow
	}
	if rate.Sign() == 0 {
		return 0, ErrZeroRate
	}
	return rate.Uint64(), nil
}

// ParseBatchCSV reads "address,monthlySalary" lines (comma or tab separated)
// into batch entries. A leading header line naming the columns is skipped.
// The first bad line fails the whole input.
func ParseBatchCSV(r io.Reader, decimals int32) ([]BatchEntry, error) {
	var entries []BatchEntry
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rawAddr, rawSalary, ok := splitBatchLine(line)
		if !ok {
			return nil, fmt.Errorf("line %d: need address,monthlySalary: %w", n, ErrInvalidBatch)
		}
		if len(entries) == 0 && strings.EqualFold(rawAddr, "address") {
			continue
		}

		addr, err := address.Parse(rawAddr)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", n, ErrInvalidAddress, err)
		}
		if addr.IsZero() {
			return nil, fmt.Errorf("line %d: %w", n, ErrZeroAddress)
		}
		salary, err := decimal.NewFromString(rawSalary)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, ErrInvalidSalary)
		}
		rate, err := MonthlyToRate(salary, decimals)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		entries = append(entries, BatchEntry{Employee: addr, RatePerSecond: rate})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrInvalidBatch
	}
	return entries, nil
}

// splitBatchLine splits on the first comma or tab. Exactly two non-empty
// fields are accepted.
func splitBatchLine(line string) (addr, salary string, ok bool) {
	i := strings.IndexAny(line, ",\t")
	if i < 0 {
		return "", "", false
	}
	addr, salary = strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
	if addr == "" || salary == "" || strings.ContainsAny(salary, ",\t") {
		return "", "", false
	}
	return addr, salary, true
}
