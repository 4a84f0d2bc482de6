package ledger

import (
	"fmt"

	"paystream/internal/platform/address"
)

func validateEntry(employee address.Address, rate uint64) error {
	if employee.IsZero() {
		return ErrZeroAddress
	}
	if rate == 0 {
		return ErrZeroRate
	}
	return nil
}

func (l *Ledger) open(employee address.Address, rate, total uint64, endless bool) uint64 {
	now := l.now()
	id := l.registry.append(Stream{
		Employee:       employee,
		RatePerSecond:  rate,
		StartTime:      now,
		LastClaimTime:  now,
		TotalDeposited: total,
		Active:         true,
		IsEndless:      endless,
	})
	l.emit(Event{Kind: EventStreamCreated, At: now, StreamID: ptr(id), Account: employee, Rate: rate, Amount: total, Endless: endless})
	return id
}

// CreateStream opens an endless salary stream.
func (l *Ledger) CreateStream(caller, employee address.Address, ratePerSecond uint64) (uint64, error) {
	if err := l.requireHR(caller); err != nil {
		return 0, err
	}
	if err := validateEntry(employee, ratePerSecond); err != nil {
		return 0, err
	}
	return l.open(employee, ratePerSecond, 0, true), nil
}

// CreateFiniteStream opens a stream capped at totalDeposited and reserves
// that amount from the free treasury balance.
func (l *Ledger) CreateFiniteStream(caller, employee address.Address, ratePerSecond, totalDeposited uint64) (uint64, error) {
	if err := l.requireHR(caller); err != nil {
		return 0, err
	}
	if err := validateEntry(employee, ratePerSecond); err != nil {
		return 0, err
	}
	if totalDeposited == 0 {
		return 0, ErrZeroAmount
	}
	if err := l.treasury.reserve(totalDeposited); err != nil {
		return 0, err
	}
	return l.open(employee, ratePerSecond, totalDeposited, false), nil
}

// CreateStreamBatch opens one endless stream per entry. Every entry is
// validated before any stream is created.
func (l *Ledger) CreateStreamBatch(caller address.Address, entries []BatchEntry) ([]uint64, error) {
	if err := l.requireHR(caller); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrInvalidBatch
	}
	for i, e := range entries {
		if err := validateEntry(e.Employee, e.RatePerSecond); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, l.open(e.Employee, e.RatePerSecond, 0, true))
	}
	return ids, nil
}

// PauseStream freezes accrual at the current instant without settling.
func (l *Ledger) PauseStream(caller address.Address, id uint64) error {
	if err := l.requireManager(caller); err != nil {
		return err
	}
	s, err := l.registry.get(id)
	if err != nil {
		return err
	}
	if !s.Active {
		return ErrStreamInactive
	}
	now := l.now()
	l.touch(s)
	s.Active = false
	s.PausedAt = now
	l.emit(Event{Kind: EventStreamPaused, At: now, StreamID: ptr(id), Actor: caller})
	return nil
}

// ResumeStream shifts the stream's timeline forward by the paused duration so
// the pause window earns nothing and the cap moves with it. LastClaimTime
// moves too; that shift is what keeps accrual continuous across the pause.
func (l *Ledger) ResumeStream(caller address.Address, id uint64) error {
	if err := l.requireManager(caller); err != nil {
		return err
	}
	s, err := l.registry.get(id)
	if err != nil {
		return err
	}
	if s.PausedAt == 0 {
		return ErrStreamInactive
	}
	now := l.now()
	paused := now - s.PausedAt
	if paused < 0 {
		paused = 0
	}
	l.touch(s)
	s.StartTime += paused
	s.LastClaimTime += paused
	s.PausedAt = 0
	s.Active = true
	l.emit(Event{Kind: EventStreamResumed, At: now, StreamID: ptr(id), Actor: caller})
	return nil
}

// AddStreamBonus adds a one-time amount paid in full on the next settlement.
func (l *Ledger) AddStreamBonus(caller address.Address, id, amount uint64) error {
	if err := l.requireManager(caller); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	s, err := l.registry.get(id)
	if err != nil {
		return err
	}
	if s.Cancelled() {
		return ErrStreamInactive
	}
	total, err := addChecked(s.TotalBonusAdded, amount)
	if err != nil {
		return err
	}
	if err := l.treasury.reserve(amount); err != nil {
		return err
	}
	l.touch(s)
	s.TotalBonusAdded = total
	l.emit(Event{Kind: EventStreamBonusAdded, At: l.now(), StreamID: ptr(id), Actor: caller, Amount: amount})
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

// BatchFromLists pairs parallel employee and rate lists.
func BatchFromLists(employees []address.Address, rates []uint64) ([]BatchEntry, error) {
	if len(employees) == 0 || len(employees) != len(rates) {
		return nil, ErrInvalidBatch
	}
	entries := make([]BatchEntry, len(employees))
	for i := range employees {
		entries[i] = BatchEntry{Employee: employees[i], RatePerSecond: rates[i]}
	}
	return entries, nil
}
