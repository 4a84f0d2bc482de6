package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"paystream/internal/platform/address"
	"paystream/internal/platform/metrics"
)

// Publisher receives events after they are durably committed.
type Publisher interface {
	Publish(events []Event)
}

type ServiceConfig struct {
	Store         StoreAPI
	Clock         clockwork.Clock
	Deployer      address.Address
	Tax           TaxConfig
	DepositPolicy DepositPolicy
	Decimals      int32
	Publisher     Publisher
}

// Service is the single writer in front of the Ledger. Each command runs
// under the lock, is persisted in one transaction and is undone in memory if
// persisting fails.
type Service struct {
	mu        sync.RWMutex
	ledger    *Ledger
	store     StoreAPI
	book      *Book
	publisher Publisher
	decimals  int32
}

type StreamView struct {
	Stream
	Status Status `json:"status"`
	Quote  Quote  `json:"accrued"`
	// CapTime is omitted for endless streams.
	CapTime *int64 `json:"capTime,omitempty"`
}

type TreasuryView struct {
	Balance            uint64        `json:"balance"`
	Reserved           uint64        `json:"reserved"`
	Available          uint64        `json:"available"`
	SimulatedYieldRate uint16        `json:"simulatedYieldRate"`
	DepositPolicy      DepositPolicy `json:"depositPolicy"`
}

type AccessView struct {
	Owner    address.Address   `json:"owner"`
	Deployer address.Address   `json:"deployer"`
	HR       []address.Address `json:"hr"`
}

func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	var (
		state    State
		balances map[address.Address]uint64
		found    bool
		err      error
	)
	if cfg.Store != nil {
		state, balances, found, err = cfg.Store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
	}
	if !found {
		if state, err = Genesis(cfg.Deployer, cfg.Tax); err != nil {
			return nil, fmt.Errorf("genesis: %w", err)
		}
	}

	l := New(state, Options{Clock: cfg.Clock, DepositPolicy: cfg.DepositPolicy})
	if !found && cfg.Store != nil {
		if err := cfg.Store.Commit(ctx, Changes{Globals: l.globals()}); err != nil {
			return nil, fmt.Errorf("persist genesis: %w", err)
		}
		slog.Info("ledger genesis committed", "deployer", state.Deployer.String())
	}

	metrics.SetTreasury(l.TreasuryBalance(), l.TotalReserved(), l.NextStreamID())
	return &Service{
		ledger:    l,
		store:     cfg.Store,
		book:      NewBook(balances),
		publisher: cfg.Publisher,
		decimals:  cfg.Decimals,
	}, nil
}

func (s *Service) exec(ctx context.Context, command string, fn func(*Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.commit(ctx, command, fn(s.ledger))
	metrics.RecordCommand(command, err)
	return err
}

func (s *Service) commit(ctx context.Context, command string, cmdErr error) error {
	if cmdErr != nil {
		s.ledger.Rollback()
		return cmdErr
	}
	changes := s.ledger.Pending()
	if changes.Empty() {
		s.ledger.Checkpoint()
		return nil
	}
	if s.store != nil {
		// A command that reached this point must not be lost to a client disconnect.
		if err := s.store.Commit(context.WithoutCancel(ctx), changes); err != nil {
			s.ledger.Rollback()
			slog.Error("ledger commit failed", "command", command, "err", err)
			return fmt.Errorf("persist %s: %w", command, err)
		}
	}
	s.ledger.Checkpoint()

	s.book.Credit(changes.Payouts)
	for _, p := range changes.Payouts {
		metrics.RecordPayout(string(p.Kind), p.Amount)
	}
	g := changes.Globals
	metrics.SetTreasury(g.Balance, g.Reserved, g.NextStreamID)
	if s.publisher != nil && len(changes.Events) > 0 {
		s.publisher.Publish(changes.Events)
	}
	slog.Info("ledger command committed", "command", command, "events", len(changes.Events), "payouts", len(changes.Payouts))
	return nil
}

// Commands.

func (s *Service) Deposit(ctx context.Context, caller address.Address, amount uint64) error {
	return s.exec(ctx, "deposit", func(l *Ledger) error {
		return l.Deposit(caller, amount)
	})
}

func (s *Service) AddYield(ctx context.Context, caller address.Address, amount uint64) error {
	return s.exec(ctx, "add_yield", func(l *Ledger) error {
		return l.AddYield(caller, amount)
	})
}

func (s *Service) WithdrawTreasury(ctx context.Context, caller address.Address, amount uint64) error {
	return s.exec(ctx, "withdraw_treasury", func(l *Ledger) error {
		return l.WithdrawTreasury(ctx, caller, amount)
	})
}

func (s *Service) SetTaxConfig(ctx context.Context, caller, vault address.Address, bps uint16) error {
	return s.exec(ctx, "set_tax_config", func(l *Ledger) error {
		return l.SetTaxConfig(caller, vault, bps)
	})
}

func (s *Service) SetSimulatedYieldRate(ctx context.Context, caller address.Address, bps uint16) error {
	return s.exec(ctx, "set_yield_rate", func(l *Ledger) error {
		return l.SetSimulatedYieldRate(caller, bps)
	})
}

// AccrueYield adds one period of simulated yield on behalf of the owner.
func (s *Service) AccrueYield(ctx context.Context) (uint64, error) {
	var amount uint64
	err := s.exec(ctx, "accrue_yield", func(l *Ledger) error {
		amount = l.SimulatedYield()
		if amount == 0 {
			return nil
		}
		return l.AddYield(l.Owner(), amount)
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func (s *Service) AddHR(ctx context.Context, caller, account address.Address) error {
	return s.exec(ctx, "add_hr", func(l *Ledger) error {
		return l.AddHR(caller, account)
	})
}

func (s *Service) RemoveHR(ctx context.Context, caller, account address.Address) error {
	return s.exec(ctx, "remove_hr", func(l *Ledger) error {
		return l.RemoveHR(caller, account)
	})
}

func (s *Service) TransferOwnership(ctx context.Context, caller, newOwner address.Address) error {
	return s.exec(ctx, "transfer_ownership", func(l *Ledger) error {
		return l.TransferOwnership(caller, newOwner)
	})
}

func (s *Service) CreateStream(ctx context.Context, caller, employee address.Address, rate uint64) (uint64, error) {
	var id uint64
	err := s.exec(ctx, "create_stream", func(l *Ledger) error {
		var err error
		id, err = l.CreateStream(caller, employee, rate)
		return err
	})
	return id, err
}

func (s *Service) CreateFiniteStream(ctx context.Context, caller, employee address.Address, rate, total uint64) (uint64, error) {
	var id uint64
	err := s.exec(ctx, "create_finite_stream", func(l *Ledger) error {
		var err error
		id, err = l.CreateFiniteStream(caller, employee, rate, total)
		return err
	})
	return id, err
}

func (s *Service) CreateStreamBatch(ctx context.Context, caller address.Address, entries []BatchEntry) ([]uint64, error) {
	var ids []uint64
	err := s.exec(ctx, "create_stream_batch", func(l *Ledger) error {
		var err error
		ids, err = l.CreateStreamBatch(caller, entries)
		return err
	})
	return ids, err
}

// CreateStreamBatchCSV parses monthly salaries and creates the batch.
func (s *Service) CreateStreamBatchCSV(ctx context.Context, caller address.Address, r io.Reader) ([]uint64, error) {
	entries, err := ParseBatchCSV(r, s.decimals)
	if err != nil {
		return nil, err
	}
	return s.CreateStreamBatch(ctx, caller, entries)
}

func (s *Service) PauseStream(ctx context.Context, caller address.Address, id uint64) error {
	return s.exec(ctx, "pause_stream", func(l *Ledger) error {
		return l.PauseStream(caller, id)
	})
}

func (s *Service) ResumeStream(ctx context.Context, caller address.Address, id uint64) error {
	return s.exec(ctx, "resume_stream", func(l *Ledger) error {
		return l.ResumeStream(caller, id)
	})
}

func (s *Service) AddStreamBonus(ctx context.Context, caller address.Address, id, amount uint64) error {
	return s.exec(ctx, "add_stream_bonus", func(l *Ledger) error {
		return l.AddStreamBonus(caller, id, amount)
	})
}

func (s *Service) CancelStream(ctx context.Context, caller address.Address, id uint64) (Settlement, error) {
	var out Settlement
	err := s.exec(ctx, "cancel_stream", func(l *Ledger) error {
		var err error
		out, err = l.CancelStream(ctx, caller, id)
		return err
	})
	return out, err
}

func (s *Service) Withdraw(ctx context.Context, caller address.Address, id uint64) (Settlement, error) {
	var out Settlement
	err := s.exec(ctx, "withdraw", func(l *Ledger) error {
		var err error
		out, err = l.Withdraw(ctx, caller, id)
		return err
	})
	return out, err
}

// Queries.

func (s *Service) Stream(id uint64) (StreamView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.ledger.Stream(id)
	if err != nil {
		return StreamView{}, err
	}
	q, err := s.ledger.Quote(id)
	if err != nil {
		return StreamView{}, err
	}
	status, err := s.ledger.Status(id)
	if err != nil {
		return StreamView{}, err
	}
	view := StreamView{Stream: st, Status: status, Quote: q}
	if !st.IsEndless {
		view.CapTime = ptr(CapTime(st))
	}
	return view, nil
}

func (s *Service) Accrued(id uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Accrued(id)
}

func (s *Service) Quote(id uint64) (Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Quote(id)
}

func (s *Service) StreamIDsForEmployee(employee address.Address) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.StreamIDsForEmployee(employee)
}

func (s *Service) Treasury() TreasuryView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TreasuryView{
		Balance:            s.ledger.TreasuryBalance(),
		Reserved:           s.ledger.TotalReserved(),
		Available:          s.ledger.AvailableBalance(),
		SimulatedYieldRate: s.ledger.SimulatedYieldRate(),
		DepositPolicy:      s.ledger.DepositPolicy(),
	}
}

func (s *Service) Tax() TaxConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TaxConfig{Vault: s.ledger.TaxVault(), BasisPoints: s.ledger.TaxBps()}
}

func (s *Service) Access() AccessView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AccessView{Owner: s.ledger.Owner(), Deployer: s.ledger.Deployer(), HR: s.ledger.HRMembers()}
}

func (s *Service) IsOwner(a address.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !a.IsZero() && s.ledger.Owner() == a
}

func (s *Service) IsHR(a address.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.IsHR(a)
}

func (s *Service) Globals() Globals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.globals()
}

func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Snapshot()
}

// BalanceOf is the total ever paid out to addr.
func (s *Service) BalanceOf(addr address.Address) uint64 {
	return s.book.BalanceOf(addr)
}

func (s *Service) Decimals() int32 {
	return s.decimals
}

// Events pages through the committed event log, newest first.
func (s *Service) Events(ctx context.Context, filter EventFilter, limit, offset int) ([]EventRecord, int, error) {
	if s.store == nil {
		return nil, 0, nil
	}
	total, err := s.store.CountEvents(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	events, err := s.store.ListEvents(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *Service) Payouts(ctx context.Context, streamID uint64) ([]Payout, error) {
	if _, err := s.Stream(streamID); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListPayouts(ctx, streamID)
}
