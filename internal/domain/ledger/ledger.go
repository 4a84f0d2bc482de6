package ledger

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"paystream/internal/platform/address"
)

// Ledger is the payroll streaming state machine. It is single-writer: callers
// serialize commands (Service does). Every command validates before it
// mutates, so a failed command leaves no trace.
type Ledger struct {
	clock      clockwork.Clock
	transferer Transferer
	policy     DepositPolicy

	registry *Registry
	treasury Treasury
	tax      TaxConfig
	yieldBps uint16
	access   Access

	journal journal
}

type Options struct {
	Clock         clockwork.Clock
	Transferer    Transferer
	DepositPolicy DepositPolicy
}

// Genesis is the state of a freshly deployed ledger: the deployer owns it and
// is the first HR member.
func Genesis(deployer address.Address, tax TaxConfig) (State, error) {
	if deployer.IsZero() {
		return State{}, ErrZeroAddress
	}
	if err := validateTax(tax); err != nil {
		return State{}, err
	}
	return State{Globals: Globals{
		Owner:    deployer,
		Deployer: deployer,
		HR:       []address.Address{deployer},
		Tax:      tax,
	}}, nil
}

func New(state State, opts Options) *Ledger {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.DepositPolicy == "" {
		opts.DepositPolicy = DepositOpen
	}
	l := &Ledger{
		clock:      opts.Clock,
		transferer: opts.Transferer,
		policy:     opts.DepositPolicy,
		registry:   newRegistry(state.Streams),
		treasury:   Treasury{Balance: state.Balance, Reserved: state.Reserved},
		tax:        state.Tax,
		yieldBps:   state.YieldBps,
		access:     newAccess(state.Owner, state.Deployer, state.HR),
	}
	l.begin()
	return l
}

// now never returns 0: a PausedAt of 0 means "not paused", so a pause at the
// epoch would otherwise read back as a cancelled stream.
func (l *Ledger) now() int64 {
	return max(l.clock.Now().Unix(), 1)
}

func (l *Ledger) globals() Globals {
	return Globals{
		Owner:        l.access.owner,
		Deployer:     l.access.deployer,
		HR:           l.access.members(),
		Balance:      l.treasury.Balance,
		Reserved:     l.treasury.Reserved,
		Tax:          l.tax,
		YieldBps:     l.yieldBps,
		NextStreamID: l.registry.next(),
	}
}

// Snapshot copies the full state.
func (l *Ledger) Snapshot() State {
	return State{Globals: l.globals(), Streams: l.registry.all()}
}

// transfer hands the payouts to the transferer. State must already be final.
func (l *Ledger) transfer(ctx context.Context, payouts []Payout) error {
	out := payouts[:0]
	for _, p := range payouts {
		if p.Amount > 0 {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	// Recorded before the call so that re-entrant commands append after us.
	mark := len(l.journal.payouts)
	l.journal.payouts = append(l.journal.payouts, out...)
	if l.transferer == nil {
		return nil
	}
	if err := l.transferer.Transfer(ctx, out); err != nil {
		l.journal.payouts = append(l.journal.payouts[:mark], l.journal.payouts[mark+len(out):]...)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

func (l *Ledger) requireOwner(caller address.Address) error {
	if !l.access.IsOwner(caller) {
		return ErrUnauthorized
	}
	return nil
}

func (l *Ledger) requireHR(caller address.Address) error {
	if !l.access.IsHR(caller) {
		return ErrUnauthorized
	}
	return nil
}

func (l *Ledger) requireManager(caller address.Address) error {
	if !l.access.IsManager(caller) {
		return ErrUnauthorized
	}
	return nil
}

// Queries.

func (l *Ledger) Stream(id uint64) (Stream, error) {
	s, err := l.registry.get(id)
	if err != nil {
		return Stream{}, err
	}
	return *s, nil
}

func (l *Ledger) Accrued(id uint64) (uint64, error) {
	s, err := l.registry.get(id)
	if err != nil {
		return 0, err
	}
	return ComputeAccrued(*s, l.now()).Total(), nil
}

func (l *Ledger) Quote(id uint64) (Quote, error) {
	s, err := l.registry.get(id)
	if err != nil {
		return Quote{}, err
	}
	acc := ComputeAccrued(*s, l.now())
	gross := acc.Total()
	tax, net := l.tax.Split(gross)
	return Quote{Gross: gross, Tax: tax, Net: net, Base: acc.Base, Bonus: acc.Bonus}, nil
}

func (l *Ledger) Status(id uint64) (Status, error) {
	s, err := l.registry.get(id)
	if err != nil {
		return "", err
	}
	return StatusAt(*s, l.now()), nil
}

func (l *Ledger) StreamIDsForEmployee(employee address.Address) []uint64 {
	return l.registry.idsFor(employee)
}

func (l *Ledger) TreasuryBalance() uint64 { return l.treasury.Balance }
func (l *Ledger) TotalReserved() uint64 { return l.treasury.Reserved }
func (l *Ledger) AvailableBalance() uint64 { return l.treasury.Available() }
func (l *Ledger) TaxBps() uint16 { return l.tax.BasisPoints }
func (l *Ledger) TaxVault() address.Address { return l.tax.Vault }
func (l *Ledger) IsHR(a address.Address) bool { return l.access.IsHR(a) }
func (l *Ledger) Owner() address.Address { return l.access.owner }
func (l *Ledger) Deployer() address.Address { return l.access.deployer }
func (l *Ledger) NextStreamID() uint64 { return l.registry.next() }
func (l *Ledger) SimulatedYieldRate() uint16 { return l.yieldBps }
func (l *Ledger) DepositPolicy() DepositPolicy { return l.policy }
func (l *Ledger) HRMembers() []address.Address { return l.access.members() }
