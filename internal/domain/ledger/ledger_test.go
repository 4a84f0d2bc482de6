package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paystream/internal/platform/address"
)

var (
	deployer = address.MustParse("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	hrMember = address.MustParse("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")
	alice    = address.MustParse("0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb")
	bob      = address.MustParse("0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb")
	vault    = address.MustParse("0x00000000000000000000000000000000000000aa")
)

type fixture struct {
	ledger *Ledger
	clock  *clockwork.FakeClock
	book   *Book
}

func newFixture(t *testing.T, tax TaxConfig) *fixture {
	t.Helper()
	state, err := Genesis(deployer, tax)
	require.NoError(t, err)
	f := &fixture{
		clock: clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0)),
		book:  NewBook(nil),
	}
	f.ledger = New(state, Options{Clock: f.clock, Transferer: f.book})
	return f
}

func (f *fixture) advance(seconds int) {
	f.clock.Advance(time.Duration(seconds) * time.Second)
}

// funded deposits 100 units and sets a 10% tax.
func funded(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, TaxConfig{Vault: vault, BasisPoints: 1000})
	require.NoError(t, f.ledger.Deposit(deployer, 100))
	return f
}

func TestGenesis(t *testing.T) {
	_, err := Genesis(address.Zero, TaxConfig{})
	require.ErrorIs(t, err, ErrZeroAddress)

	_, err = Genesis(deployer, TaxConfig{BasisPoints: 10})
	require.ErrorIs(t, err, ErrInvalidTaxConfig)

	f := newFixture(t, TaxConfig{})
	assert.Equal(t, deployer, f.ledger.Owner())
	assert.Equal(t, deployer, f.ledger.Deployer())
	assert.True(t, f.ledger.IsHR(deployer))
	assert.Equal(t, uint64(0), f.ledger.NextStreamID())
}

func TestWithdrawSplitsTax(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	f.advance(10)
	q, err := f.ledger.Quote(id)
	require.NoError(t, err)
	assert.Equal(t, Quote{Gross: 10, Tax: 1, Net: 9, Base: 10}, q)

	got, err := f.ledger.Withdraw(context.Background(), alice, id)
	require.NoError(t, err)
	assert.Equal(t, Settlement{StreamID: id, Employee: alice, Gross: 10, Net: 9, Tax: 1}, got)

	assert.Equal(t, uint64(9), f.book.BalanceOf(alice))
	assert.Equal(t, uint64(1), f.book.BalanceOf(vault))
	assert.Equal(t, uint64(90), f.ledger.TreasuryBalance())

	changes := f.ledger.Drain()
	require.Len(t, changes.Payouts, 2)
	last := changes.Events[len(changes.Events)-1]
	assert.Equal(t, EventWithdrawn, last.Kind)
	assert.Equal(t, uint64(9), last.Net)
	assert.Equal(t, uint64(1), last.Tax)
}

func TestWithdrawTwicePaysOnce(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	f.advance(10)

	_, err = f.ledger.Withdraw(context.Background(), alice, id)
	require.NoError(t, err)
	_, err = f.ledger.Withdraw(context.Background(), alice, id)
	require.ErrorIs(t, err, ErrInsufficientAccrued)
	assert.Equal(t, uint64(10), f.book.BalanceOf(alice)+f.book.BalanceOf(vault))
}

func TestWithdrawPreconditions(t *testing.T) {
	f := funded(t)
	ctx := context.Background()

	_, err := f.ledger.Withdraw(ctx, alice, 0)
	require.ErrorIs(t, err, ErrStreamNotFound)

	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	f.advance(5)

	_, err = f.ledger.Withdraw(ctx, bob, id)
	require.ErrorIs(t, err, ErrNotEmployee)
	_, err = f.ledger.Withdraw(ctx, address.Zero, id)
	require.ErrorIs(t, err, ErrNotEmployee)

	require.NoError(t, f.ledger.PauseStream(deployer, id))
	_, err = f.ledger.Withdraw(ctx, alice, id)
	require.ErrorIs(t, err, ErrStreamInactive)
}

func TestWithdrawNeverPartiallyPays(t *testing.T) {
	f := newFixture(t, TaxConfig{})
	require.NoError(t, f.ledger.Deposit(deployer, 5))
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	f.advance(10)

	_, err = f.ledger.Withdraw(context.Background(), alice, id)
	require.ErrorIs(t, err, ErrInsufficientContractBalance)
	assert.Equal(t, uint64(5), f.ledger.TreasuryBalance())
	assert.Equal(t, uint64(0), f.book.BalanceOf(alice))

	s, err := f.ledger.Stream(id)
	require.NoError(t, err)
	assert.Equal(t, s.StartTime, s.LastClaimTime)
}

func TestPauseResumeContinuity(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)

	f.advance(10)
	require.NoError(t, f.ledger.PauseStream(deployer, id))
	accrued, err := f.ledger.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), accrued)

	f.advance(50)
	accrued, err = f.ledger.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), accrued)
	status, err := f.ledger.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, status)

	require.NoError(t, f.ledger.ResumeStream(deployer, id))
	accrued, err = f.ledger.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), accrued)

	f.advance(10)
	accrued, err = f.ledger.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), accrued)
}

func TestPauseResumeStateErrors(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.ResumeStream(deployer, id), ErrStreamInactive)
	require.NoError(t, f.ledger.PauseStream(deployer, id))
	require.ErrorIs(t, f.ledger.PauseStream(deployer, id), ErrStreamInactive)
	require.ErrorIs(t, f.ledger.PauseStream(alice, id), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.PauseStream(deployer, 9), ErrStreamNotFound)
}

func TestPauseAtEpochStaysResumable(t *testing.T) {
	state, err := Genesis(deployer, TaxConfig{})
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))
	l := New(state, Options{Clock: clock, Transferer: NewBook(nil)})
	require.NoError(t, l.Deposit(deployer, 100))
	id, err := l.CreateStream(deployer, alice, 1)
	require.NoError(t, err)

	require.NoError(t, l.PauseStream(deployer, id))
	s, err := l.Stream(id)
	require.NoError(t, err)
	assert.False(t, s.Cancelled())
	status, err := l.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, status)

	clock.Advance(5 * time.Second)
	require.NoError(t, l.ResumeStream(deployer, id))
	clock.Advance(3 * time.Second)
	accrued, err := l.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), accrued)
}

func TestResumeShiftsFiniteCap(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateFiniteStream(deployer, alice, 2, 20)
	require.NoError(t, err)

	f.advance(4)
	require.NoError(t, f.ledger.PauseStream(deployer, id))
	f.advance(100)
	require.NoError(t, f.ledger.ResumeStream(deployer, id))

	f.advance(3)
	accrued, err := f.ledger.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(14), accrued)

	f.advance(1000)
	accrued, err = f.ledger.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), accrued)
}

func TestCancelSettlesAndReleases(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	f.advance(10)

	got, err := f.ledger.CancelStream(context.Background(), deployer, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.Net)
	assert.Equal(t, uint64(1), got.Tax)
	assert.Equal(t, uint64(0), got.Remainder)

	assert.Equal(t, uint64(90), f.ledger.TreasuryBalance())
	assert.Equal(t, uint64(9), f.book.BalanceOf(alice))
	assert.Equal(t, uint64(1), f.book.BalanceOf(vault))

	s, err := f.ledger.Stream(id)
	require.NoError(t, err)
	assert.True(t, s.Cancelled())

	f.advance(100)
	accrued, err := f.ledger.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), accrued)

	_, err = f.ledger.CancelStream(context.Background(), deployer, id)
	require.ErrorIs(t, err, ErrStreamInactive)
	_, err = f.ledger.Withdraw(context.Background(), alice, id)
	require.ErrorIs(t, err, ErrStreamInactive)
	require.ErrorIs(t, f.ledger.ResumeStream(deployer, id), ErrStreamInactive)
}

func TestCancelPausedStream(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 2)
	require.NoError(t, err)
	f.advance(5)
	require.NoError(t, f.ledger.PauseStream(deployer, id))
	f.advance(50)

	got, err := f.ledger.CancelStream(context.Background(), deployer, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Gross)

	status, err := f.ledger.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, status)
}

func TestCancelFiniteReturnsRemainder(t *testing.T) {
	f := newFixture(t, TaxConfig{})
	require.NoError(t, f.ledger.Deposit(deployer, 100))
	id, err := f.ledger.CreateFiniteStream(deployer, alice, 1, 60)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), f.ledger.TotalReserved())
	assert.Equal(t, uint64(40), f.ledger.AvailableBalance())

	f.advance(10)
	_, err = f.ledger.Withdraw(context.Background(), alice, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), f.ledger.TotalReserved())

	f.advance(15)
	got, err := f.ledger.CancelStream(context.Background(), deployer, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), got.Gross)
	assert.Equal(t, uint64(35), got.Remainder)
	assert.Equal(t, uint64(0), f.ledger.TotalReserved())
	assert.Equal(t, uint64(75), f.ledger.AvailableBalance())
}

func TestFiniteStreamRespectsCap(t *testing.T) {
	f := newFixture(t, TaxConfig{})
	require.NoError(t, f.ledger.Deposit(deployer, 100))
	id, err := f.ledger.CreateFiniteStream(deployer, alice, 3, 10)
	require.NoError(t, err)

	var paid uint64
	for i := 0; i < 5; i++ {
		f.advance(2)
		got, err := f.ledger.Withdraw(context.Background(), alice, id)
		if errors.Is(err, ErrInsufficientAccrued) {
			continue
		}
		require.NoError(t, err)
		paid += got.Gross
	}
	assert.Equal(t, uint64(9), paid)
	assert.LessOrEqual(t, paid, uint64(10))

	status, err := f.ledger.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, uint64(1), f.ledger.TotalReserved())
}

func TestCreateFiniteStreamNeedsAvailableFunds(t *testing.T) {
	f := newFixture(t, TaxConfig{})
	require.NoError(t, f.ledger.Deposit(deployer, 50))

	_, err := f.ledger.CreateFiniteStream(deployer, alice, 1, 51)
	require.ErrorIs(t, err, ErrInsufficientContractBalance)
	_, err = f.ledger.CreateFiniteStream(deployer, alice, 1, 0)
	require.ErrorIs(t, err, ErrZeroAmount)
	_, err = f.ledger.CreateFiniteStream(deployer, alice, 0, 10)
	require.ErrorIs(t, err, ErrZeroRate)
	assert.Equal(t, uint64(0), f.ledger.NextStreamID())
}

func TestCreateStreamValidation(t *testing.T) {
	f := funded(t)

	_, err := f.ledger.CreateStream(alice, bob, 1)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.ledger.CreateStream(deployer, address.Zero, 1)
	require.ErrorIs(t, err, ErrZeroAddress)
	_, err = f.ledger.CreateStream(deployer, alice, 0)
	require.ErrorIs(t, err, ErrZeroRate)

	first, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	second, err := f.ledger.CreateStream(deployer, alice, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{first, second}, f.ledger.StreamIDsForEmployee(alice))
	assert.Empty(t, f.ledger.StreamIDsForEmployee(bob))
}

func TestCreateStreamBatchAllOrNothing(t *testing.T) {
	f := funded(t)
	f.ledger.Drain()

	_, err := f.ledger.CreateStreamBatch(deployer, nil)
	require.ErrorIs(t, err, ErrInvalidBatch)

	_, err = f.ledger.CreateStreamBatch(deployer, []BatchEntry{
		{Employee: alice, RatePerSecond: 1},
		{Employee: bob, RatePerSecond: 0},
	})
	require.ErrorIs(t, err, ErrZeroRate)
	assert.Equal(t, uint64(0), f.ledger.NextStreamID())
	assert.True(t, f.ledger.Drain().Empty())

	ids, err := f.ledger.CreateStreamBatch(deployer, []BatchEntry{
		{Employee: alice, RatePerSecond: 1},
		{Employee: bob, RatePerSecond: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, ids)
	assert.Len(t, f.ledger.Drain().Events, 2)
}

func TestBonus(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.AddStreamBonus(alice, id, 5), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.AddStreamBonus(deployer, id, 0), ErrZeroAmount)
	require.ErrorIs(t, f.ledger.AddStreamBonus(deployer, id, 101), ErrInsufficientContractBalance)

	require.NoError(t, f.ledger.AddStreamBonus(deployer, id, 20))
	assert.Equal(t, uint64(20), f.ledger.TotalReserved())

	f.advance(10)
	q, err := f.ledger.Quote(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), q.Base)
	assert.Equal(t, uint64(20), q.Bonus)

	got, err := f.ledger.Withdraw(context.Background(), alice, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), got.Gross)
	assert.Equal(t, uint64(3), got.Tax)
	assert.Equal(t, uint64(0), f.ledger.TotalReserved())

	s, err := f.ledger.Stream(id)
	require.NoError(t, err)
	assert.Equal(t, s.TotalBonusAdded, s.BonusWithdrawn)

	_, err = f.ledger.CancelStream(context.Background(), deployer, id)
	require.NoError(t, err)
	require.ErrorIs(t, f.ledger.AddStreamBonus(deployer, id, 1), ErrStreamInactive)
}

func TestBonusOnPausedStream(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	require.NoError(t, f.ledger.PauseStream(deployer, id))
	require.NoError(t, f.ledger.AddStreamBonus(deployer, id, 4))

	accrued, err := f.ledger.Accrued(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), accrued)
}

func TestReentrantWithdrawSeesSettledState(t *testing.T) {
	state, err := Genesis(deployer, TaxConfig{})
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))

	var (
		l      *Ledger
		nested error
		calls  int
	)
	l = New(state, Options{Clock: clock, Transferer: TransferFunc(func(ctx context.Context, payouts []Payout) error {
		calls++
		if calls == 1 {
			_, nested = l.Withdraw(ctx, alice, 0)
		}
		return nil
	})})

	require.NoError(t, l.Deposit(deployer, 100))
	_, err = l.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	clock.Advance(10 * time.Second)

	got, err := l.Withdraw(context.Background(), alice, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Gross)
	require.ErrorIs(t, nested, ErrInsufficientAccrued)
	assert.Equal(t, uint64(90), l.TreasuryBalance())
}

func TestTransferFailureRestoresState(t *testing.T) {
	state, err := Genesis(deployer, TaxConfig{Vault: vault, BasisPoints: 500})
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	boom := errors.New("boom")
	l := New(state, Options{Clock: clock, Transferer: TransferFunc(func(context.Context, []Payout) error { return boom })})

	require.NoError(t, l.Deposit(deployer, 100))
	_, err = l.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	require.NoError(t, l.AddStreamBonus(deployer, 0, 5))
	l.Drain()
	before := l.Snapshot()

	clock.Advance(10 * time.Second)
	_, err = l.Withdraw(context.Background(), alice, 0)
	require.ErrorIs(t, err, ErrTransferFailed)
	require.ErrorIs(t, err, boom)

	_, err = l.CancelStream(context.Background(), deployer, 0)
	require.ErrorIs(t, err, ErrTransferFailed)

	err = l.WithdrawTreasury(context.Background(), deployer, 10)
	require.ErrorIs(t, err, ErrTransferFailed)

	assert.Equal(t, before, l.Snapshot())
	changes := l.Drain()
	assert.Empty(t, changes.Events)
	assert.Empty(t, changes.Payouts)
}

func TestTreasuryCommands(t *testing.T) {
	f := newFixture(t, TaxConfig{})
	ctx := context.Background()

	require.ErrorIs(t, f.ledger.Deposit(alice, 0), ErrZeroAmount)
	require.NoError(t, f.ledger.Deposit(alice, 100))

	require.ErrorIs(t, f.ledger.AddYield(alice, 5), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.AddYield(deployer, 0), ErrZeroAmount)
	require.NoError(t, f.ledger.AddYield(deployer, 5))
	assert.Equal(t, uint64(105), f.ledger.TreasuryBalance())

	_, err := f.ledger.CreateFiniteStream(deployer, alice, 1, 60)
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.WithdrawTreasury(ctx, alice, 1), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.WithdrawTreasury(ctx, deployer, 0), ErrZeroAmount)
	require.ErrorIs(t, f.ledger.WithdrawTreasury(ctx, deployer, 46), ErrInsufficientContractBalance)
	require.NoError(t, f.ledger.WithdrawTreasury(ctx, deployer, 45))
	assert.Equal(t, uint64(45), f.book.BalanceOf(deployer))
	assert.Equal(t, uint64(60), f.ledger.TreasuryBalance())
	assert.Equal(t, uint64(0), f.ledger.AvailableBalance())
}

func TestDepositPolicyHROnly(t *testing.T) {
	state, err := Genesis(deployer, TaxConfig{})
	require.NoError(t, err)
	l := New(state, Options{Clock: clockwork.NewFakeClock(), DepositPolicy: DepositHROnly})

	require.ErrorIs(t, l.Deposit(alice, 10), ErrUnauthorized)
	require.NoError(t, l.Deposit(deployer, 10))
	assert.Equal(t, uint64(10), l.TreasuryBalance())
}

func TestSetTaxConfig(t *testing.T) {
	f := newFixture(t, TaxConfig{})

	require.ErrorIs(t, f.ledger.SetTaxConfig(alice, vault, 100), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.SetTaxConfig(deployer, vault, 10001), ErrInvalidTaxConfig)
	require.ErrorIs(t, f.ledger.SetTaxConfig(deployer, address.Zero, 100), ErrInvalidTaxConfig)
	require.NoError(t, f.ledger.SetTaxConfig(deployer, address.Zero, 0))
	require.NoError(t, f.ledger.SetTaxConfig(deployer, vault, 250))
	assert.Equal(t, uint16(250), f.ledger.TaxBps())
	assert.Equal(t, vault, f.ledger.TaxVault())
}

func TestSimulatedYieldRate(t *testing.T) {
	f := newFixture(t, TaxConfig{})
	require.NoError(t, f.ledger.Deposit(alice, 1000))

	require.ErrorIs(t, f.ledger.SetSimulatedYieldRate(alice, 10), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.SetSimulatedYieldRate(deployer, 10001), ErrInvalidYieldRate)
	require.NoError(t, f.ledger.SetSimulatedYieldRate(deployer, 150))
	assert.Equal(t, uint16(150), f.ledger.SimulatedYieldRate())
	assert.Equal(t, uint64(15), f.ledger.SimulatedYield())
}

func TestAccessManagement(t *testing.T) {
	f := funded(t)

	require.ErrorIs(t, f.ledger.AddHR(alice, bob), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.AddHR(deployer, address.Zero), ErrZeroAddress)
	require.NoError(t, f.ledger.AddHR(deployer, hrMember))
	assert.True(t, f.ledger.IsHR(hrMember))

	id, err := f.ledger.CreateStream(hrMember, alice, 1)
	require.NoError(t, err)

	require.NoError(t, f.ledger.RemoveHR(deployer, hrMember))
	assert.False(t, f.ledger.IsHR(hrMember))
	require.ErrorIs(t, f.ledger.PauseStream(hrMember, id), ErrUnauthorized)

	require.ErrorIs(t, f.ledger.TransferOwnership(deployer, address.Zero), ErrZeroAddress)
	require.NoError(t, f.ledger.TransferOwnership(deployer, bob))
	assert.Equal(t, bob, f.ledger.Owner())
	require.ErrorIs(t, f.ledger.AddHR(deployer, alice), ErrUnauthorized)

	// The new owner can manage streams without being HR.
	require.NoError(t, f.ledger.PauseStream(bob, id))
	_, err = f.ledger.CreateStream(bob, alice, 1)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestConservation(t *testing.T) {
	f := funded(t)
	ctx := context.Background()
	var deposits, yield uint64 = 100, 0

	a, err := f.ledger.CreateStream(deployer, alice, 3)
	require.NoError(t, err)
	b, err := f.ledger.CreateFiniteStream(deployer, bob, 2, 30)
	require.NoError(t, err)
	require.NoError(t, f.ledger.AddStreamBonus(deployer, a, 7))

	f.advance(4)
	_, err = f.ledger.Withdraw(ctx, alice, a)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Deposit(bob, 40))
	deposits += 40
	require.NoError(t, f.ledger.AddYield(deployer, 3))
	yield += 3

	f.advance(6)
	_, err = f.ledger.Withdraw(ctx, bob, b)
	require.NoError(t, err)
	require.NoError(t, f.ledger.PauseStream(deployer, a))
	f.advance(20)
	_, err = f.ledger.CancelStream(ctx, deployer, a)
	require.NoError(t, err)
	require.NoError(t, f.ledger.WithdrawTreasury(ctx, deployer, 10))

	var out uint64
	for _, p := range f.ledger.Drain().Payouts {
		out += p.Amount
	}
	paid := f.book.BalanceOf(alice) + f.book.BalanceOf(bob) + f.book.BalanceOf(vault) + f.book.BalanceOf(deployer)
	assert.Equal(t, out, paid)
	assert.Equal(t, deposits+yield-out, f.ledger.TreasuryBalance())
}

func TestRollbackRestoresDrainPoint(t *testing.T) {
	f := funded(t)
	id, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	f.ledger.Drain()
	before := f.ledger.Snapshot()

	f.advance(10)
	_, err = f.ledger.Withdraw(context.Background(), alice, id)
	require.NoError(t, err)
	_, err = f.ledger.CreateStream(deployer, bob, 2)
	require.NoError(t, err)
	require.NoError(t, f.ledger.SetTaxConfig(deployer, address.Zero, 0))
	require.NoError(t, f.ledger.AddHR(deployer, hrMember))

	f.ledger.Rollback()
	assert.Equal(t, before, f.ledger.Snapshot())
	assert.Empty(t, f.ledger.StreamIDsForEmployee(bob))
	assert.True(t, f.ledger.Drain().Empty())
}

func TestDrainReportsTouchedStreams(t *testing.T) {
	f := funded(t)
	a, err := f.ledger.CreateStream(deployer, alice, 1)
	require.NoError(t, err)
	_, err = f.ledger.CreateStream(deployer, bob, 1)
	require.NoError(t, err)
	f.ledger.Drain()

	require.NoError(t, f.ledger.PauseStream(deployer, a))
	c, err := f.ledger.CreateStream(deployer, bob, 5)
	require.NoError(t, err)

	changes := f.ledger.Drain()
	require.Len(t, changes.Streams, 2)
	assert.Equal(t, a, changes.Streams[0].ID)
	assert.Equal(t, c, changes.Streams[1].ID)
	assert.Equal(t, uint64(3), changes.Globals.NextStreamID)
}
