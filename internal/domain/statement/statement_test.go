package statement

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paystream/internal/domain/ledger"
	"paystream/internal/platform/address"
)

var (
	employee = address.MustParse("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	vault    = address.MustParse("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

type fakeSource struct {
	view    ledger.StreamView
	payouts []ledger.Payout
}

func (f fakeSource) Stream(id uint64) (ledger.StreamView, error) {
	if id != f.view.ID {
		return ledger.StreamView{}, ledger.ErrStreamNotFound
	}
	return f.view, nil
}

func (f fakeSource) Payouts(context.Context, uint64) ([]ledger.Payout, error) {
	return f.payouts, nil
}

func (f fakeSource) Decimals() int32 { return 6 }

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.500000", FormatUnits(1_500_000, 6))
	assert.Equal(t, "0.000001", FormatUnits(1, 6))
	assert.Equal(t, "18446744073709551615", FormatUnits(18446744073709551615, 0))
}

func TestSum(t *testing.T) {
	totals := Sum([]ledger.Payout{
		{Recipient: employee, Amount: 9, Kind: ledger.PayoutNet},
		{Recipient: vault, Amount: 1, Kind: ledger.PayoutTax},
		{Recipient: employee, Amount: 18, Kind: ledger.PayoutNet},
	})
	assert.Equal(t, Totals{Net: 27, Tax: 1}, totals)
}

func TestGenerateProducesPDF(t *testing.T) {
	id := uint64(3)
	src := fakeSource{
		view: ledger.StreamView{
			Stream: ledger.Stream{ID: id, Employee: employee, RatePerSecond: 1, StartTime: 1_700_000_000, Active: true, IsEndless: true},
			Status: ledger.StatusActive,
		},
		payouts: []ledger.Payout{
			{StreamID: &id, Recipient: employee, Amount: 9, Kind: ledger.PayoutNet, At: 1_700_000_010},
			{StreamID: &id, Recipient: vault, Amount: 1, Kind: ledger.PayoutTax, At: 1_700_000_010},
		},
	}
	svc := NewService(src, func() time.Time { return time.Unix(1_700_000_100, 0) })

	out, err := svc.Generate(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = svc.Generate(context.Background(), 99)
	assert.ErrorIs(t, err, ledger.ErrStreamNotFound)
}
