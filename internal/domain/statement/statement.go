// Package statement renders a per-stream PDF of everything a stream has paid
// out so far.
package statement

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"paystream/internal/domain/ledger"
)

// Source is the part of ledger.Service a statement needs.
type Source interface {
	Stream(id uint64) (ledger.StreamView, error)
	Payouts(ctx context.Context, streamID uint64) ([]ledger.Payout, error)
	Decimals() int32
}

type Service struct {
	source Source
	now    func() time.Time
}

func NewService(source Source, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{source: source, now: now}
}

// Input is the data rendered on one statement.
type Input struct {
	Stream      ledger.StreamView
	Payouts     []ledger.Payout
	Decimals    int32
	GeneratedAt time.Time
}

// Totals sums the payouts of a statement by kind.
type Totals struct {
	Net uint64
	Tax uint64
}

func (s *Service) Generate(ctx context.Context, streamID uint64) ([]byte, error) {
	view, err := s.source.Stream(streamID)
	if err != nil {
		return nil, err
	}
	payouts, err := s.source.Payouts(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	var buf bytes.Buffer
	if err := Render(&buf, Input{Stream: view, Payouts: payouts, Decimals: s.source.Decimals(), GeneratedAt: s.now()}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Sum(payouts []ledger.Payout) Totals {
	var t Totals
	for _, p := range payouts {
		switch p.Kind {
		case ledger.PayoutNet:
			t.Net += p.Amount
		case ledger.PayoutTax:
			t.Tax += p.Amount
		}
	}
	return t
}

// FormatUnits renders base units as a fixed-point currency amount.
func FormatUnits(amount uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals).StringFixed(decimals)
}

func Render(w io.Writer, in Input) error {
	st := in.Stream
	totals := Sum(in.Payouts)
	units := func(v uint64) string { return FormatUnits(v, in.Decimals) }

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Stream statement #%d", st.ID))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s", st.Employee.String()))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Status: %s", st.Status))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Rate: %s per second", units(st.RatePerSecond)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Started: %s", unixUTC(st.StartTime)))
	pdf.Ln(6)
	if st.IsEndless {
		pdf.Cell(0, 7, "Term: endless")
	} else {
		pdf.Cell(0, 7, fmt.Sprintf("Term: %s total", units(st.TotalDeposited)))
	}
	pdf.Ln(6)
	if st.TotalBonusAdded > 0 {
		pdf.Cell(0, 7, fmt.Sprintf("Bonus: %s added, %s paid", units(st.TotalBonusAdded), units(st.BonusWithdrawn)))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Accrued now: %s gross, %s net", units(st.Quote.Gross), units(st.Quote.Net)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	for _, col := range []struct {
		title string
		width float64
	}{{"Time (UTC)", 45}, {"Kind", 20}, {"Recipient", 95}, {"Amount", 30}} {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	if len(in.Payouts) == 0 {
		pdf.CellFormat(190, 7, "No payouts yet", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	for _, p := range in.Payouts {
		pdf.CellFormat(45, 6, unixUTC(p.At), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, string(p.Kind), "1", 0, "L", false, 0, "")
		pdf.CellFormat(95, 6, p.Recipient.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, units(p.Amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Paid to employee: %s", units(totals.Net)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Withheld as tax: %s", units(totals.Tax)))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", in.GeneratedAt.UTC().Format(time.RFC3339)))

	return pdf.Output(w)
}

func unixUTC(sec int64) string {
	return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04:05")
}
