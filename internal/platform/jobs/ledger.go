package jobs

import (
	"context"
	"log/slog"

	"paystream/internal/domain/ledger"
)

// SimulatedYield adds one period of simulated yield to the treasury.
func SimulatedYield(svc *ledger.Service) Func {
	return func(ctx context.Context) (any, error) {
		amount, err := svc.AccrueYield(ctx)
		if err != nil {
			return nil, err
		}
		if amount > 0 {
			slog.Info("simulated yield added", "amount", amount)
		}
		return map[string]any{"amount": amount}, nil
	}
}

// LedgerSnapshot logs the treasury totals.
func LedgerSnapshot(svc *ledger.Service) Func {
	return func(context.Context) (any, error) {
		g := svc.Globals()
		slog.Info("ledger snapshot",
			"balance", g.Balance,
			"reserved", g.Reserved,
			"streams", g.NextStreamID,
			"hr", len(g.HR),
			"taxBps", g.Tax.BasisPoints,
		)
		return map[string]any{
			"balance":  g.Balance,
			"reserved": g.Reserved,
			"streams":  g.NextStreamID,
		}, nil
	}
}
