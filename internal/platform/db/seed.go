package db

import (
	"context"
	"fmt"
	"log/slog"

	"paystream/internal/domain/ledger"
	"paystream/internal/platform/address"
	"paystream/internal/platform/config"
)

// Seeder is the part of ledger.Service the seed needs.
type Seeder interface {
	Access() ledger.AccessView
	IsHR(a address.Address) bool
	Treasury() ledger.TreasuryView
	AddHR(ctx context.Context, caller, account address.Address) error
	Deposit(ctx context.Context, caller address.Address, amount uint64) error
}

// Seed grants SEED_HR addresses the HR role and funds an empty treasury with
// SEED_DEPOSIT, both on behalf of the current owner. Running it twice changes
// nothing.
func Seed(ctx context.Context, svc Seeder, cfg config.Config) error {
	owner := svc.Access().Owner
	for _, raw := range cfg.SeedHR {
		addr, err := address.Parse(raw)
		if err != nil {
			return fmt.Errorf("SEED_HR %q: %w", raw, err)
		}
		if addr.IsZero() || svc.IsHR(addr) {
			continue
		}
		if err := svc.AddHR(ctx, owner, addr); err != nil {
			return fmt.Errorf("seed hr %s: %w", addr, err)
		}
		slog.Info("seeded hr member", "address", addr.String())
	}

	if cfg.SeedDeposit > 0 && svc.Treasury().Balance == 0 {
		if err := svc.Deposit(ctx, owner, cfg.SeedDeposit); err != nil {
			return fmt.Errorf("seed deposit: %w", err)
		}
		slog.Info("seeded treasury", "amount", cfg.SeedDeposit)
	}
	return nil
}
