package db

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paystream/internal/domain/ledger"
	"paystream/internal/platform/config"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, err := ledger.NewService(ctx, ledger.ServiceConfig{
		Clock:         clockwork.NewFakeClock(),
		Deployer:      "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		DepositPolicy: ledger.DepositHROnly,
	})
	require.NoError(t, err)

	cfg := config.Config{
		SeedHR:      []string{"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"},
		SeedDeposit: 500,
	}
	require.NoError(t, Seed(ctx, svc, cfg))
	require.NoError(t, Seed(ctx, svc, cfg))

	assert.Len(t, svc.Access().HR, 2)
	assert.Equal(t, uint64(500), svc.Treasury().Balance)

	cfg.SeedHR = []string{"not-an-address"}
	assert.Error(t, Seed(ctx, svc, cfg))
}
