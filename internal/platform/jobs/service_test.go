package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNowReturnsDetails(t *testing.T) {
	s := New(nil, clockwork.NewFakeClock())

	details, err := s.RunNow(context.Background(), "test", func(context.Context) (any, error) {
		return map[string]int{"n": 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"n": 3}, details)

	boom := errors.New("boom")
	_, err = s.RunNow(context.Background(), "test", func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestScheduleRunsOnTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockwork.NewFakeClock()
	s := New(nil, clock)

	ran := make(chan struct{}, 4)
	s.Start(ctx, Schedule{Type: "tick", Interval: time.Minute, Run: func(context.Context) (any, error) {
		ran <- struct{}{}
		return nil, nil
	}}, Schedule{Type: "disabled", Interval: 0})

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}
