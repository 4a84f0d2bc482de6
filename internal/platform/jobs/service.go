package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"paystream/internal/platform/metrics"
	"paystream/internal/platform/querier"
)

const (
	JobSimulatedYield = "simulated_yield"
	JobLedgerSnapshot = "ledger_snapshot"
)

// Func runs one job and returns details recorded with the run.
type Func func(context.Context) (any, error)

type Schedule struct {
	Type     string
	Interval time.Duration
	Run      Func
}

type Service struct {
	DB    querier.Querier
	clock clockwork.Clock
	queue chan job
}

type job struct {
	Type string
	Run  Func
}

// New returns a job runner. db may be nil, in which case runs are not
// recorded.
func New(db querier.Querier, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		DB:    db,
		clock: clock,
		queue: make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context, schedules ...Schedule) {
	go s.worker(ctx)
	for _, sch := range schedules {
		if sch.Interval > 0 {
			go s.schedule(ctx, sch)
		}
	}
}

func (s *Service) Enqueue(jobType string, run Func) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run Func) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := uuid.New()
	recorded := false
	if s.DB != nil {
		if _, err := s.DB.Exec(ctx, `
      INSERT INTO job_runs (id, job_type, status)
      VALUES ($1,$2,$3)
    `, runID, j.Type, "running"); err != nil {
			slog.Warn("job run insert failed", "err", err)
		} else {
			recorded = true
		}
	}

	details, err := j.Run(ctx)
	metrics.RecordJobRun(j.Type, err)
	status := "completed"
	if err != nil {
		status = "failed"
		details = map[string]any{"error": err.Error()}
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if recorded {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, sch Schedule) {
	ticker := s.clock.NewTicker(sch.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Enqueue(sch.Type, sch.Run)
		}
	}
}
