package ledgerhandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paystream/internal/domain/audit"
	"paystream/internal/domain/ledger"
	"paystream/internal/domain/statement"
	"paystream/internal/platform/address"
	"paystream/internal/transport/http/api"
	"paystream/internal/transport/http/middleware"
)

// AuditRecorder stores the operator trail of successful mutations.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

type Handler struct {
	Service    *ledger.Service
	Statements *statement.Service
	Audit      AuditRecorder
}

func NewHandler(service *ledger.Service, statements *statement.Service, recorder AuditRecorder) *Handler {
	return &Handler{Service: service, Statements: statements, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ledger", h.handleLedger)
	r.Get("/access", h.handleAccess)
	r.Get("/balances/{address}", h.handleBalance)
	r.Get("/employees/{address}/streams", h.handleEmployeeStreams)
	r.Get("/events", h.handleEvents)

	r.Route("/treasury", func(r chi.Router) {
		r.Get("/", h.handleTreasury)
		r.With(middleware.RequireCaller).Post("/deposit", h.handleDeposit)
		r.With(middleware.RequireCaller).Post("/yield", h.handleAddYield)
		r.With(middleware.RequireCaller).Post("/withdraw", h.handleWithdrawTreasury)
		r.With(middleware.RequireCaller).Post("/yield-rate", h.handleSetYieldRate)
	})

	r.Get("/tax", h.handleTax)
	r.With(middleware.RequireCaller).Post("/tax", h.handleSetTax)

	r.Route("/hr", func(r chi.Router) {
		r.Use(middleware.RequireCaller)
		r.Post("/", h.handleAddHR)
		r.Delete("/{address}", h.handleRemoveHR)
	})
	r.With(middleware.RequireCaller).Post("/ownership", h.handleTransferOwnership)

	r.Route("/streams", func(r chi.Router) {
		r.With(middleware.RequireCaller).Post("/", h.handleCreateStream)
		r.With(middleware.RequireCaller).Post("/finite", h.handleCreateFiniteStream)
		r.With(middleware.RequireCaller).Post("/batch", h.handleCreateBatch)
		r.With(middleware.RequireCaller).Post("/batch/csv", h.handleCreateBatchCSV)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetStream)
			r.Get("/accrued", h.handleAccrued)
			r.Get("/quote", h.handleQuote)
			r.Get("/payouts", h.handlePayouts)
			r.Get("/statement.pdf", h.handleStatement)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCaller)
				r.Post("/pause", h.handlePause)
				r.Post("/resume", h.handleResume)
				r.Post("/bonus", h.handleBonus)
				r.Post("/cancel", h.handleCancel)
				r.Post("/withdraw", h.handleWithdraw)
			})
		})
	})
}

// caller is set by RequireCaller on every mutating route.
func caller(r *http.Request) address.Address {
	c, _ := middleware.GetCaller(r.Context())
	return c
}

func reqID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// record stores a successful mutation. Failures are logged; the command has
// already been committed.
func (h *Handler) record(r *http.Request, action, entityType, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	entry := audit.Entry{
		Actor:      caller(r).String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  reqID(r),
		IP:         r.RemoteAddr,
		After:      after,
	}
	if err := h.Audit.Record(context.WithoutCancel(r.Context()), entry); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err, "requestId", entry.RequestID)
	}
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	api.FailErr(w, err, reqID(r))
}
