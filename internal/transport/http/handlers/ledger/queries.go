package ledgerhandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"paystream/internal/domain/ledger"
	"paystream/internal/platform/address"
	"paystream/internal/transport/http/api"
	"paystream/internal/transport/http/shared"
)

type ledgerResponse struct {
	ledger.Globals
	Available uint64 `json:"available"`
	Decimals  int32  `json:"decimals"`
}

type accessResponse struct {
	ledger.AccessView
	Address *address.Address `json:"address,omitempty"`
	IsHR    *bool            `json:"isHR,omitempty"`
	IsOwner *bool            `json:"isOwner,omitempty"`
}

type balanceResponse struct {
	Address address.Address `json:"address"`
	Balance uint64          `json:"balance"`
}

type accruedResponse struct {
	ID      uint64 `json:"id"`
	Accrued uint64 `json:"accrued"`
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	g := h.Service.Globals()
	api.Success(w, ledgerResponse{
		Globals:   g,
		Available: h.Service.Treasury().Available,
		Decimals:  h.Service.Decimals(),
	}, reqID(r))
}

func (h *Handler) handleTreasury(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Service.Treasury(), reqID(r))
}

func (h *Handler) handleTax(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Service.Tax(), reqID(r))
}

// handleAccess answers ?address= with that address's roles as well.
func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	resp := accessResponse{AccessView: h.Service.Access()}
	if raw := r.URL.Query().Get("address"); raw != "" {
		v := shared.NewValidator()
		addr := v.Address("address", raw)
		if v.Reject(w, reqID(r)) {
			return
		}
		isHR := h.Service.IsHR(addr)
		isOwner := h.Service.IsOwner(addr)
		resp.Address, resp.IsHR, resp.IsOwner = &addr, &isHR, &isOwner
	}
	api.Success(w, resp, reqID(r))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	addr := v.Address("address", chi.URLParam(r, "address"))
	if v.Reject(w, reqID(r)) {
		return
	}
	api.Success(w, balanceResponse{Address: addr, Balance: h.Service.BalanceOf(addr)}, reqID(r))
}

func (h *Handler) handleEmployeeStreams(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	employee := v.Address("address", chi.URLParam(r, "address"))
	if v.Reject(w, reqID(r)) {
		return
	}
	ids := h.Service.StreamIDsForEmployee(employee)
	views := make([]ledger.StreamView, 0, len(ids))
	for _, id := range ids {
		view, err := h.Service.Stream(id)
		if err != nil {
			fail(w, r, err)
			return
		}
		views = append(views, view)
	}
	api.Success(w, views, reqID(r))
}

func (h *Handler) handleGetStream(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Stream(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, view, reqID(r))
}

func (h *Handler) handleAccrued(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	accrued, err := h.Service.Accrued(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, accruedResponse{ID: id, Accrued: accrued}, reqID(r))
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	quote, err := h.Service.Quote(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, quote, reqID(r))
}

func (h *Handler) handlePayouts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	payouts, err := h.Service.Payouts(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if payouts == nil {
		payouts = []ledger.Payout{}
	}
	api.Success(w, payouts, reqID(r))
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	if h.Statements == nil {
		api.Fail(w, http.StatusNotImplemented, "statements_disabled", "statements are not configured", reqID(r))
		return
	}
	pdf, err := h.Statements.Generate(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Attachment(w, "application/pdf", "stream-"+strconv.FormatUint(id, 10)+".pdf", pdf)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	page := shared.ParsePagination(r, v, 100, 500)
	q := r.URL.Query()
	filter := ledger.EventFilter{Kind: ledger.EventKind(q.Get("kind"))}
	if raw := q.Get("streamId"); raw != "" {
		id := v.StreamID("streamId", raw)
		filter.StreamID = &id
	}
	if raw := q.Get("account"); raw != "" {
		filter.Account = v.Address("account", raw)
	}
	if v.Reject(w, reqID(r)) {
		return
	}

	events, total, err := h.Service.Events(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		fail(w, r, err)
		return
	}
	if events == nil {
		events = []ledger.EventRecord{}
	}
	api.Paged(w, events, total, reqID(r))
}
