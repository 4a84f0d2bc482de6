package ledgerhandler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"paystream/internal/domain/ledger"
	"paystream/internal/platform/address"
	"paystream/internal/transport/http/api"
	"paystream/internal/transport/http/shared"
)

type amountRequest struct {
	Amount shared.Amount `json:"amount"`
}

type bpsRequest struct {
	BasisPoints shared.Amount `json:"bps"`
}

type taxRequest struct {
	Vault       string        `json:"vault"`
	BasisPoints shared.Amount `json:"bps"`
}

type accountRequest struct {
	Account string `json:"account"`
}

type ownershipRequest struct {
	NewOwner string `json:"newOwner"`
}

type createStreamRequest struct {
	Employee       string        `json:"employee"`
	RatePerSecond  shared.Amount `json:"ratePerSecond"`
	TotalDeposited shared.Amount `json:"totalDeposited"`
}

type batchRequest struct {
	Employees []string        `json:"employees"`
	Rates     []shared.Amount `json:"rates"`
}

type idsResponse struct {
	IDs []uint64 `json:"ids"`
}

type idResponse struct {
	ID uint64 `json:"id"`
}

func (h *Handler) decodeAmount(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	var req amountRequest
	if !shared.DecodeJSON(w, r, &req, reqID(r)) {
		return 0, false
	}
	v := shared.NewValidator()
	amount := v.Amount("amount", req.Amount)
	if v.Reject(w, reqID(r)) {
		return 0, false
	}
	return amount, true
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}
	if err := h.Service.Deposit(r.Context(), caller(r), amount); err != nil {
		fail(w, r, err)
		return
	}
	treasury := h.Service.Treasury()
	h.record(r, "treasury.deposit", "treasury", "", map[string]uint64{"amount": amount})
	api.Success(w, treasury, reqID(r))
}

func (h *Handler) handleAddYield(w http.ResponseWriter, r *http.Request) {
	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}
	if err := h.Service.AddYield(r.Context(), caller(r), amount); err != nil {
		fail(w, r, err)
		return
	}
	treasury := h.Service.Treasury()
	h.record(r, "treasury.yield", "treasury", "", map[string]uint64{"amount": amount})
	api.Success(w, treasury, reqID(r))
}

func (h *Handler) handleWithdrawTreasury(w http.ResponseWriter, r *http.Request) {
	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}
	if err := h.Service.WithdrawTreasury(r.Context(), caller(r), amount); err != nil {
		fail(w, r, err)
		return
	}
	treasury := h.Service.Treasury()
	h.record(r, "treasury.withdraw", "treasury", "", map[string]uint64{"amount": amount})
	api.Success(w, treasury, reqID(r))
}

func (h *Handler) handleSetYieldRate(w http.ResponseWriter, r *http.Request) {
	var req bpsRequest
	if !shared.DecodeJSON(w, r, &req, reqID(r)) {
		return
	}
	v := shared.NewValidator()
	bps := v.BasisPoints("bps", req.BasisPoints)
	if v.Reject(w, reqID(r)) {
		return
	}
	if err := h.Service.SetSimulatedYieldRate(r.Context(), caller(r), bps); err != nil {
		fail(w, r, err)
		return
	}
	treasury := h.Service.Treasury()
	h.record(r, "treasury.yield_rate", "treasury", "", map[string]uint16{"bps": bps})
	api.Success(w, treasury, reqID(r))
}

func (h *Handler) handleSetTax(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if !shared.DecodeJSON(w, r, &req, reqID(r)) {
		return
	}
	v := shared.NewValidator()
	vault := v.Address("vault", req.Vault)
	bps := v.BasisPoints("bps", req.BasisPoints)
	if v.Reject(w, reqID(r)) {
		return
	}
	if err := h.Service.SetTaxConfig(r.Context(), caller(r), vault, bps); err != nil {
		fail(w, r, err)
		return
	}
	tax := h.Service.Tax()
	h.record(r, "tax.update", "tax", "", tax)
	api.Success(w, tax, reqID(r))
}

func (h *Handler) handleAddHR(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !shared.DecodeJSON(w, r, &req, reqID(r)) {
		return
	}
	v := shared.NewValidator()
	account := v.Address("account", req.Account)
	if v.Reject(w, reqID(r)) {
		return
	}
	if err := h.Service.AddHR(r.Context(), caller(r), account); err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, "hr.add", "hr", account.String(), nil)
	api.Success(w, h.Service.Access(), reqID(r))
}

func (h *Handler) handleRemoveHR(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	account := v.Address("address", chi.URLParam(r, "address"))
	if v.Reject(w, reqID(r)) {
		return
	}
	if err := h.Service.RemoveHR(r.Context(), caller(r), account); err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, "hr.remove", "hr", account.String(), nil)
	api.Success(w, h.Service.Access(), reqID(r))
}

func (h *Handler) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req ownershipRequest
	if !shared.DecodeJSON(w, r, &req, reqID(r)) {
		return
	}
	v := shared.NewValidator()
	newOwner := v.Address("newOwner", req.NewOwner)
	if v.Reject(w, reqID(r)) {
		return
	}
	if err := h.Service.TransferOwnership(r.Context(), caller(r), newOwner); err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, "ownership.transfer", "ledger", newOwner.String(), nil)
	api.Success(w, h.Service.Access(), reqID(r))
}

func (h *Handler) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	var req createStreamRequest
	if !shared.DecodeJSON(w, r, &req, reqID(r)) {
		return
	}
	v := shared.NewValidator()
	employee := v.Address("employee", req.Employee)
	rate := v.Amount("ratePerSecond", req.RatePerSecond)
	if req.TotalDeposited.Set {
		v.Add("totalDeposited", "use /streams/finite for finite streams")
	}
	if v.Reject(w, reqID(r)) {
		return
	}
	id, err := h.Service.CreateStream(r.Context(), caller(r), employee, rate)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.created(w, r, "stream.create", id)
}

func (h *Handler) handleCreateFiniteStream(w http.ResponseWriter, r *http.Request) {
	var req createStreamRequest
	if !shared.DecodeJSON(w, r, &req, reqID(r)) {
		return
	}
	v := shared.NewValidator()
	employee := v.Address("employee", req.Employee)
	rate := v.Amount("ratePerSecond", req.RatePerSecond)
	total := v.Amount("totalDeposited", req.TotalDeposited)
	if v.Reject(w, reqID(r)) {
		return
	}
	id, err := h.Service.CreateFiniteStream(r.Context(), caller(r), employee, rate, total)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.created(w, r, "stream.create_finite", id)
}

func (h *Handler) created(w http.ResponseWriter, r *http.Request, action string, id uint64) {
	view, err := h.Service.Stream(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, action, "stream", strconv.FormatUint(id, 10), view.Stream)
	api.Created(w, view, reqID(r))
}

func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !shared.DecodeJSON(w, r, &req, reqID(r)) {
		return
	}
	v := shared.NewValidator()
	employees := make([]address.Address, len(req.Employees))
	for i, raw := range req.Employees {
		employees[i] = v.Address("employees["+strconv.Itoa(i)+"]", raw)
	}
	rates := make([]uint64, len(req.Rates))
	for i, a := range req.Rates {
		rates[i] = v.Amount("rates["+strconv.Itoa(i)+"]", a)
	}
	if v.Reject(w, reqID(r)) {
		return
	}
	entries, err := ledger.BatchFromLists(employees, rates)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.batch(w, r, entries)
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request, entries []ledger.BatchEntry) {
	ids, err := h.Service.CreateStreamBatch(r.Context(), caller(r), entries)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, "stream.create_batch", "stream", "", idsResponse{IDs: ids})
	api.Created(w, idsResponse{IDs: ids}, reqID(r))
}

func (h *Handler) handleCreateBatchCSV(w http.ResponseWriter, r *http.Request) {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "text/csv") && !strings.HasPrefix(contentType, "text/plain") {
		api.Fail(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "send the batch as text/csv", reqID(r))
		return
	}
	entries, err := ledger.ParseBatchCSV(r.Body, h.Service.Decimals())
	if err != nil {
		fail(w, r, err)
		return
	}
	h.batch(w, r, entries)
}

func (h *Handler) streamID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	v := shared.NewValidator()
	id := v.StreamID("id", chi.URLParam(r, "id"))
	if v.Reject(w, reqID(r)) {
		return 0, false
	}
	return id, true
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	if err := h.Service.PauseStream(r.Context(), caller(r), id); err != nil {
		fail(w, r, err)
		return
	}
	h.streamResult(w, r, "stream.pause", id)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	if err := h.Service.ResumeStream(r.Context(), caller(r), id); err != nil {
		fail(w, r, err)
		return
	}
	h.streamResult(w, r, "stream.resume", id)
}

func (h *Handler) handleBonus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}
	if err := h.Service.AddStreamBonus(r.Context(), caller(r), id, amount); err != nil {
		fail(w, r, err)
		return
	}
	h.streamResult(w, r, "stream.bonus", id)
}

func (h *Handler) streamResult(w http.ResponseWriter, r *http.Request, action string, id uint64) {
	view, err := h.Service.Stream(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, action, "stream", strconv.FormatUint(id, 10), view.Stream)
	api.Success(w, view, reqID(r))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	settlement, err := h.Service.CancelStream(r.Context(), caller(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, "stream.cancel", "stream", strconv.FormatUint(id, 10), settlement)
	api.Success(w, settlement, reqID(r))
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.streamID(w, r)
	if !ok {
		return
	}
	settlement, err := h.Service.Withdraw(r.Context(), caller(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.record(r, "stream.withdraw", "stream", strconv.FormatUint(id, 10), settlement)
	api.Success(w, settlement, reqID(r))
}
