package api

import (
	"errors"
	"log/slog"
	"net/http"

	"paystream/internal/domain/ledger"
	"paystream/internal/platform/address"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: ErrTransferFailed wraps the transferer's cause.
var ledgerErrors = []errorMapping{
	{ledger.ErrTransferFailed, http.StatusBadGateway, "transfer_failed"},
	{ledger.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{ledger.ErrNotEmployee, http.StatusForbidden, "not_employee"},
	{ledger.ErrStreamNotFound, http.StatusNotFound, "stream_not_found"},
	{ledger.ErrStreamInactive, http.StatusConflict, "stream_inactive"},
	{ledger.ErrInsufficientAccrued, http.StatusConflict, "insufficient_accrued"},
	{ledger.ErrInsufficientContractBalance, http.StatusConflict, "insufficient_contract_balance"},
	{ledger.ErrZeroAddress, http.StatusBadRequest, "zero_address"},
	{ledger.ErrZeroAmount, http.StatusBadRequest, "zero_amount"},
	{ledger.ErrZeroRate, http.StatusBadRequest, "zero_rate"},
	{ledger.ErrInvalidTaxConfig, http.StatusBadRequest, "invalid_tax_config"},
	{ledger.ErrInvalidYieldRate, http.StatusBadRequest, "invalid_yield_rate"},
	{ledger.ErrInvalidBatch, http.StatusBadRequest, "invalid_batch"},
	{ledger.ErrInvalidAddress, http.StatusBadRequest, "invalid_address"},
	{ledger.ErrInvalidSalary, http.StatusBadRequest, "invalid_salary"},
	{ledger.ErrOverflow, http.StatusUnprocessableEntity, "overflow"},
	{address.ErrInvalidLength, http.StatusBadRequest, "invalid_address"},
	{address.ErrInvalidHex, http.StatusBadRequest, "invalid_address"},
	{address.ErrInvalidChecksum, http.StatusBadRequest, "invalid_address"},
}

// StatusFor maps a ledger error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	for _, m := range ledgerErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// FailErr writes err using the ledger error table. Unknown errors are logged
// and reported without their message.
func FailErr(w http.ResponseWriter, err error, requestID string) {
	status, code := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err, "requestId", requestID)
		message = "internal error"
	}
	Fail(w, status, code, message, requestID)
}
