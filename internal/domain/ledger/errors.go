package ledger

import "errors"

var (
	ErrUnauthorized                = errors.New("caller is not authorized for this action")
	ErrZeroAddress                 = errors.New("address must not be zero")
	ErrZeroAmount                  = errors.New("amount must be greater than zero")
	ErrZeroRate                    = errors.New("rate per second must be greater than zero")
	ErrInvalidTaxConfig            = errors.New("invalid tax configuration")
	ErrInvalidYieldRate            = errors.New("simulated yield rate exceeds 10000 basis points")
	ErrStreamNotFound              = errors.New("stream not found")
	ErrStreamInactive              = errors.New("stream is not in a state that allows this action")
	ErrNotEmployee                 = errors.New("caller is not the stream employee")
	ErrInsufficientAccrued         = errors.New("nothing accrued to withdraw")
	ErrInsufficientContractBalance = errors.New("treasury balance cannot cover this amount")
	ErrInvalidBatch                = errors.New("batch must be non-empty with one rate per employee")
	ErrInvalidAddress              = errors.New("invalid address")
	ErrInvalidSalary               = errors.New("invalid monthly salary")
	ErrOverflow                    = errors.New("amount overflows ledger arithmetic")
	ErrTransferFailed              = errors.New("value transfer failed")
)
