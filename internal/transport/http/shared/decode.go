package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"paystream/internal/transport/http/api"
)

// DecodeJSON reads one JSON object into dst and writes the failure response
// itself. It returns false when the handler should stop.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		api.Fail(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", requestID)
	case errors.Is(err, io.EOF):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "request body is empty", requestID)
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	}
	return false
}
