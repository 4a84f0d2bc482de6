package shared

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"paystream/internal/platform/address"
	"paystream/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{
		Field:  field,
		Reason: reason,
	})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Address parses a required account address. The zero address parses fine;
// the ledger decides whether it is acceptable.
func (v *Validator) Address(field, raw string) address.Address {
	if strings.TrimSpace(raw) == "" {
		v.Add(field, "is required")
		return address.Zero
	}
	addr, err := address.Parse(raw)
	if err != nil {
		v.Add(field, err.Error())
		return address.Zero
	}
	return addr
}

// Amount reports a missing amount. Zero is left to the ledger.
func (v *Validator) Amount(field string, a Amount) uint64 {
	if !a.Set {
		v.Add(field, "is required")
	}
	return a.Value
}

func (v *Validator) BasisPoints(field string, a Amount) uint16 {
	if !a.Set {
		v.Add(field, "is required")
		return 0
	}
	if a.Value > 65535 {
		v.Add(field, "must fit in 16 bits")
		return 0
	}
	return uint16(a.Value)
}

// StreamID parses a path parameter.
func (v *Validator) StreamID(field, raw string) uint64 {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		v.Add(field, "must be a stream id")
		return 0
	}
	return id
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": issues},
		requestID,
	)
}
