package shared

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errAmount = errors.New("amount must be a non-negative integer in base units")

// Amount is a base-unit quantity that decodes from either a JSON number or a
// decimal string, so clients can send values above 2^53 without loss.
type Amount struct {
	Value uint64
	Set   bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errAmount
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return errAmount
	}
	*a = Amount{Value: v, Set: true}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(a.Value, 10)), nil
}
