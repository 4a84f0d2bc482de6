// Package address normalizes 20-byte account identifiers to their EIP-55
// checksummed hex form so that the ledger can compare identities by value.
package address

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

var (
	ErrInvalidLength   = errors.New("address must be 0x followed by 40 hex characters")
	ErrInvalidHex      = errors.New("address contains non-hex characters")
	ErrInvalidChecksum = errors.New("address checksum mismatch")
)

// Address is a checksummed account identifier. The empty value is the zero
// identity.
type Address string

const Zero Address = ""

const zeroHex = "0x0000000000000000000000000000000000000000"

// Parse accepts all-lowercase, all-uppercase or correctly checksummed input.
// Mixed case that does not match the checksum is rejected.
func Parse(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return Zero, ErrInvalidLength
	}
	body := raw[2:]
	if len(body) != 40 {
		return Zero, ErrInvalidLength
	}
	lower := strings.ToLower(body)
	if _, err := hex.DecodeString(lower); err != nil {
		return Zero, ErrInvalidHex
	}
	sum := checksum(lower)
	if body != lower && body != strings.ToUpper(body) && "0x"+body != sum {
		return Zero, ErrInvalidChecksum
	}
	if sum == zeroHex {
		return Zero, nil
	}
	return Address(sum), nil
}

// MustParse is Parse for literals in tests and genesis config.
func MustParse(raw string) Address {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) IsZero() bool {
	return a == Zero || string(a) == zeroHex
}

func (a Address) String() string {
	if a == Zero {
		return zeroHex
	}
	return string(a)
}

func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := h.Sum(nil)

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(lowerHex); i++ {
		c := lowerHex[i]
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
