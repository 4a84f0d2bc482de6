package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"paystream/internal/platform/address"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the caller by account address. Roles are not carried in
// the token; the ledger decides them at call time.
type Claims struct {
	Address string `json:"addr"`
	jwt.RegisteredClaims
}

// Caller returns the checksummed address the token was issued for.
func (c *Claims) Caller() (address.Address, error) {
	addr, err := address.Parse(c.Address)
	if err != nil {
		return address.Zero, err
	}
	if addr.IsZero() {
		return address.Zero, ErrInvalidToken
	}
	return addr, nil
}

func GenerateToken(secret, issuer string, addr address.Address, ttl time.Duration, now time.Time) (string, error) {
	if addr.IsZero() {
		return "", ErrInvalidToken
	}
	claims := Claims{
		Address: addr.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   addr.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
