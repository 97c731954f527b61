package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DashboardClaims grant read-only access to one user's ledger over HTTP.
type DashboardClaims struct {
	UserID string `json:"uid"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

const DashboardScope = "ledger:read"

var ErrEmptySecret = errors.New("dashboard jwt secret is empty")

func GenerateDashboardToken(secret string, userID string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, ErrEmptySecret
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := DashboardClaims{
		UserID: userID,
		Scope:  DashboardScope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Subject:   userID,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, expires, nil
}

func ParseDashboardToken(tokenStr string, secret string) (*DashboardClaims, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	token, err := jwt.ParseWithClaims(tokenStr, &DashboardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*DashboardClaims); ok && token.Valid {
		if claims.Scope != DashboardScope || claims.UserID == "" {
			return nil, fmt.Errorf("invalid token scope")
		}
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
