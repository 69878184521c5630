package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"analysis-gateway/internal/domain"
)

// ===== Bearer token primitives =====

// TokenManager signs and verifies the HS256 bearer tokens handed out by /auth.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) Issue(userID int64, username string) (string, error) {
	claims := jwt.MapClaims{
		"exp":      jwt.NewNumericDate(m.now().Add(m.ttl)),
		"username": username,
		"userID":   userID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the user id claim.
func (m *TokenManager) Verify(tok string) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	// older issuers used different claim names for the same id
	for _, key := range []string{"userID", "user_id", "userId", "sub"} {
		if v, ok := claims[key]; ok {
			if id, err := claimInt(v); err == nil && id > 0 {
				return id, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: invalid token - missing user ID", domain.ErrUnauthorized)
}

func claimInt(v any) (int64, error) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, errors.New("fractional user id")
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	default:
		return 0, errors.New("unsupported claim type")
	}
}

// bearerToken extracts the token from "Authorization: Bearer <jwt>".
func bearerToken(r *http.Request) (string, bool) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(hdr[7:])
	return tok, tok != ""
}
