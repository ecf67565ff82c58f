package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingToken = errors.New("missing token")

// AuthManager exchanges the static admin key for short-lived HS256 tokens.
type AuthManager struct {
	apiKey string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthManager(apiKey, secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{apiKey: apiKey, secret: []byte(secret), ttl: ttl, now: time.Now}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Enabled is false when no admin key is configured; the admin API is then hidden.
func (a *AuthManager) Enabled() bool { return a.apiKey != "" && len(a.secret) > 0 }

func (a *AuthManager) CheckKey(key string) bool {
	return a.Enabled() && subtle.ConstantTimeCompare([]byte(key), []byte(a.apiKey)) == 1
}

func (a *AuthManager) Mint() (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   "admin",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseFromRequest validates the "Authorization: Bearer <jwt>" header.
func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errMissingToken
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid || claims.Role != "admin" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
