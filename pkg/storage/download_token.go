package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, tampered and expired download tokens.
var ErrInvalidToken = errors.New("storage: invalid download token")

// DownloadClaims are embedded in a signed download token.
type DownloadClaims struct {
	Path    string `json:"path"`
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

// DownloadSigner issues short-lived HS256 tokens that reference a stored file.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDownloadSigner returns a signer; ttl defaults to 30 minutes.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for path owned by ownerID and its expiry.
func (s *DownloadSigner) Sign(id, path, ownerID string) (string, time.Time, error) {
	if id == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("sign download: id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("sign download: secret missing")
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := DownloadClaims{
		Path:    path,
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates the token signature and expiry.
func (s *DownloadSigner) Parse(token string) (*DownloadClaims, error) {
	claims := &DownloadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Path == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
