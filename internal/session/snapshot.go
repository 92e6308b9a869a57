// Package session holds the per-user context the gateway threads through every
// request: backend tokens and the selected division.
//
// A Holder is the single writer for one session. Readers take an immutable,
// versioned Snapshot, and a load started under one version is discarded if the
// session changed before it finished.
package session

import (
	"errors"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrTokenExpired = errors.New("session token expired")
)

// Storage keys for persisted session fields.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyDivisionID   = "currentDivisionId"
	KeyDivisionName = "currentDivisionName"
	keyVersion      = "version"
)

type Snapshot struct {
	ID           string `json:"session_id"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	DivisionID   string `json:"division_id,omitempty"`
	DivisionName string `json:"division_name,omitempty"`
	Version      uint64 `json:"version"`
}

// Active reports whether the snapshot carries an access token.
func (s Snapshot) Active() bool {
	return s.AccessToken != ""
}

// AllDivisions reports whether the sentinel "all divisions" id is selected.
func (s Snapshot) AllDivisions() bool {
	return s.DivisionID == domain.AllDivisionsID
}

// Division returns the selected division, if any.
func (s Snapshot) Division() (domain.Division, bool) {
	if s.DivisionID == "" {
		return domain.Division{}, false
	}
	return domain.Division{ID: s.DivisionID, Name: s.DivisionName}, true
}

// TokenSource yields the snapshot's access token as a bearer token.
func (s Snapshot) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	})
}

// Check fails fast for a missing or already expired access token.
func (s Snapshot) Check(now time.Time) error {
	if !s.Active() {
		return ErrNoSession
	}
	if TokenExpired(s.AccessToken, now) {
		return ErrTokenExpired
	}
	return nil
}

// TokenExpired reads the exp claim of a JWT without verifying its signature.
// Opaque (non-JWT) tokens and tokens without exp are treated as unexpired;
// the backend stays the authority on those.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
