package service

import (
	"context"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
)

// OpenSession starts a session from backend tokens.
func (s *ReportService) OpenSession(ctx context.Context, accessToken, refreshToken string) (session.Snapshot, error) {
	return s.sessions.Open(ctx, accessToken, refreshToken)
}

// CurrentSession returns the caller's session snapshot.
func (s *ReportService) CurrentSession(ctx context.Context, id string) (session.Snapshot, error) {
	holder, err := s.sessions.Get(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return holder.Snapshot(), nil
}

// SwitchDivision changes the selected division; an empty id clears the
// selection. Loads still in flight under the previous division are discarded
// and cached page results are dropped.
func (s *ReportService) SwitchDivision(ctx context.Context, id string, division domain.Division) (session.Snapshot, error) {
	division.ID = strings.TrimSpace(division.ID)

	snap, err := s.sessions.SwitchDivision(ctx, id, division)
	if err != nil {
		return session.Snapshot{}, err
	}
	s.invalidateSession(snap.ID)
	return snap, nil
}

// Logout ends a session. Its page state is dropped by the logout hook.
func (s *ReportService) Logout(ctx context.Context, id string) error {
	return s.sessions.Logout(ctx, id)
}
