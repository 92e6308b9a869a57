package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/erpclient"
	"github.com/andresuchdata/erp-reports/backend-go/internal/report"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"golang.org/x/sync/errgroup"
)

// Lookups loads the filter bar options concurrently. Any failure fails the
// whole call.
func (s *ReportService) Lookups(ctx context.Context, sessionID string) (*domain.Lookups, error) {
	_, snap, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := &domain.Lookups{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.lookup(gctx, snap, report.CustomerSource, true, &out.Customers))
	g.Go(s.lookup(gctx, snap, report.WarehouseSource, true, &out.Warehouses))
	g.Go(s.lookup(gctx, snap, report.DivisionSource, false, &out.Divisions))

	if err := g.Wait(); err != nil {
		return nil, s.fail(snap.ID, "lookups", err)
	}
	return out, nil
}

func (s *ReportService) lookup(ctx context.Context, snap session.Snapshot, src report.Source, divisionScoped bool, dst *[]domain.Row) func() error {
	return func() error {
		q := url.Values{}
		if divisionScoped {
			erpclient.ApplyDivision(q, snap)
		}
		res, err := s.client.List(ctx, snap, src.Endpoint, q, src.PayloadField)
		if err != nil {
			return fmt.Errorf("load %s: %w", src.Endpoint, err)
		}
		*dst = res.Items
		return nil
	}
}
