package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/report"
	"github.com/rs/zerolog/log"
)

// Entity actions offered by a result table row.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

type MutationQuery struct {
	// ListQuery carries the filter and page to re-fetch after a write. When it
	// has no filter, the page's last submitted filter is used.
	ListQuery
	Action  string
	ID      string
	Payload map[string]any
}

// Mutate performs one entity action. Writes invalidate the report's cached
// collections and return the re-fetched list.
func (s *ReportService) Mutate(ctx context.Context, q MutationQuery) (*domain.MutationResult, error) {
	def, err := report.Lookup(q.Report)
	if err != nil {
		return nil, err
	}

	action := strings.ToLower(strings.TrimSpace(q.Action))
	id := strings.TrimSpace(q.ID)

	method, path, err := entityRequest(def, action, id)
	if err != nil {
		return nil, err
	}

	page, perPage, err := s.paging(q.Page, q.PerPage)
	if err != nil {
		return nil, err
	}

	holder, snap, err := s.session(ctx, q.SessionID)
	if err != nil {
		return nil, err
	}

	result := &domain.MutationResult{Action: action, ID: id}

	if action == ActionView {
		entity, err := s.client.Get(ctx, snap, path)
		if err != nil {
			return nil, s.fail(snap.ID, def.Name, err)
		}
		result.Entity = entity
		return result, nil
	}

	var payload any
	if action != ActionDelete && q.Payload != nil {
		payload = q.Payload
	}
	entity, err := s.client.Send(ctx, snap, method, path, payload)
	if err != nil {
		return nil, s.fail(snap.ID, def.Name, err)
	}
	result.Entity = entity
	if result.ID == "" {
		result.ID = report.RowKey(def, entity, 0)
	}

	log.Info().Str("report", def.Name).Str("action", action).Str("id", result.ID).Msg("entity changed")

	if err := s.collections.InvalidateReport(ctx, def.Name); err != nil {
		log.Warn().Err(err).Str("report", def.Name).Msg("collection cache invalidate failed")
	}

	fetch := s.fetcherFor(snap.ID, def.Name)
	fetch.Invalidate()
	s.viewFor(snap.ID, def.Name).stale()

	filt := fetch.Filter()
	if q.hasFilter() {
		if filt, err = s.resolveFilter(def, q.ListQuery); err != nil {
			return nil, err
		}
	}
	if filt == nil {
		return result, nil
	}

	list, err := s.list(ctx, def, holder, snap, filt, page, perPage)
	if err != nil {
		return nil, err
	}
	result.List = list
	return result, nil
}

func entityRequest(def domain.ReportDefinition, action, id string) (string, string, error) {
	needID := func() error {
		if id == "" {
			return &domain.ValidationError{Field: "id", Message: "id is required"}
		}
		return nil
	}

	// Reports without a create endpoint are read-only.
	switch action {
	case ActionView, ActionUpdate:
		if def.DetailPath == "" || (action == ActionUpdate && def.CreatePath == "") {
			return "", "", fmt.Errorf("%w: %s on %s", domain.ErrNotSupported, action, def.Name)
		}
		if err := needID(); err != nil {
			return "", "", err
		}
		method := http.MethodGet
		if action == ActionUpdate {
			method = http.MethodPut
		}
		return method, report.EntityPath(def.DetailPath, id), nil
	case ActionCreate:
		if def.CreatePath == "" {
			return "", "", fmt.Errorf("%w: %s on %s", domain.ErrNotSupported, action, def.Name)
		}
		return http.MethodPost, def.CreatePath, nil
	case ActionDelete:
		if def.DeletePath == "" {
			return "", "", fmt.Errorf("%w: %s on %s", domain.ErrNotSupported, action, def.Name)
		}
		if err := needID(); err != nil {
			return "", "", err
		}
		return http.MethodDelete, report.EntityPath(def.DeletePath, id), nil
	default:
		return "", "", &domain.ValidationError{Field: "action", Message: "unknown action " + action}
	}
}
