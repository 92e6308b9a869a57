package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/erpclient"
	"github.com/andresuchdata/erp-reports/backend-go/internal/export"
	"github.com/andresuchdata/erp-reports/backend-go/internal/fetcher"
	"github.com/andresuchdata/erp-reports/backend-go/internal/filter"
	"github.com/andresuchdata/erp-reports/backend-go/internal/paginate"
	"github.com/andresuchdata/erp-reports/backend-go/internal/report"
	"github.com/andresuchdata/erp-reports/backend-go/internal/repository"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ExportQuery struct {
	ListQuery
	Format string
	Scope  string
}

// ExportResult is a rendered export file.
type ExportResult struct {
	RunID       string
	FileName    string
	ContentType string
	Data        []byte
	Rows        int
	// ArtifactKey is set when the file was also kept in the artifact sink.
	ArtifactKey string
}

// Export renders the visible page or the whole collection of a report. An
// empty table fails with export.ErrEmptyTable and no file is produced.
func (s *ReportService) Export(ctx context.Context, q ExportQuery) (*ExportResult, error) {
	def, err := report.Lookup(q.Report)
	if err != nil {
		return nil, err
	}

	req := filter.ExportRequest{
		Format: strings.ToLower(strings.TrimSpace(q.Format)),
		Scope:  strings.ToLower(strings.TrimSpace(q.Scope)),
	}
	if req.Scope == "" {
		req.Scope = string(export.ScopeAll)
	}
	if err := filter.Validate(req); err != nil {
		return nil, err
	}
	writer, err := export.WriterFor(req.Format, export.Options{PDFFont: s.cfg.PDFFont, PDFBoldFont: s.cfg.PDFBoldFont})
	if err != nil {
		return nil, err
	}

	page, perPage, err := s.paging(q.Page, q.PerPage)
	if err != nil {
		return nil, err
	}
	filt, err := s.resolveFilter(def, q.ListQuery)
	if err != nil {
		return nil, err
	}
	if filt == nil {
		return nil, export.ErrEmptyTable
	}

	holder, snap, err := s.session(ctx, q.SessionID)
	if err != nil {
		return nil, err
	}

	rows, err := s.exportRows(ctx, def, snap, filt, export.Scope(req.Scope), page, perPage)
	if err != nil {
		return nil, s.fail(snap.ID, def.Name, err)
	}
	if !holder.Current(snap.Version) {
		return nil, fetcher.ErrSuperseded
	}

	result := &ExportResult{
		RunID:       uuid.NewString(),
		FileName:    export.FileName(def.Name, filt, writer.Format()),
		ContentType: writer.ContentType(),
		Rows:        len(rows),
	}

	run := &domain.ExportRun{
		ID:        result.RunID,
		SessionID: snap.ID,
		Report:    def.Name,
		Format:    writer.Format(),
		Scope:     req.Scope,
		FileName:  result.FileName,
		Status:    domain.ExportProcessing,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		log.Warn().Err(err).Str("report", def.Name).Msg("export run not recorded")
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, writer, def.Title, def.Columns, rows); err != nil {
		s.finishRun(ctx, run.ID, repository.ExportRunResult{Status: domain.ExportFailed, Error: err.Error()})
		if errors.Is(err, export.ErrEmptyTable) {
			return nil, err
		}
		return nil, fmt.Errorf("render %s export: %w", def.Name, err)
	}
	result.Data = buf.Bytes()

	if s.sink != nil {
		key := fmt.Sprintf("exports/%s/%s_%s", def.Name, result.RunID[:8], result.FileName)
		if err := s.sink.UploadObject(ctx, key, result.Data, result.ContentType); err != nil {
			s.finishRun(ctx, run.ID, repository.ExportRunResult{Status: domain.ExportFailed, RowCount: len(rows), Error: err.Error()})
			return nil, fmt.Errorf("store export artifact: %w", err)
		}
		result.ArtifactKey = key
	}

	s.finishRun(ctx, run.ID, repository.ExportRunResult{
		Status:      domain.ExportCompleted,
		RowCount:    len(rows),
		ArtifactKey: result.ArtifactKey,
	})

	log.Info().
		Str("report", def.Name).
		Str("format", writer.Format()).
		Str("scope", req.Scope).
		Int("rows", len(rows)).
		Msg("export rendered")
	return result, nil
}

// exportRows returns the rows in scope. The whole collection is fetched
// without paging parameters. Page scope clamps the page into range.
func (s *ReportService) exportRows(ctx context.Context, def domain.ReportDefinition, snap session.Snapshot, filt *domain.Filter, scope export.Scope, page, perPage int) ([]domain.Row, error) {
	if scope == export.ScopePage && def.Pagination == domain.PaginateServer {
		res, err := s.fetchCollection(ctx, def, snap, filt, &erpclient.Paging{Page: page, Limit: perPage})
		if err != nil {
			return nil, err
		}
		// A page past the end exports the last page, as client-paged reports do.
		if last := paginate.TotalPages(res.Total, perPage); res.Total > 0 && page > last {
			if res, err = s.fetchCollection(ctx, def, snap, filt, &erpclient.Paging{Page: last, Limit: perPage}); err != nil {
				return nil, err
			}
		}
		return res.Items, nil
	}

	res, err := s.fetchCollection(ctx, def, snap, filt, nil)
	if err != nil {
		return nil, err
	}
	if scope == export.ScopeAll {
		return res.Items, nil
	}

	state := paginate.FromTotal(len(res.Items), page, perPage)
	visible, _ := paginate.Paginate(res.Items, state.CurrentPage, perPage)
	return visible, nil
}

func (s *ReportService) finishRun(ctx context.Context, id string, result repository.ExportRunResult) {
	if err := s.runs.Finish(ctx, id, result); err != nil {
		log.Warn().Err(err).Str("run", id).Msg("export run not updated")
	}
}

// RecentExports lists the latest recorded export runs of a report.
func (s *ReportService) RecentExports(ctx context.Context, reportName string, limit int) ([]domain.ExportRun, error) {
	if reportName != "" {
		def, err := report.Lookup(reportName)
		if err != nil {
			return nil, err
		}
		reportName = def.Name
	}
	return s.runs.ListRecent(ctx, reportName, limit)
}
