package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/repository"
)

const defaultRecentLimit = 20

type exportRunRepository struct {
	db *DB
}

func NewExportRunRepository(db *DB) repository.ExportRunRepository {
	return &exportRunRepository{db: db}
}

func (r *exportRunRepository) Create(ctx context.Context, run *domain.ExportRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = domain.ExportPending
	}

	query := `
		INSERT INTO export_runs (
			id, session_id, report, format, scope, file_name, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.SessionID,
		run.Report,
		run.Format,
		run.Scope,
		run.FileName,
		run.Status,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}
	return nil
}

func (r *exportRunRepository) Finish(ctx context.Context, id string, result repository.ExportRunResult) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE export_runs
			SET status = $2,
				row_count = $3,
				artifact_key = NULLIF($4, ''),
				error_message = NULLIF($5, ''),
				finished_at = NOW()
			WHERE id = $1
		`
		res, err := tx.ExecContext(ctx, query, id, result.Status, result.RowCount, result.ArtifactKey, result.Error)
		if err != nil {
			return fmt.Errorf("failed to update export run: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", repository.ErrExportRunNotFound, id)
		}
		return nil
	})
}

func (r *exportRunRepository) ListRecent(ctx context.Context, report string, limit int) ([]domain.ExportRun, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	query := `
		SELECT id, session_id, report, format, scope, file_name, row_count,
			artifact_key, status, error_message, created_at, finished_at
		FROM export_runs
		WHERE ($1 = '' OR report = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	runs := []domain.ExportRun{}
	if err := r.db.SelectContext(ctx, &runs, query, report, limit); err != nil {
		return nil, fmt.Errorf("failed to list export runs: %w", err)
	}
	return runs, nil
}
