package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
)

var ErrExportRunNotFound = errors.New("export run not found")

// ExportRunResult is what an export run ends with.
type ExportRunResult struct {
	Status      domain.ExportStatus
	RowCount    int
	ArtifactKey string
	Error       string
}

type ExportRunRepository interface {
	Create(ctx context.Context, run *domain.ExportRun) error
	Finish(ctx context.Context, id string, result ExportRunResult) error
	ListRecent(ctx context.Context, report string, limit int) ([]domain.ExportRun, error)
}

type noopExportRunRepository struct{}

// NewNoopExportRunRepository is used when no database is configured.
func NewNoopExportRunRepository() ExportRunRepository {
	return noopExportRunRepository{}
}

func (noopExportRunRepository) Create(ctx context.Context, run *domain.ExportRun) error {
	return nil
}

func (noopExportRunRepository) Finish(ctx context.Context, id string, result ExportRunResult) error {
	return nil
}

func (noopExportRunRepository) ListRecent(ctx context.Context, report string, limit int) ([]domain.ExportRun, error) {
	return []domain.ExportRun{}, nil
}
