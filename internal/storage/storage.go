// Package storage keeps export artifacts in a local directory, an
// S3-compatible bucket or a Google Drive folder.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/andresuchdata/erp-reports/backend-go/internal/config"
)

// ObjectInfo represents metadata for a stored artifact.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the operations the export flow needs from a sink.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, w io.Writer) error
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// New builds the sink selected by cfg.Sink. It returns nil when exports are
// only streamed back to the caller.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Sink {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocalStorage(cfg.LocalDir)
	case "s3":
		return NewS3Client(S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	case "drive":
		return NewDriveClient(ctx, cfg.DriveCredentialsJSON, cfg.DriveFolderID)
	default:
		return nil, fmt.Errorf("unknown storage sink %q", cfg.Sink)
	}
}
