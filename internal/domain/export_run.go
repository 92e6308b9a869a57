package domain

import "time"

// ExportRun is the persisted record of one export request.
type ExportRun struct {
	ID           string       `db:"id" json:"id"`
	SessionID    string       `db:"session_id" json:"session_id"`
	Report       string       `db:"report" json:"report"`
	Format       string       `db:"format" json:"format"`
	Scope        string       `db:"scope" json:"scope"`
	FileName     string       `db:"file_name" json:"file_name"`
	RowCount     int          `db:"row_count" json:"row_count"`
	ArtifactKey  *string      `db:"artifact_key" json:"artifact_key,omitempty"`
	Status       ExportStatus `db:"status" json:"status"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
