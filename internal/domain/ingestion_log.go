package domain

import (
	"time"

	"github.com/google/uuid"
)

// UploadKind names the file type an ingestion log entry came from.
type UploadKind string

const (
	UploadKindEmployees  UploadKind = "employees"
	UploadKindAttendance UploadKind = "attendance"
)

// IngestionLogEntry captures row level issues that occur during ingestion.
type IngestionLogEntry struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     int64      `json:"tenant_id"`
	Kind         UploadKind `json:"kind"`
	FileName     string     `json:"file_name"`
	RowNumber    *int       `json:"row_number,omitempty"`
	ErrorMessage string     `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
}
