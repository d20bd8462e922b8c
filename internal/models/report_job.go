package models

import "time"

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob tracks one asynchronous report run.
type ReportJob struct {
	ID           string          `json:"id"`
	Params       ReportJobParams `json:"params"`
	Status       ReportStatus    `json:"status"`
	Progress     int             `json:"progress"`
	ResultURL    *string         `json:"result_url,omitempty"`
	Summary      *ReportSummary  `json:"summary,omitempty"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

// ReportJobParams are the request options a worker needs to rebuild the run.
type ReportJobParams struct {
	DueDate    string       `json:"dueDate"`
	DueTime    string       `json:"dueTime"`
	Questions  []string     `json:"questions"`
	Format     ReportFormat `json:"format"`
	DocType    string       `json:"docType"`
	ArchiveKey string       `json:"archiveKey"`
}

// ReportSummary counts what a finished run produced.
type ReportSummary struct {
	Students  int      `json:"students"`
	Submitted int      `json:"submitted"`
	Unmatched []string `json:"unmatched,omitempty"`
}
