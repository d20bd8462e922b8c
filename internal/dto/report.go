package dto

import "github.com/Sai-Yarlagadda/grading-14763/internal/models"

// ReportRequest captures the POST /reports form fields. questions repeats once per question.
type ReportRequest struct {
	DueDate   string              `form:"dueDate" json:"dueDate" validate:"required,datetime=2006-01-02"`
	DueTime   string              `form:"dueTime" json:"dueTime" validate:"required,datetime=15:04"`
	Questions []string            `form:"questions" json:"questions" validate:"min=1,max=100"`
	Format    models.ReportFormat `form:"format" json:"format" validate:"omitempty,oneof=xlsx csv pdf"`
	DocType   string              `form:"docType" json:"docType" validate:"omitempty,oneof=auto html pdf"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string                `json:"id"`
	Status    models.ReportStatus   `json:"status"`
	Progress  int                   `json:"progress"`
	ResultURL *string               `json:"resultUrl,omitempty"`
	Summary   *models.ReportSummary `json:"summary,omitempty"`
	Error     *string               `json:"error,omitempty"`
}
