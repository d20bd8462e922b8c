package dto

import "github.com/Sai-Yarlagadda/grading-14763/internal/models"

// PenaltyCheckRequest is the manual single lookup payload.
type PenaltyCheckRequest struct {
	URL     string `json:"url" validate:"required"`
	DueDate string `json:"dueDate" validate:"required"`
	DueTime string `json:"dueTime" validate:"required"`
}

// PenaltyCheckResponse reports the rendered lookup fields.
type PenaltyCheckResponse struct {
	LastPushTime   string          `json:"lastPushTime"`
	PointsDeducted string          `json:"pointsDeducted"`
	Penalty        *models.Penalty `json:"penalty,omitempty"`
}

// AssignmentRequest lists sub-question labels per question. Graders overrides the configured roster.
type AssignmentRequest struct {
	Questions []string `json:"questions" validate:"min=1,max=100"`
	Graders   []string `json:"graders" validate:"omitempty,dive,required"`
}

// AssignmentResponse is the ordered grader assignment.
type AssignmentResponse struct {
	Headers []string                 `json:"headers"`
	Entries []models.AssignmentEntry `json:"entries"`
}
