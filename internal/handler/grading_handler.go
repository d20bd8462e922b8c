package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sai-Yarlagadda/grading-14763/internal/dto"
	"github.com/Sai-Yarlagadda/grading-14763/internal/middleware"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/response"
)

type gradingService interface {
	CheckPenalty(ctx context.Context, req dto.PenaltyCheckRequest) (*dto.PenaltyCheckResponse, error)
	Assign(req dto.AssignmentRequest) (*dto.AssignmentResponse, error)
}

// GradingHandler serves single lookups that do not need a queued job.
type GradingHandler struct {
	service gradingService
}

// NewGradingHandler constructs handler.
func NewGradingHandler(service gradingService) *GradingHandler {
	return &GradingHandler{service: service}
}

// CheckPenalty godoc
// @Summary Look up one repository's last push and late penalty
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body dto.PenaltyCheckRequest true "Repository and due date"
// @Success 200 {object} response.Envelope
// @Router /penalty/check [post]
func (h *GradingHandler) CheckPenalty(c *gin.Context) {
	var req dto.PenaltyCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid penalty check payload"))
		return
	}
	result, err := h.service.CheckPenalty(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// AssignGraders godoc
// @Summary Preview the round-robin TA assignment
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body dto.AssignmentRequest true "Questions and optional graders"
// @Success 200 {object} response.Envelope
// @Router /assignments [post]
func (h *GradingHandler) AssignGraders(c *gin.Context) {
	var req dto.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	result, err := h.service.Assign(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}
