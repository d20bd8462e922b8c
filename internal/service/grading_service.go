package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Sai-Yarlagadda/grading-14763/internal/dto"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

type penaltyChecker interface {
	Check(ctx context.Context, url, date, clock string) (Resolution, error)
}

// GradingService serves the one-off lookups: a single repository penalty check and a grader
// assignment preview.
type GradingService struct {
	checker   penaltyChecker
	graders   []string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingService constructs a GradingService. graders is the default TA roster.
func NewGradingService(checker penaltyChecker, graders []string, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradingService{checker: checker, graders: graders, validator: validate, logger: logger}
}

// CheckPenalty resolves one repository URL against a due date and time.
func (s *GradingService) CheckPenalty(ctx context.Context, req dto.PenaltyCheckRequest) (*dto.PenaltyCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid penalty check payload")
	}
	res, err := s.checker.Check(ctx, req.URL, req.DueDate, req.DueTime)
	if err != nil {
		return nil, err
	}
	s.logger.Sugar().Debugw("penalty checked", "url", req.URL, "outcome", res.Outcome)
	return &dto.PenaltyCheckResponse{
		LastPushTime:   res.LastPush,
		PointsDeducted: res.PointsDeducted,
		Penalty:        res.Penalty,
	}, nil
}

// Assign cycles graders over the requested sub-questions.
func (s *GradingService) Assign(req dto.AssignmentRequest) (*dto.AssignmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	questions, err := ParseQuestionSet(req.Questions)
	if err != nil {
		return nil, err
	}
	graders := req.Graders
	if len(graders) == 0 {
		graders = s.graders
	}
	assignment, err := AssignGraders(questions, graders)
	if err != nil {
		return nil, err
	}
	return &dto.AssignmentResponse{Headers: assignment.Headers(), Entries: assignment.Entries}, nil
}
