package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/gitrepo"
)

// Resolution outcomes, used as metric labels.
const (
	OutcomeResolved      = "resolved"
	OutcomeInvalidURL    = "invalid_url"
	OutcomeError         = "error"
	OutcomeMalformedURL  = "malformed_url"
	OutcomeNoURL         = "no_url"
	OutcomeExtraction    = "extraction_error"
	OutcomePanic         = "panic"
	OutcomeUnsubmitted   = "unsubmitted"
	OutcomeUnmatched     = "unmatched"
	OutcomeDuplicateFile = "duplicate"
)

type commitInspector interface {
	LastCommitTime(ctx context.Context, url string) (time.Time, error)
}

type outcomeRecorder interface {
	RecordSubmission(outcome string)
}

// Resolution is the rendered last-push and penalty fields for one URL.
type Resolution struct {
	LastPush       string          `json:"lastPushTime"`
	PointsDeducted string          `json:"pointsDeducted"`
	Penalty        *models.Penalty `json:"penalty,omitempty"`
	Outcome        string          `json:"outcome"`
}

// SubmissionLocator turns a repository URL into its last push time and late penalty.
type SubmissionLocator struct {
	inspector commitInspector
	location  *time.Location
	metrics   outcomeRecorder
	logger    *zap.Logger
}

// NewSubmissionLocator constructs a SubmissionLocator. Times render in loc.
func NewSubmissionLocator(inspector commitInspector, loc *time.Location, metrics outcomeRecorder, logger *zap.Logger) *SubmissionLocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &SubmissionLocator{inspector: inspector, location: loc, metrics: metrics, logger: logger}
}

// Resolve looks up url and scores it against due. Failures are rendered into the result.
func (l *SubmissionLocator) Resolve(ctx context.Context, url string, due time.Time) Resolution {
	pushed, err := l.inspector.LastCommitTime(ctx, url)
	if err != nil {
		res := Resolution{PointsDeducted: models.MarkerProcessingError, Outcome: OutcomeError}
		if errors.Is(err, gitrepo.ErrRepositoryNotFound) || errors.Is(err, gitrepo.ErrAuthenticationRequired) {
			res.LastPush = models.MarkerInvalidURL
			res.Outcome = OutcomeInvalidURL
		} else {
			res.LastPush = models.MarkerErrorOccurredPrefix + err.Error()
		}
		l.logger.Sugar().Warnw("repository lookup failed", "url", url, "outcome", res.Outcome, "error", err)
		l.record(res.Outcome)
		return res
	}

	penalty := PenaltyFor(HoursLate(pushed, due))
	l.record(OutcomeResolved)
	return Resolution{
		LastPush:       pushed.In(l.location).Format(models.LastPushLayout),
		PointsDeducted: penalty.String(),
		Penalty:        &penalty,
		Outcome:        OutcomeResolved,
	}
}

// Check is the manual single lookup: parse the due date and time, then resolve url.
func (l *SubmissionLocator) Check(ctx context.Context, url, date, clock string) (Resolution, error) {
	due, err := ParseDueDateTime(date, clock, l.location)
	if err != nil {
		return Resolution{}, err
	}
	if !IsWellFormedURL(url) {
		l.record(OutcomeMalformedURL)
		return Resolution{LastPush: models.MarkerInvalidOrMissingURL, Outcome: OutcomeMalformedURL}, nil
	}
	return l.Resolve(ctx, url, due), nil
}

func (l *SubmissionLocator) record(outcome string) {
	if l.metrics != nil {
		l.metrics.RecordSubmission(outcome)
	}
}
