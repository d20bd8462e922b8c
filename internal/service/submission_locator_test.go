package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/gitrepo"
)

type inspectorStub struct {
	times  map[string]time.Time
	errs   map[string]error
	panics map[string]bool
	calls  []string
}

func (s *inspectorStub) LastCommitTime(_ context.Context, url string) (time.Time, error) {
	s.calls = append(s.calls, url)
	if s.panics[url] {
		panic("inspector exploded")
	}
	if err, ok := s.errs[url]; ok {
		return time.Time{}, err
	}
	if t, ok := s.times[url]; ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: no such repo", gitrepo.ErrRepositoryNotFound)
}

type outcomeRecorderStub struct {
	outcomes map[string]int
}

func (s *outcomeRecorderStub) RecordSubmission(outcome string) {
	if s.outcomes == nil {
		s.outcomes = map[string]int{}
	}
	s.outcomes[outcome]++
}

func TestSubmissionLocatorResolve(t *testing.T) {
	due := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	inspector := &inspectorStub{
		times: map[string]time.Time{"https://github.com/ok/repo": time.Date(2024, 1, 11, 10, 59, 0, 0, time.UTC)},
		errs: map[string]error{
			"https://github.com/auth/repo":  fmt.Errorf("%w: denied", gitrepo.ErrAuthenticationRequired),
			"https://github.com/flaky/repo": errors.New("connection reset"),
		},
	}
	metrics := &outcomeRecorderStub{}
	locator := NewSubmissionLocator(inspector, time.UTC, metrics, nil)

	res := locator.Resolve(context.Background(), "https://github.com/ok/repo", due)
	assert.Equal(t, "2024-01-11 10:59:00", res.LastPush)
	assert.Equal(t, "11", res.PointsDeducted)
	require.NotNil(t, res.Penalty)
	assert.Equal(t, 11, res.Penalty.Points)

	res = locator.Resolve(context.Background(), "https://github.com/missing/repo", due)
	assert.Equal(t, models.MarkerInvalidURL, res.LastPush)
	assert.Equal(t, models.MarkerProcessingError, res.PointsDeducted)

	res = locator.Resolve(context.Background(), "https://github.com/auth/repo", due)
	assert.Equal(t, models.MarkerInvalidURL, res.LastPush)

	res = locator.Resolve(context.Background(), "https://github.com/flaky/repo", due)
	assert.Equal(t, "An error occurred: connection reset", res.LastPush)
	assert.Equal(t, models.MarkerProcessingError, res.PointsDeducted)
	assert.Nil(t, res.Penalty)

	assert.Equal(t, 1, metrics.outcomes[OutcomeResolved])
	assert.Equal(t, 2, metrics.outcomes[OutcomeInvalidURL])
	assert.Equal(t, 1, metrics.outcomes[OutcomeError])
}

func TestSubmissionLocatorRendersInConfiguredZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	pushed := time.Date(2024, 1, 11, 15, 0, 0, 0, time.UTC)
	locator := NewSubmissionLocator(&inspectorStub{times: map[string]time.Time{"https://github.com/a/b": pushed}}, loc, nil, nil)

	res, err := locator.Check(context.Background(), "https://github.com/a/b", "2024-01-11", "09:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-11 10:00:00", res.LastPush)
	assert.Equal(t, "1", res.PointsDeducted)
}

func TestSubmissionLocatorCheck(t *testing.T) {
	inspector := &inspectorStub{}
	locator := NewSubmissionLocator(inspector, time.UTC, nil, nil)

	_, err := locator.Check(context.Background(), "https://github.com/a/b", "10/01/2024", "23:59")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrParse.Code, appErr.Code)

	res, err := locator.Check(context.Background(), "github.com/a/b", "2024-01-10", "23:59")
	require.NoError(t, err)
	assert.Equal(t, models.MarkerInvalidOrMissingURL, res.LastPush)
	assert.Empty(t, res.PointsDeducted)
	assert.Empty(t, inspector.calls)
}
