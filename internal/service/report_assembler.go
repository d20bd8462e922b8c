package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

// DefaultDelimiter separates the student identifier from the rest of a submission filename.
const DefaultDelimiter = "_"

type urlExtractor interface {
	Extract(path, docType string) (string, error)
}

type submissionResolver interface {
	Resolve(ctx context.Context, url string, due time.Time) Resolution
}

// AssembleInput carries everything one report run needs.
type AssembleInput struct {
	Dir        string
	Due        time.Time
	Roster     models.Roster
	Assignment models.Assignment
	DocType    string
}

// ReportAssembler walks a directory of submissions and builds the graded table.
type ReportAssembler struct {
	extractor urlExtractor
	resolver  submissionResolver
	metrics   outcomeRecorder
	logger    *zap.Logger
	delimiter string
}

// NewReportAssembler constructs a ReportAssembler.
func NewReportAssembler(extractor urlExtractor, resolver submissionResolver, metrics outcomeRecorder, logger *zap.Logger, delimiter string) *ReportAssembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &ReportAssembler{
		extractor: extractor,
		resolver:  resolver,
		metrics:   metrics,
		logger:    logger,
		delimiter: delimiter,
	}
}

// Assemble produces one row per roster student, sorted by name. Per-student failures are
// rendered into that student's row; only an unreadable directory fails the run.
func (a *ReportAssembler) Assemble(ctx context.Context, in AssembleInput) (*models.Report, error) {
	entries, err := os.ReadDir(in.Dir)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "submission directory is not readable")
	}

	report := &models.Report{
		Columns:    append(models.BaseColumns(), in.Assignment.Headers()...),
		Assignment: in.Assignment,
	}
	submitted := make(map[string]bool, in.Roster.Len())

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		filename := entry.Name()
		id := a.identifier(filename)
		student, ok := in.Roster.Find(id)
		if !ok {
			a.logger.Sugar().Warnw("submission does not match any roster entry", "file", filename, "id", id,
				"error", appErrors.Clone(appErrors.ErrRosterMismatch, fmt.Sprintf("%q is not on the roster", id)))
			report.Unmatched = append(report.Unmatched, filename)
			a.record(OutcomeUnmatched)
			continue
		}
		if submitted[id] {
			a.logger.Sugar().Warnw("skipping additional submission for student", "file", filename, "id", id)
			a.record(OutcomeDuplicateFile)
			continue
		}
		submitted[id] = true
		report.Rows = append(report.Rows, a.gradeSubmission(ctx, student, filepath.Join(in.Dir, filename), in))
	}

	for _, student := range in.Roster.Entries {
		if submitted[student.ID] {
			continue
		}
		report.Rows = append(report.Rows, models.StudentRecord{ID: student.ID, Name: student.Name})
		a.record(OutcomeUnsubmitted)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].Name < report.Rows[j].Name
	})

	a.logger.Sugar().Infow("report assembled",
		"students", len(report.Rows),
		"submitted", len(submitted),
		"unmatched", len(report.Unmatched),
	)
	return report, nil
}

func (a *ReportAssembler) gradeSubmission(ctx context.Context, student models.RosterEntry, path string, in AssembleInput) (row models.StudentRecord) {
	row = models.StudentRecord{ID: student.ID, Name: student.Name}

	url, err := a.extractor.Extract(path, in.DocType)
	switch {
	case err != nil:
		var extractionErr *ExtractionError
		if errors.As(err, &extractionErr) {
			row.URL = extractionErr.Marker()
		} else {
			row.URL = models.MarkerHTMLExtraction
		}
		row.LastPush = models.MarkerInvalidOrMissingURL
		a.record(OutcomeExtraction)
		return row
	case url == "":
		row.URL = models.MarkerNoURL
		row.LastPush = models.MarkerInvalidOrMissingURL
		a.record(OutcomeNoURL)
		return row
	}

	row.URL = url
	if !IsWellFormedURL(url) {
		row.LastPush = models.MarkerInvalidOrMissingURL
		a.record(OutcomeMalformedURL)
		return row
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Sugar().Errorw("resolving submission panicked", "student", student.ID, "url", url, "panic", r)
			row.LastPush = models.MarkerNotFound
			row.PointsDeducted = models.MarkerRecheck
			a.record(OutcomePanic)
		}
	}()
	res := a.resolver.Resolve(ctx, url, in.Due)
	row.LastPush = res.LastPush
	row.PointsDeducted = res.PointsDeducted
	return row
}

func (a *ReportAssembler) identifier(filename string) string {
	id, _, _ := strings.Cut(filename, a.delimiter)
	return id
}

func (a *ReportAssembler) record(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordSubmission(outcome)
	}
}
