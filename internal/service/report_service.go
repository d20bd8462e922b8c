package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Sai-Yarlagadda/grading-14763/internal/dto"
	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	"github.com/Sai-Yarlagadda/grading-14763/internal/repository"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/export"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/gitrepo"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/jobs"
)

// JobTypeReport tags queue jobs produced by ReportService.
const JobTypeReport = "submissions_report"

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type archiveStore interface {
	Store(upload ArchiveUpload) (string, error)
	Extract(key string) (*gitrepo.Workspace, error)
	Delete(key string) error
}

type rosterProvider interface {
	Roster() (models.Roster, error)
}

type reportAssembler interface {
	Assemble(ctx context.Context, in AssembleInput) (*models.Report, error)
}

type exportGenerator interface {
	Generate(job *models.ReportJob, report *models.Report) (*ExportResult, error)
}

type reportObserver interface {
	ObserveReportJob(status models.ReportStatus, duration time.Duration)
}

// ReportServiceConfig governs request defaults, queue recovery and cleanup.
type ReportServiceConfig struct {
	Graders         []string
	Location        *time.Location
	DefaultFormat   models.ReportFormat
	DefaultDocType  string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File        *os.File
	Filename    string
	Format      models.ReportFormat
	ContentType string
	ExpiresAt   time.Time
}

// ReportService orchestrates report job lifecycle management.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	archives  archiveStore
	roster    rosterProvider
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, archives archiveStore, roster rosterProvider, exporter *ExportService, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = models.ReportFormatXLSX
	}
	if cfg.DefaultDocType == "" {
		cfg.DefaultDocType = DocTypeAuto
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		archives:  archives,
		roster:    roster,
		exporter:  exporter,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateJob validates the request, stores the upload, records the job and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, upload ArchiveUpload, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	if req.Format == "" {
		req.Format = s.cfg.DefaultFormat
	}
	if req.DocType == "" {
		req.DocType = s.cfg.DefaultDocType
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	key, err := s.archives.Store(upload)
	if err != nil {
		return nil, err
	}

	job := &models.ReportJob{
		Params: models.ReportJobParams{
			DueDate:    req.DueDate,
			DueTime:    req.DueTime,
			Questions:  req.Questions,
			Format:     req.Format,
			DocType:    req.DocType,
			ArchiveKey: key,
		},
		Status:    models.ReportStatusQueued,
		Progress:  0,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		_ = s.archives.Delete(key)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeReport}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		_ = s.archives.Delete(key)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.logger.Sugar().Infow("report job queued", "job_id", job.ID, "questions", len(req.Questions), "format", req.Format)
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata to clients. Jobs created by an authenticated user are visible only to them.
func (s *ReportService) GetStatus(ctx context.Context, id string, actorID string) (*dto.ReportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.CreatedBy != "" && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ReportStatusResponse{
		ID:       job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Summary:  job.Summary,
	}
	if job.ResultURL != nil {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		Format:      job.Params.Format,
		ContentType: s.exporter.ContentType(job.Params.Format),
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs still held by a persistent job store.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeReport}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
	if len(pending) > 0 {
		s.logger.Sugar().Infow("recovered queued report jobs", "count", len(pending))
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Sugar().Warnw("cleanup list failed", "error", err)
		return
	}
	for _, job := range expired {
		if job.ResultURL == nil {
			continue
		}
		token := extractToken(*job.ResultURL)
		if token == "" {
			continue
		}
		_, relPath, _, err := s.exporter.ParseToken(token, true)
		if err != nil {
			continue
		}
		if err := s.exporter.Delete(relPath); err != nil {
			s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
		}
	}
	removed, err := s.exporter.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
		return
	}
	if len(removed) > 0 {
		s.logger.Sugar().Infow("expired report files removed", "count", len(removed))
	}
}

func (s *ReportService) validateRequest(req dto.ReportRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	if _, err := ParseDueDateTime(req.DueDate, req.DueTime, s.cfg.Location); err != nil {
		return err
	}
	questions, err := ParseQuestionSet(req.Questions)
	if err != nil {
		return err
	}
	if _, err := AssignGraders(questions, s.cfg.Graders); err != nil {
		return err
	}
	if !export.ValidFormat(string(req.Format)) {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if s.roster == nil {
		return appErrors.Clone(appErrors.ErrValidation, "no roster configured")
	}
	if _, err := s.roster.Roster(); err != nil {
		return err
	}
	return nil
}

func (s *ReportService) load(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorkerConfig carries the run-wide grading inputs.
type ReportWorkerConfig struct {
	Graders    []string
	Location   *time.Location
	MaxRetries int
}

// ReportWorker bridges queue jobs to the assembler and exporter.
type ReportWorker struct {
	repo      reportJobStore
	archives  archiveStore
	roster    rosterProvider
	assembler reportAssembler
	exporter  exportGenerator
	metrics   reportObserver
	logger    *zap.Logger
	cfg       ReportWorkerConfig
}

// NewReportWorker constructs a worker. MaxRetries of zero marks a job failed on its first error.
func NewReportWorker(repo reportJobStore, archives archiveStore, roster rosterProvider, assembler reportAssembler, exporter exportGenerator, metrics reportObserver, logger *zap.Logger, cfg ReportWorkerConfig) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &ReportWorker{
		repo:      repo,
		archives:  archives,
		roster:    roster,
		assembler: assembler,
		exporter:  exporter,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	started := time.Now()
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, summary, err := w.run(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.cfg.MaxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
			w.discardArchive(record)
			w.observe(models.ReportStatusFailed, started)
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	w.discardArchive(record)
	w.observe(models.ReportStatusFinished, started)
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		Summary:      summary,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}

func (w *ReportWorker) run(ctx context.Context, record *models.ReportJob) (*ExportResult, *models.ReportSummary, error) {
	params := record.Params
	due, err := ParseDueDateTime(params.DueDate, params.DueTime, w.cfg.Location)
	if err != nil {
		return nil, nil, err
	}
	questions, err := ParseQuestionSet(params.Questions)
	if err != nil {
		return nil, nil, err
	}
	assignment, err := AssignGraders(questions, w.cfg.Graders)
	if err != nil {
		return nil, nil, err
	}
	roster, err := w.roster.Roster()
	if err != nil {
		return nil, nil, err
	}

	ws, err := w.archives.Extract(params.ArchiveKey)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			w.logger.Sugar().Warnw("failed to release submissions workspace", "job_id", record.ID, "error", err)
		}
	}()

	progress := 30
	if err := w.repo.Update(ctx, record.ID, repository.UpdateReportJobParams{Progress: &progress}); err != nil {
		w.logger.Sugar().Warnw("failed to update job progress", "job_id", record.ID, "error", err)
	}

	report, err := w.assembler.Assemble(ctx, AssembleInput{
		Dir:        ws.Dir,
		Due:        due,
		Roster:     roster,
		Assignment: assignment,
		DocType:    params.DocType,
	})
	if err != nil {
		return nil, nil, err
	}

	result, err := w.exporter.Generate(record, report)
	if err != nil {
		return nil, nil, fmt.Errorf("export report: %w", err)
	}
	return result, summarize(report), nil
}

func (w *ReportWorker) discardArchive(record *models.ReportJob) {
	if record.Params.ArchiveKey == "" {
		return
	}
	if err := w.archives.Delete(record.Params.ArchiveKey); err != nil {
		w.logger.Sugar().Warnw("failed to delete uploaded archive", "job_id", record.ID, "error", err)
	}
}

func (w *ReportWorker) observe(status models.ReportStatus, started time.Time) {
	if w.metrics != nil {
		w.metrics.ObserveReportJob(status, time.Since(started))
	}
}

func summarize(report *models.Report) *models.ReportSummary {
	summary := &models.ReportSummary{Students: len(report.Rows), Unmatched: report.Unmatched}
	for _, row := range report.Rows {
		if row.URL != "" {
			summary.Submitted++
		}
	}
	return summary
}
