package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/export"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/storage"
)

const reportTitle = "Submissions Tracker"

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders reports and persists the files behind signed download links.
type ExportService struct {
	storage   fileStorage
	renderers map[string]export.Renderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. A nil renderer set uses export.Renderers.
func NewExportService(storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers map[string]export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderers == nil {
		renderers = export.Renderers()
	}
	return &ExportService{
		storage:   storage,
		renderers: renderers,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Render turns report into file bytes of the given format.
func (s *ExportService) Render(report *models.Report, format models.ReportFormat) ([]byte, string, error) {
	return RenderReport(s.renderers, report, format)
}

// RenderReport renders report with the matching renderer and returns bytes plus content type.
func RenderReport(renderers map[string]export.Renderer, report *models.Report, format models.ReportFormat) ([]byte, string, error) {
	if report == nil {
		return nil, "", fmt.Errorf("report nil")
	}
	if format == "" {
		format = models.ReportFormatXLSX
	}
	renderer, err := export.ForFormat(renderers, string(format))
	if err != nil {
		return nil, "", err
	}
	payload, err := renderer.Render(ReportDataset(report))
	if err != nil {
		return nil, "", err
	}
	return payload, renderer.ContentType(), nil
}

// ReportDataset flattens a report into export rows.
func ReportDataset(report *models.Report) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, report.Values(row))
	}
	return export.Dataset{Title: reportTitle, Headers: report.Columns, Rows: rows}
}

// Generate renders the report for job and stores it behind a signed download URL.
func (s *ExportService) Generate(job *models.ReportJob, report *models.Report) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	payload, _, err := s.Render(report, job.Params.Format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	s.logger.Sugar().Infow("report exported", "job_id", job.ID, "path", relPath, "format", job.Params.Format)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ContentType returns the MIME type served for format.
func (s *ExportService) ContentType(format models.ReportFormat) string {
	if renderer, ok := s.renderers[string(format)]; ok {
		return renderer.ContentType()
	}
	return "application/octet-stream"
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	due := sanitizeFilename(job.Params.DueDate)
	format := job.Params.Format
	if format == "" {
		format = models.ReportFormatXLSX
	}
	return fmt.Sprintf("reports/submissions_%s_%s_%s.%s", due, timestamp, shortID(job.ID), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return sanitizeFilename(id)
}
