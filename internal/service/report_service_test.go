package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sai-Yarlagadda/grading-14763/internal/dto"
	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	"github.com/Sai-Yarlagadda/grading-14763/internal/repository"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/jobs"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/storage"
)

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type rosterStub struct {
	names []string
	err   error
}

func (r rosterStub) Roster() (models.Roster, error) {
	if r.err != nil {
		return models.Roster{}, r.err
	}
	return BuildRoster(r.names)
}

type assemblerStub struct {
	err error
}

func (a assemblerStub) Assemble(context.Context, AssembleInput) (*models.Report, error) {
	return nil, a.err
}

type reportFixture struct {
	repo     *repository.MemoryReportJobStore
	queue    *queueStub
	archives *ArchiveService
	exporter *ExportService
	service  *ReportService
	metrics  *MetricsService
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	archives := NewArchiveService(store, zap.NewNop(), ArchiveServiceConfig{MaxFileSize: 1 << 20, TempRoot: t.TempDir()})
	exporter := NewExportService(store, storage.NewSignedURLSigner("secret", time.Hour), ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), nil)
	repo := repository.NewMemoryReportJobStore()
	queue := &queueStub{}
	svc := NewReportService(repo, queue, archives, rosterStub{names: []string{"Abam, Brianna", "Ali, Jonathan"}}, exporter, nil, zap.NewNop(), ReportServiceConfig{
		Graders:  []string{"Shweta", "Sreenidhi"},
		Location: time.UTC,
	})
	return &reportFixture{repo: repo, queue: queue, archives: archives, exporter: exporter, service: svc, metrics: NewMetricsService()}
}

func submissionsUpload(t *testing.T) ArchiveUpload {
	payload := buildZip(t, map[string]string{
		"abambrianna_1_hw.html": `<meta http-equiv="Refresh" content="0; url=https://github.com/abam/hw1">`,
	})
	return ArchiveUpload{Filename: "submissions.zip", Size: int64(len(payload)), Content: bytes.NewReader(payload)}
}

func validRequest() dto.ReportRequest {
	return dto.ReportRequest{DueDate: "2024-01-10", DueTime: "23:59", Questions: []string{"1a,1b", ""}}
}

func (f *reportFixture) worker(assembler reportAssembler) *ReportWorker {
	return NewReportWorker(f.repo, f.archives, rosterStub{names: []string{"Abam, Brianna", "Ali, Jonathan"}}, assembler, f.exporter, f.metrics, zap.NewNop(), ReportWorkerConfig{
		Graders:  []string{"Shweta", "Sreenidhi"},
		Location: time.UTC,
	})
}

func TestReportServiceCreateJob(t *testing.T) {
	f := newReportFixture(t)
	resp, err := f.service.CreateJob(context.Background(), submissionsUpload(t), validRequest(), "ta-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, resp.ID, f.queue.jobs[0].ID)

	job, err := f.repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatXLSX, job.Params.Format)
	assert.Equal(t, DocTypeAuto, job.Params.DocType)
	assert.NotEmpty(t, job.Params.ArchiveKey)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	f := newReportFixture(t)
	cases := map[string]func(*dto.ReportRequest){
		"bad date":           func(r *dto.ReportRequest) { r.DueDate = "10/01/2024" },
		"bad time":           func(r *dto.ReportRequest) { r.DueTime = "noon" },
		"no questions":       func(r *dto.ReportRequest) { r.Questions = nil },
		"duplicate labels":   func(r *dto.ReportRequest) { r.Questions = []string{"1a", "1a"} },
		"unsupported format": func(r *dto.ReportRequest) { r.Format = "docx" },
		"unsupported doc":    func(r *dto.ReportRequest) { r.DocType = "docx" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			_, err := f.service.CreateJob(context.Background(), submissionsUpload(t), req, "")
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
	assert.Empty(t, f.queue.jobs)
}

func TestReportServiceCreateJobWithoutGraders(t *testing.T) {
	f := newReportFixture(t)
	f.service.cfg.Graders = nil
	_, err := f.service.CreateJob(context.Background(), submissionsUpload(t), validRequest(), "")
	assert.ErrorIs(t, err, appErrors.ErrEmptyRoster)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	f := newReportFixture(t)
	f.queue.err = errors.New("queue stopped")
	_, err := f.service.CreateJob(context.Background(), submissionsUpload(t), validRequest(), "")
	require.Error(t, err)

	failed, err := f.repo.ListQueued(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestReportWorkerProducesDownload(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	resp, err := f.service.CreateJob(ctx, submissionsUpload(t), validRequest(), "ta-1")
	require.NoError(t, err)

	inspector := &inspectorStub{times: map[string]time.Time{"https://github.com/abam/hw1": time.Date(2024, 1, 11, 1, 0, 0, 0, time.UTC)}}
	locator := NewSubmissionLocator(inspector, time.UTC, f.metrics, nil)
	assembler := NewReportAssembler(NewURLExtractor(nil), locator, f.metrics, nil, "")
	require.NoError(t, f.worker(assembler).Handle(ctx, f.queue.jobs[0]))

	status, err := f.service.GetStatus(ctx, resp.ID, "ta-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)
	require.NotNil(t, status.Summary)
	assert.Equal(t, 2, status.Summary.Students)
	assert.Equal(t, 1, status.Summary.Submitted)
	assert.Nil(t, status.Error)

	download, err := f.service.ResolveDownload(ctx, extractToken(*status.ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", download.ContentType)

	_, err = f.service.GetStatus(ctx, resp.ID, "someone-else")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ReportsFinished)
}

func TestReportWorkerMarksFailure(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	resp, err := f.service.CreateJob(ctx, submissionsUpload(t), validRequest(), "")
	require.NoError(t, err)
	job, err := f.repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)

	err = f.worker(assemblerStub{err: errors.New("directory vanished")}).Handle(ctx, f.queue.jobs[0])
	require.Error(t, err)

	status, err := f.service.GetStatus(ctx, resp.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, status.Status)
	require.NotNil(t, status.Error)
	assert.Contains(t, *status.Error, "directory vanished")

	_, err = f.archives.Extract(job.Params.ArchiveKey)
	assert.Error(t, err, "uploaded archive should be removed once the job is terminal")
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ReportsFailed)
}

func TestReportServiceResolveDownloadRejectsBadToken(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.service.ResolveDownload(context.Background(), "garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestReportServiceGetStatusMissing(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.service.GetStatus(context.Background(), "missing", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
