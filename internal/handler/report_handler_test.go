package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sai-Yarlagadda/grading-14763/internal/dto"
	"github.com/Sai-Yarlagadda/grading-14763/internal/middleware"
	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	"github.com/Sai-Yarlagadda/grading-14763/internal/service"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

type reportServiceMock struct {
	createResp  *dto.ReportJobResponse
	createErr   error
	statusResp  *dto.ReportStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error

	lastReq    dto.ReportRequest
	lastUpload service.ArchiveUpload
	lastActor  string
}

func (m *reportServiceMock) CreateJob(ctx context.Context, upload service.ArchiveUpload, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	m.lastReq = req
	m.lastUpload = upload
	m.lastActor = actorID
	return m.createResp, m.createErr
}

func (m *reportServiceMock) GetStatus(ctx context.Context, id string, actorID string) (*dto.ReportStatusResponse, error) {
	m.lastActor = actorID
	return m.statusResp, m.statusErr
}

func (m *reportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newMultipartContext(t *testing.T, fields map[string][]string, withFile bool) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, writer.WriteField(key, v))
		}
	}
	if withFile {
		part, err := writer.CreateFormFile("file", "submissions.zip")
		require.NoError(t, err)
		_, err = part.Write([]byte("PK\x03\x04 zip bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	return c, w
}

func TestReportHandlerGenerateReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		createResp: &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued, Progress: 0},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newMultipartContext(t, map[string][]string{
		"dueDate":   {"2024-01-10"},
		"dueTime":   {"23:59"},
		"questions": {"1a,1b", ""},
		"format":    {"csv"},
	}, true)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "shweta"})

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "shweta", mockSvc.lastActor)
	assert.Equal(t, []string{"1a,1b", ""}, mockSvc.lastReq.Questions)
	assert.Equal(t, models.ReportFormatCSV, mockSvc.lastReq.Format)
	assert.Equal(t, "submissions.zip", mockSvc.lastUpload.Filename)

	var body struct {
		Data dto.ReportJobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "job-1", body.Data.ID)
}

func TestReportHandlerGenerateReportRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{}
	handler := NewReportHandler(mockSvc)

	c, w := newMultipartContext(t, map[string][]string{"dueDate": {"2024-01-10"}}, false)
	handler.GenerateReport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.lastUpload.Filename)
}

func TestReportHandlerGenerateReportServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "invalid report request")})

	c, w := newMultipartContext(t, map[string][]string{"dueDate": {"bad"}}, true)
	handler.GenerateReport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestReportHandlerReportStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		statusResp: &dto.ReportStatusResponse{ID: "job-1", Status: models.ReportStatusFinished, Progress: 100},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/reports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	handler.ReportStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mockSvc.lastActor)
}

func TestReportHandlerReportStatusForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{statusErr: appErrors.ErrForbidden})

	c, w := newGinContext(http.MethodGet, "/reports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "other"})

	handler.ReportStatus(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerDownloadReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp("", "report*.csv")
	require.NoError(t, err)
	defer os.Remove(file.Name())
	_, _ = file.WriteString("Name,GitHub URL\n")
	_, _ = file.Seek(0, 0)

	mockSvc := &reportServiceMock{
		download: &service.ReportDownload{
			File:        file,
			Filename:    "report.csv",
			Format:      models.ReportFormatCSV,
			ContentType: "text/csv",
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.DownloadReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report.csv")
	assert.Equal(t, "Name,GitHub URL\n", w.Body.String())
}

func TestReportHandlerDownloadReportBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})

	c, w := newGinContext(http.MethodGet, "/export/nope", nil)
	c.Params = gin.Params{{Key: "token", Value: "nope"}}

	handler.DownloadReport(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
