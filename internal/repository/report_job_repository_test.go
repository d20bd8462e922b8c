package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

func newRedisStore(t *testing.T) (*RedisReportJobStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisReportJobStore(NewCacheRepository(client, nil), time.Hour), srv
}

func exerciseStore(t *testing.T, store reportJobStore) {
	ctx := context.Background()

	job := &models.ReportJob{Params: models.ReportJobParams{DueDate: "2024-01-10", DueTime: "23:59", Format: models.ReportFormatXLSX}}
	require.NoError(t, store.Create(ctx, job))
	require.NotEmpty(t, job.ID)
	assert.Equal(t, models.ReportStatusQueued, job.Status)

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", got.Params.DueDate)

	pending, err := store.ListQueued(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	finished := models.ReportStatusFinished
	progress := 100
	url := "/api/v1/export/token"
	done := time.Now().Add(-2 * time.Hour).UTC()
	msg := "stale"
	require.NoError(t, store.Update(ctx, job.ID, UpdateReportJobParams{ErrorMessage: &msg}))
	clear := ""
	require.NoError(t, store.Update(ctx, job.ID, UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &done,
		Summary:      &models.ReportSummary{Students: 3, Submitted: 2},
	}))

	got, err = store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, got.Status)
	require.NotNil(t, got.ResultURL)
	assert.Equal(t, url, *got.ResultURL)
	assert.Nil(t, got.ErrorMessage)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 2, got.Summary.Submitted)

	pending, err = store.ListQueued(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	expired, err := store.ListFinishedBefore(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, job.ID, expired[0].ID)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, "missing", UpdateReportJobParams{}), appErrors.ErrNotFound)
}

func TestMemoryReportJobStore(t *testing.T) {
	exerciseStore(t, NewMemoryReportJobStore())
}

func TestRedisReportJobStore(t *testing.T) {
	store, _ := newRedisStore(t)
	exerciseStore(t, store)
}

func TestRedisReportJobStoreExpiresJobs(t *testing.T) {
	store, srv := newRedisStore(t)
	ctx := context.Background()
	job := &models.ReportJob{}
	require.NoError(t, store.Create(ctx, job))

	progress := 50
	require.NoError(t, store.Update(ctx, job.ID, UpdateReportJobParams{Progress: &progress}))
	assert.Equal(t, time.Hour, srv.TTL(reportJobKeyPrefix+job.ID))

	srv.FastForward(2 * time.Hour)
	_, err := store.GetByID(ctx, job.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	cache := NewCacheRepository(nil, nil)
	var dest map[string]string
	assert.ErrorIs(t, cache.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, cache.Set(context.Background(), "k", "v", time.Minute))
	keys, err := cache.Keys(context.Background(), "*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
