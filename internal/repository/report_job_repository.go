package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

const reportJobKeyPrefix = "report_job:"

// ReportJobStore is implemented by the in-memory and Redis job stores.
type ReportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

var (
	_ ReportJobStore = (*MemoryReportJobStore)(nil)
	_ ReportJobStore = (*RedisReportJobStore)(nil)
)

// UpdateReportJobParams defines the mutable fields.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	Summary      *models.ReportSummary
	ErrorMessage *string
	FinishedAt   *time.Time
}

func (p UpdateReportJobParams) apply(job *models.ReportJob) {
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.Progress != nil {
		job.Progress = *p.Progress
	}
	if p.ResultURL != nil {
		url := *p.ResultURL
		job.ResultURL = &url
	}
	if p.Summary != nil {
		summary := *p.Summary
		job.Summary = &summary
	}
	if p.ErrorMessage != nil {
		if *p.ErrorMessage == "" {
			job.ErrorMessage = nil
		} else {
			msg := *p.ErrorMessage
			job.ErrorMessage = &msg
		}
	}
	if p.FinishedAt != nil {
		at := *p.FinishedAt
		job.FinishedAt = &at
	}
}

func prepareNewJob(job *models.ReportJob) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
}

func queued(jobs []models.ReportJob, limit int) []models.ReportJob {
	var out []models.ReportJob
	for _, job := range jobs {
		if job.Status == models.ReportStatusQueued {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func finishedBefore(jobs []models.ReportJob, cutoff time.Time, limit int) []models.ReportJob {
	var out []models.ReportJob
	for _, job := range jobs {
		if job.Status == models.ReportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.Before(*out[j].FinishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MemoryReportJobStore keeps job metadata in process memory.
type MemoryReportJobStore struct {
	mu   sync.RWMutex
	jobs map[string]models.ReportJob
}

// NewMemoryReportJobStore constructs an empty store.
func NewMemoryReportJobStore() *MemoryReportJobStore {
	return &MemoryReportJobStore{jobs: map[string]models.ReportJob{}}
}

// Create stores a new job, filling ID, status and creation time when unset.
func (s *MemoryReportJobStore) Create(_ context.Context, job *models.ReportJob) error {
	prepareNewJob(job)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// GetByID returns a copy of the job.
func (s *MemoryReportJobStore) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &job, nil
}

// Update applies params to the stored job.
func (s *MemoryReportJobStore) Update(_ context.Context, id string, params UpdateReportJobParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	params.apply(&job)
	s.jobs[id] = job
	return nil
}

// ListQueued returns queued jobs oldest first.
func (s *MemoryReportJobStore) ListQueued(_ context.Context, limit int) ([]models.ReportJob, error) {
	return queued(s.snapshot(), limit), nil
}

// ListFinishedBefore returns finished jobs completed before cutoff.
func (s *MemoryReportJobStore) ListFinishedBefore(_ context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return finishedBefore(s.snapshot(), cutoff, limit), nil
}

// Delete drops a job.
func (s *MemoryReportJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *MemoryReportJobStore) snapshot() []models.ReportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ReportJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out
}

// RedisReportJobStore keeps job metadata in Redis so status survives API restarts until ttl.
type RedisReportJobStore struct {
	cache *CacheRepository
	ttl   time.Duration
}

// NewRedisReportJobStore constructs a Redis backed store. Jobs expire after ttl.
func NewRedisReportJobStore(cache *CacheRepository, ttl time.Duration) *RedisReportJobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisReportJobStore{cache: cache, ttl: ttl}
}

// Create stores a new job, filling ID, status and creation time when unset.
func (s *RedisReportJobStore) Create(ctx context.Context, job *models.ReportJob) error {
	prepareNewJob(job)
	if err := s.cache.Set(ctx, reportJobKeyPrefix+job.ID, job, s.ttl); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID loads a job.
func (s *RedisReportJobStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	if err := s.cache.Get(ctx, reportJobKeyPrefix+id, &job); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return &job, nil
}

// Update applies params, keeping the job's remaining ttl.
func (s *RedisReportJobStore) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	params.apply(job)
	if err := s.cache.Set(ctx, reportJobKeyPrefix+id, job, redis.KeepTTL); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// ListQueued returns queued jobs oldest first.
func (s *RedisReportJobStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return queued(all, limit), nil
}

// ListFinishedBefore returns finished jobs completed before cutoff.
func (s *RedisReportJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return finishedBefore(all, cutoff, limit), nil
}

func (s *RedisReportJobStore) all(ctx context.Context) ([]models.ReportJob, error) {
	keys, err := s.cache.Keys(ctx, reportJobKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	jobs := make([]models.ReportJob, 0, len(keys))
	for _, key := range keys {
		var job models.ReportJob
		if err := s.cache.Get(ctx, key, &job); err != nil {
			if errors.Is(err, appErrors.ErrCacheMiss) {
				continue
			}
			return nil, fmt.Errorf("list report jobs: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
