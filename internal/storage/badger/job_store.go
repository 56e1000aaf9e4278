package badger

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"pdf-rag/internal/domain"
)

// JobStore implements domain.JobStore on badgerhold.
type JobStore struct {
	db     *DB
	logger arbor.ILogger
}

// NewJobStore creates a job store over db.
func NewJobStore(db *DB, logger arbor.ILogger) *JobStore {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &JobStore{db: db, logger: logger}
}

// SaveJob inserts or replaces a job, stamping UpdatedAt.
func (s *JobStore) SaveJob(_ context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return domain.Errorf(domain.ErrValidation, "job ID is required")
	}
	job.UpdatedAt = time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return domain.Wrap(domain.ErrStore, err, "save job")
	}
	return nil
}

// GetJob returns the job with id, or an ErrNotFound error.
func (s *JobStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "job %s", id)
		}
		return nil, domain.Wrap(domain.ErrStore, err, "get job")
	}
	return &job, nil
}

// ListJobs returns jobs newest first, optionally filtered by state.
func (s *JobStore) ListJobs(_ context.Context, state domain.JobState, limit int) ([]domain.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if state != "" {
		query = query.And("State").Eq(state)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	var jobs []domain.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, domain.Wrap(domain.ErrStore, err, "list jobs")
	}
	return jobs, nil
}

// CountByState returns how many jobs sit in each state.
func (s *JobStore) CountByState(ctx context.Context) (map[domain.JobState]int, error) {
	jobs, err := s.ListJobs(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.JobState]int)
	for _, j := range jobs {
		counts[j.State]++
	}
	return counts, nil
}

// DeleteAll removes every job record.
func (s *JobStore) DeleteAll(_ context.Context) error {
	if err := s.db.Store().DeleteMatching(&domain.Job{}, nil); err != nil {
		return domain.Wrap(domain.ErrStore, err, "delete jobs")
	}
	return nil
}
