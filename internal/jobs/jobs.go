package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Jobs expire from Redis a day after creation.
const jobTTL = 24 * time.Hour

// keepResults caps the per-item result tail stored with a job.
const keepResults = 100

var ErrNotFound = errors.New("job not found")

// Result is one per-payslip outcome inside a job.
type Result struct {
	PayslipID uint   `json:"payslip_id"`
	Email     string `json:"employee_email"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Job is the Redis-stored state of one background send.
type Job struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Status       JobStatus      `json:"status"`
	CompanyID    uint           `json:"company_id"`
	UserID       uint           `json:"user_id"`
	Total        int            `json:"total"`
	Completed    int            `json:"completed"`
	SuccessCount int            `json:"success_count"`
	ErrorCount   int            `json:"error_count"`
	Results      []Result       `json:"results"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

// Store keeps job state in Redis so progress survives across requests.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func jobKey(id string) string { return "job:" + id }

// Create registers a new pending job and returns its id.
func (s *Store) Create(ctx context.Context, jobType string, total int, companyID, userID uint, metadata map[string]any) (string, error) {
	job := Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    StatusPending,
		CompanyID: companyID,
		UserID:    userID,
		Total:     total,
		Results:   []Result{},
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.save(ctx, &job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Get loads a job; ErrNotFound when it expired or never existed.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := s.rdb.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// SetStatus moves the job through its lifecycle, stamping started/finished.
func (s *Store) SetStatus(ctx context.Context, id string, status JobStatus, errMsg string) error {
	return s.update(ctx, id, func(job *Job) {
		job.Status = status
		now := time.Now().UTC()
		switch status {
		case StatusRunning:
			if job.StartedAt == nil {
				job.StartedAt = &now
			}
		case StatusCompleted, StatusFailed:
			job.FinishedAt = &now
		}
		if errMsg != "" {
			job.ErrorMessage = errMsg
		}
	})
}

// Increment advances the progress counters and appends a result, keeping
// only the most recent tail.
func (s *Store) Increment(ctx context.Context, id string, res Result) error {
	return s.update(ctx, id, func(job *Job) {
		job.Completed++
		if res.Success {
			job.SuccessCount++
		} else {
			job.ErrorCount++
		}
		job.Results = append(job.Results, res)
		if len(job.Results) > keepResults {
			job.Results = job.Results[len(job.Results)-keepResults:]
		}
	})
}

func (s *Store) update(ctx context.Context, id string, mutate func(*Job)) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	mutate(job)
	return s.save(ctx, job)
}

func (s *Store) save(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := s.rdb.Set(ctx, jobKey(job.ID), raw, jobTTL).Err(); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}
