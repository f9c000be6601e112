package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned for an unknown trailer job ID.
var ErrJobNotFound = errors.New("sessionstore: trailer job not found")

// JobStatus is the lifecycle position of a trailer job.
type JobStatus string

// Trailer job states. A job moves pending -> processing -> success|failed.
const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobSuccess    JobStatus = "success"
	JobFailed     JobStatus = "failed"
)

// maxJobMessage caps the stored failure message.
const maxJobMessage = 1000

// TrailerJob tracks one generate-and-upload request made through the API.
type TrailerJob struct {
	ID        string    `json:"job_id"`
	OwnerID   string    `json:"account"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Status    JobStatus `json:"status"`
	VideoID   string    `json:"video_id,omitempty"`
	WatchURL  string    `json:"watch_url,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	sqlInsertJob = `INSERT INTO trailer_jobs
		(job_id, owner_id, title, author, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlGetJob = `SELECT job_id, owner_id, title, author, status, video_id,
		watch_url, message, created_at, updated_at FROM trailer_jobs WHERE job_id = ?`

	sqlUpdateJob = `UPDATE trailer_jobs
		SET status = ?, video_id = ?, watch_url = ?, message = ?, updated_at = ?
		WHERE job_id = ?`

	// Jobs cut short by a restart can never finish.
	sqlFailInterrupted = `UPDATE trailer_jobs
		SET status = 'failed', message = 'interrupted by restart', updated_at = ?
		WHERE status IN ('pending', 'processing')`
)

// CreateJob records a new pending job.
func (s *Store) CreateJob(ctx context.Context, ownerID, title, author string) (TrailerJob, error) {
	now := s.nowFunc().UTC()

	job := TrailerJob{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Author:    author,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.db.ExecContext(ctx, sqlInsertJob,
		job.ID, ownerID, title, author, string(JobPending), now.UnixNano(), now.UnixNano(),
	); err != nil {
		return TrailerJob{}, fmt.Errorf("sessionstore: creating trailer job: %w", err)
	}

	return job, nil
}

// GetJob returns one job, or ErrJobNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (TrailerJob, error) {
	var (
		job              TrailerJob
		status           string
		created, updated int64
	)

	err := s.db.QueryRowContext(ctx, sqlGetJob, id).Scan(
		&job.ID, &job.OwnerID, &job.Title, &job.Author, &status,
		&job.VideoID, &job.WatchURL, &job.Message, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return TrailerJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	if err != nil {
		return TrailerJob{}, fmt.Errorf("sessionstore: loading trailer job %s: %w", id, err)
	}

	job.Status = JobStatus(status)
	job.CreatedAt = time.Unix(0, created).UTC()
	job.UpdatedAt = time.Unix(0, updated).UTC()

	return job, nil
}

// MarkProcessing moves a job into processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.updateJob(ctx, id, JobProcessing, "", "", "")
}

// MarkSuccess records the uploaded video of a job.
func (s *Store) MarkSuccess(ctx context.Context, id, videoID, watchURL string) error {
	return s.updateJob(ctx, id, JobSuccess, videoID, watchURL, "")
}

// MarkFailed records why a job failed. Long messages are truncated.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	if len(message) > maxJobMessage {
		message = message[:maxJobMessage]
	}

	return s.updateJob(ctx, id, JobFailed, "", "", message)
}

func (s *Store) updateJob(ctx context.Context, id string, status JobStatus, videoID, watchURL, message string) error {
	res, err := s.db.ExecContext(ctx, sqlUpdateJob,
		string(status), videoID, watchURL, message, s.nowFunc().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("sessionstore: updating trailer job %s: %w", id, err)
	}

	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	s.logger.Debug("trailer job updated", slog.String("job_id", id), slog.String("status", string(status)))

	return nil
}

// FailInterruptedJobs marks every unfinished job as failed. Called at server
// start: no worker survives a restart.
func (s *Store) FailInterruptedJobs(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, sqlFailInterrupted, s.nowFunc().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sessionstore: failing interrupted jobs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sessionstore: counting interrupted jobs: %w", err)
	}

	return int(n), nil
}
