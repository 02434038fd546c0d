package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bakurah/investors-portal-api/internal/models"
)

const jobColumns = "id, user_id, recipient, template_id, channel, language, payload, status, attempts, max_attempts, last_error, scheduled_at, created_at, updated_at"

// NotificationRepository persists outbox jobs and in-app notifications.
// Outbox rows are inserted by RequestRepository.Transition inside the status
// change transaction; this repository owns their delivery lifecycle.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// GetJob fetches one outbox job.
func (r *NotificationRepository) GetJob(ctx context.Context, id string) (*models.NotificationJob, error) {
	query := fmt.Sprintf("SELECT %s FROM notification_jobs WHERE id = $1 LIMIT 1", jobColumns)
	var job models.NotificationJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimJob moves a queued job to processing and bumps its attempt counter.
// Zero rows affected means another worker holds the job or it already
// finished, and sql.ErrNoRows is returned so the caller skips it.
func (r *NotificationRepository) ClaimJob(ctx context.Context, id string) (*models.NotificationJob, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE notification_jobs SET status = $1, attempts = attempts + 1, updated_at = $2 WHERE id = $3 AND status = $4",
		models.JobProcessing, now, id, models.JobQueued)
	if err != nil {
		return nil, fmt.Errorf("claim notification job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	return r.GetJob(ctx, id)
}

// CompleteJob marks a job as delivered.
func (r *NotificationRepository) CompleteJob(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notification_jobs SET status = $1, last_error = NULL, updated_at = $2 WHERE id = $3",
		models.JobCompleted, time.Now().UTC(), id)
	return err
}

// RequeueJob returns a failed delivery to the queue for another attempt,
// recording the error that caused it.
func (r *NotificationRepository) RequeueJob(ctx context.Context, id, deliveryErr string, scheduledAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notification_jobs SET status = $1, last_error = $2, scheduled_at = $3, updated_at = $4 WHERE id = $5",
		models.JobQueued, deliveryErr, scheduledAt, time.Now().UTC(), id)
	return err
}

// FailJob marks a job as permanently failed after exhausting its attempts.
func (r *NotificationRepository) FailJob(ctx context.Context, id, deliveryErr string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notification_jobs SET status = $1, last_error = $2, updated_at = $3 WHERE id = $4",
		models.JobFailed, deliveryErr, time.Now().UTC(), id)
	return err
}

// ListSweepableJobs returns queued jobs whose scheduled time has passed.
// The sweep recovers jobs whose in-process enqueue was lost to a crash.
func (r *NotificationRepository) ListSweepableJobs(ctx context.Context, olderThan time.Time, limit int) ([]models.NotificationJob, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM notification_jobs
	WHERE status = $1 AND scheduled_at <= $2 AND attempts < max_attempts
	ORDER BY scheduled_at ASC LIMIT %d`, jobColumns, limit)
	var jobsList []models.NotificationJob
	if err := r.db.SelectContext(ctx, &jobsList, query, models.JobQueued, olderThan); err != nil {
		return nil, fmt.Errorf("list sweepable jobs: %w", err)
	}
	return jobsList, nil
}

// ReleaseStaleJobs returns processing jobs untouched since stuckSince to the
// queue. A worker that crashed mid-delivery leaves its claim behind; the sweep
// releases it so the job is retried instead of hanging forever.
func (r *NotificationRepository) ReleaseStaleJobs(ctx context.Context, stuckSince time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notification_jobs SET status = $1, updated_at = $2 WHERE status = $3 AND updated_at <= $4",
		models.JobQueued, time.Now().UTC(), models.JobProcessing, stuckSince)
	if err != nil {
		return 0, fmt.Errorf("release stale jobs: %w", err)
	}
	return result.RowsAffected()
}

// ExpireExhaustedJobs fails queued jobs that have used up their attempts so
// they stop matching the sweep query.
func (r *NotificationRepository) ExpireExhaustedJobs(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notification_jobs SET status = $1, last_error = COALESCE(last_error, 'delivery attempts exhausted'), updated_at = $2 WHERE status = $3 AND attempts >= max_attempts",
		models.JobFailed, time.Now().UTC(), models.JobQueued)
	if err != nil {
		return 0, fmt.Errorf("expire exhausted jobs: %w", err)
	}
	return result.RowsAffected()
}

// ListForUser returns a user's in-app notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	condition := "user_id = $1"
	if unreadOnly {
		condition += " AND read_at IS NULL"
	}
	query := fmt.Sprintf(`SELECT id, user_id, title, body, request_id, read_at, created_at
	FROM notifications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		condition, pageSize, (page-1)*pageSize)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", condition), userID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnread returns a user's unread in-app notification count.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL", userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead stamps one notification as read. Marking an already-read
// notification affects zero rows and is not an error.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = $1 WHERE id = $2 AND user_id = $3 AND read_at IS NULL",
		time.Now().UTC(), id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkAllRead stamps every unread notification for a user.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = $1 WHERE user_id = $2 AND read_at IS NULL",
		time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return result.RowsAffected()
}
