package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/notification"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/jobs"
	"github.com/bakurah/investors-portal-api/pkg/mailer"
)

type notificationStore interface {
	GetJob(ctx context.Context, id string) (*models.NotificationJob, error)
	ClaimJob(ctx context.Context, id string) (*models.NotificationJob, error)
	CompleteJob(ctx context.Context, id string) error
	RequeueJob(ctx context.Context, id, deliveryErr string, scheduledAt time.Time) error
	FailJob(ctx context.Context, id, deliveryErr string) error
	ListSweepableJobs(ctx context.Context, olderThan time.Time, limit int) ([]models.NotificationJob, error)
	ReleaseStaleJobs(ctx context.Context, stuckSince time.Time) (int64, error)
	ExpireExhaustedJobs(ctx context.Context) (int64, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// NotificationServiceConfig tunes delivery behaviour.
type NotificationServiceConfig struct {
	Workers    int
	RetryDelay time.Duration
	StaleAfter time.Duration
	PortalURL  string
}

// NotificationService delivers outbox jobs over email and serves in-app
// notifications. Delivery runs on an internal worker pool; the database row
// is the source of truth and the pool is only a latency optimisation.
type NotificationService struct {
	repo       notificationStore
	sender     mailer.Sender
	logger     *zap.Logger
	metrics    *MetricsService
	queue      *jobs.Queue
	retryDelay time.Duration
	staleAfter time.Duration
	portalURL  string
}

// SetMetrics attaches the optional delivery counters.
func (s *NotificationService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// NewNotificationService constructs the service and its worker pool.
func NewNotificationService(repo notificationStore, sender mailer.Sender, logger *zap.Logger, cfg NotificationServiceConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	s := &NotificationService{
		repo:       repo,
		sender:     sender,
		logger:     logger,
		retryDelay: cfg.RetryDelay,
		staleAfter: cfg.StaleAfter,
		portalURL:  cfg.PortalURL,
	}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: 1,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// EnqueueJob pushes a persisted outbox job onto the worker pool. A full or
// stopped queue is logged and ignored; the sweep recovers the row.
func (s *NotificationService) EnqueueJob(jobID string) {
	if err := s.queue.Enqueue(jobID); err != nil {
		s.logger.Warn("notification enqueue failed, sweep will recover",
			zap.String("job_id", jobID), zap.Error(err))
	}
}

// handle claims and delivers one outbox job. Returning nil for a lost claim
// keeps a double enqueue from double-sending.
func (s *NotificationService) handle(ctx context.Context, jobID string) error {
	claimed, err := s.repo.ClaimJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("claim job %s: %w", jobID, err)
	}

	started := time.Now()
	deliveryErr := s.deliver(claimed)
	if s.metrics != nil {
		s.metrics.ObserveEmail(string(claimed.TemplateID), deliveryErr == nil, time.Since(started))
	}
	if deliveryErr != nil {
		if claimed.Attempts >= claimed.MaxAttempts {
			if err := s.repo.FailJob(ctx, claimed.ID, deliveryErr.Error()); err != nil {
				s.logger.Error("failed to mark job failed", zap.String("job_id", claimed.ID), zap.Error(err))
			}
			s.logger.Error("notification permanently failed",
				zap.String("job_id", claimed.ID),
				zap.String("template", string(claimed.TemplateID)),
				zap.Int("attempts", claimed.Attempts),
				zap.Error(deliveryErr))
			return nil
		}
		next := time.Now().UTC().Add(s.retryDelay)
		if err := s.repo.RequeueJob(ctx, claimed.ID, deliveryErr.Error(), next); err != nil {
			s.logger.Error("failed to requeue job", zap.String("job_id", claimed.ID), zap.Error(err))
		}
		return fmt.Errorf("deliver job %s: %w", claimed.ID, deliveryErr)
	}

	if err := s.repo.CompleteJob(ctx, claimed.ID); err != nil {
		s.logger.Error("failed to mark job completed", zap.String("job_id", claimed.ID), zap.Error(err))
	}
	s.logger.Info("notification delivered",
		zap.String("job_id", claimed.ID),
		zap.String("template", string(claimed.TemplateID)),
		zap.String("language", string(claimed.Language)))
	return nil
}

func (s *NotificationService) deliver(job *models.NotificationJob) error {
	var payload notificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	tc := notification.TemplateContext{
		FullName:      payload.FullName,
		RequestNumber: payload.RequestNumber,
		RequestType:   models.RequestType(payload.RequestType),
		PortalURL:     s.portalURL + "/requests/" + payload.RequestID,
	}
	if payload.Note != nil {
		tc.Note = *payload.Note
	}

	rendered, err := notification.Render(job.TemplateID, job.Language, tc)
	if err != nil {
		return err
	}

	return s.sender.Send(mailer.Message{
		To:      job.Recipient,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
}

// Sweep repairs the outbox on a cron schedule. Claims orphaned by a crashed
// worker are released back to the queue, jobs out of attempts are failed, and
// due queued jobs are re-enqueued.
func (s *NotificationService) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	released, err := s.repo.ReleaseStaleJobs(ctx, now.Add(-s.staleAfter))
	if err != nil {
		return fmt.Errorf("release stale jobs: %w", err)
	}
	if released > 0 {
		s.logger.Warn("released stale notification claims", zap.Int64("count", released))
	}

	expired, err := s.repo.ExpireExhaustedJobs(ctx)
	if err != nil {
		return fmt.Errorf("expire exhausted jobs: %w", err)
	}
	if expired > 0 {
		s.logger.Warn("expired exhausted notification jobs", zap.Int64("count", expired))
	}

	swept, err := s.repo.ListSweepableJobs(ctx, now, 200)
	if err != nil {
		return fmt.Errorf("list sweepable jobs: %w", err)
	}
	for _, job := range swept {
		s.EnqueueJob(job.ID)
	}
	if len(swept) > 0 {
		s.logger.Info("swept notification jobs", zap.Int("count", len(swept)))
	}
	return nil
}

// List returns a page of in-app notifications for a user.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int, error) {
	notifications, total, err := s.repo.ListForUser(ctx, userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, total, nil
}

// CountUnread returns a user's unread notification count.
func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead stamps one notification as read for its owner. Already-read
// notifications report updated=false without erroring.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	updated, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return updated, nil
}

// MarkAllRead stamps every unread notification for a user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return count, nil
}
