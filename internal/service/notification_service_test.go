package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/pkg/mailer"
)

type mockNotificationRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.NotificationJob

	claimCalls    int
	completeCalls int
	requeueCalls  int
	failCalls     int
	requeuedAt    time.Time
	sweepable     []models.NotificationJob
	staleCutoff   time.Time
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{jobs: make(map[string]*models.NotificationJob)}
}

func (m *mockNotificationRepo) GetJob(_ context.Context, id string) (*models.NotificationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (m *mockNotificationRepo) ClaimJob(_ context.Context, id string) (*models.NotificationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimCalls++
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobQueued {
		return nil, sql.ErrNoRows
	}
	job.Status = models.JobProcessing
	job.Attempts++
	clone := *job
	return &clone, nil
}

func (m *mockNotificationRepo) CompleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	m.jobs[id].Status = models.JobCompleted
	return nil
}

func (m *mockNotificationRepo) RequeueJob(_ context.Context, id, deliveryErr string, scheduledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeueCalls++
	m.requeuedAt = scheduledAt
	job := m.jobs[id]
	job.Status = models.JobQueued
	job.LastError = &deliveryErr
	return nil
}

func (m *mockNotificationRepo) FailJob(_ context.Context, id, deliveryErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCalls++
	job := m.jobs[id]
	job.Status = models.JobFailed
	job.LastError = &deliveryErr
	return nil
}

func (m *mockNotificationRepo) ListSweepableJobs(_ context.Context, _ time.Time, _ int) ([]models.NotificationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepable, nil
}

func (m *mockNotificationRepo) ReleaseStaleJobs(_ context.Context, stuckSince time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleCutoff = stuckSince
	var released int64
	for _, job := range m.jobs {
		if job.Status == models.JobProcessing && !job.UpdatedAt.After(stuckSince) {
			job.Status = models.JobQueued
			released++
		}
	}
	return released, nil
}

func (m *mockNotificationRepo) ExpireExhaustedJobs(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired int64
	for _, job := range m.jobs {
		if job.Status == models.JobQueued && job.Attempts >= job.MaxAttempts {
			job.Status = models.JobFailed
			expired++
		}
	}
	return expired, nil
}

func (m *mockNotificationRepo) jobStatus(id string) models.NotificationJobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Status
}

func (m *mockNotificationRepo) ListForUser(_ context.Context, _ string, _ bool, _, _ int) ([]models.Notification, int, error) {
	return nil, 0, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, _ string) (int, error) {
	return 0, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func queuedJob(id string, attempts, maxAttempts int) *models.NotificationJob {
	payload, _ := json.Marshal(notificationPayload{
		RequestID:     "req-1",
		RequestNumber: "INV-2026-000007",
		RequestType:   "buy",
		FullName:      "Khalid Al-Harbi",
	})
	return &models.NotificationJob{
		ID:          id,
		UserID:      "investor-1",
		Recipient:   "khalid@example.com",
		TemplateID:  models.TemplateRequestApproved,
		Channel:     models.ChannelEmail,
		Language:    models.LangEnglish,
		Payload:     payload,
		Status:      models.JobQueued,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}
}

func newTestNotificationService(repo *mockNotificationRepo, sender *fakeSender) *NotificationService {
	return NewNotificationService(repo, sender, nil, NotificationServiceConfig{
		Workers:    1,
		RetryDelay: time.Minute,
		StaleAfter: 10 * time.Minute,
		PortalURL:  "https://portal.example.com",
	})
}

func TestHandleDeliversAndCompletes(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.jobs["job-1"] = queuedJob("job-1", 0, 5)
	sender := &fakeSender{}
	svc := newTestNotificationService(repo, sender)

	err := svc.handle(context.Background(), "job-1")
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "khalid@example.com", msg.To)
	assert.Contains(t, msg.Text, "INV-2026-000007")
	assert.Contains(t, msg.HTML, `dir="ltr"`)
	assert.True(t, strings.Contains(msg.HTML, "https://portal.example.com/requests/req-1"))

	assert.Equal(t, 1, repo.completeCalls)
	assert.Equal(t, models.JobCompleted, repo.jobs["job-1"].Status)
}

func TestHandleLostClaimIsSilent(t *testing.T) {
	repo := newMockNotificationRepo()
	job := queuedJob("job-1", 1, 5)
	job.Status = models.JobProcessing
	repo.jobs["job-1"] = job
	sender := &fakeSender{}
	svc := newTestNotificationService(repo, sender)

	err := svc.handle(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.Zero(t, repo.completeCalls)
}

func TestHandleRequeuesOnDeliveryFailure(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.jobs["job-1"] = queuedJob("job-1", 0, 5)
	sender := &fakeSender{err: errors.New("smtp timeout")}
	svc := newTestNotificationService(repo, sender)

	before := time.Now().UTC()
	err := svc.handle(context.Background(), "job-1")
	require.Error(t, err)

	assert.Equal(t, 1, repo.requeueCalls)
	assert.Zero(t, repo.failCalls)
	assert.Equal(t, models.JobQueued, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].LastError)
	assert.Contains(t, *repo.jobs["job-1"].LastError, "smtp timeout")
	assert.False(t, repo.requeuedAt.Before(before.Add(time.Minute)), "retry should be scheduled after the delay")
}

func TestHandleFailsPermanentlyAfterMaxAttempts(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.jobs["job-1"] = queuedJob("job-1", 4, 5)
	sender := &fakeSender{err: errors.New("mailbox unavailable")}
	svc := newTestNotificationService(repo, sender)

	// Claim bumps attempts to 5, matching max.
	err := svc.handle(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.failCalls)
	assert.Zero(t, repo.requeueCalls)
	assert.Equal(t, models.JobFailed, repo.jobs["job-1"].Status)
}

func TestHandleRejectsCorruptPayload(t *testing.T) {
	repo := newMockNotificationRepo()
	job := queuedJob("job-1", 4, 5)
	job.Payload = []byte("{not json")
	repo.jobs["job-1"] = job
	svc := newTestNotificationService(repo, &fakeSender{})

	err := svc.handle(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.failCalls)
}

func TestSweepEnqueuesOverdueJobs(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.sweepable = []models.NotificationJob{
		*queuedJob("job-1", 0, 5),
		*queuedJob("job-2", 1, 5),
	}
	for _, job := range repo.sweepable {
		clone := job
		repo.jobs[job.ID] = &clone
	}
	sender := &fakeSender{}
	svc := newTestNotificationService(repo, sender)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	defer func() {
		cancel()
		svc.Stop()
	}()

	require.NoError(t, svc.Sweep(context.Background()))

	require.Eventually(t, func() bool {
		return repo.jobStatus("job-1") == models.JobCompleted &&
			repo.jobStatus("job-2") == models.JobCompleted
	}, 2*time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.sent, 2)
}

func TestSweepReleasesStaleClaims(t *testing.T) {
	repo := newMockNotificationRepo()
	// A worker crashed mid-delivery and left its claim behind.
	stuck := queuedJob("job-1", 1, 5)
	stuck.Status = models.JobProcessing
	stuck.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	repo.jobs["job-1"] = stuck
	svc := newTestNotificationService(repo, &fakeSender{})

	require.NoError(t, svc.Sweep(context.Background()))

	assert.Equal(t, models.JobQueued, repo.jobStatus("job-1"))
	assert.WithinDuration(t, time.Now().UTC().Add(-10*time.Minute), repo.staleCutoff, time.Minute)
}

func TestSweepFailsExhaustedJobs(t *testing.T) {
	repo := newMockNotificationRepo()
	repo.jobs["job-1"] = queuedJob("job-1", 5, 5)
	svc := newTestNotificationService(repo, &fakeSender{})

	require.NoError(t, svc.Sweep(context.Background()))

	assert.Equal(t, models.JobFailed, repo.jobStatus("job-1"))
}
