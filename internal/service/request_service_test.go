package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/repository"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

type mockRequestRepo struct {
	requests    map[string]*models.InvestorRequest
	attachments map[string]int
	events      []models.RequestEvent

	transitionErr    error
	lastTransition   *repository.TransitionParams
	transitionCalls  int
	createCalls      int
	updateDraftCalls int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{
		requests:    make(map[string]*models.InvestorRequest),
		attachments: make(map[string]int),
	}
}

func (m *mockRequestRepo) Create(_ context.Context, req *models.InvestorRequest) error {
	m.createCalls++
	req.ID = "req-1"
	req.RequestNumber = "INV-2026-000001"
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*models.InvestorRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (m *mockRequestRepo) List(_ context.Context, _ models.RequestFilter) ([]models.InvestorRequest, int, error) {
	var out []models.InvestorRequest
	for _, req := range m.requests {
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (m *mockRequestRepo) UpdateDraft(_ context.Context, req *models.InvestorRequest) error {
	m.updateDraftCalls++
	stored, ok := m.requests[req.ID]
	if !ok || stored.Status != models.StatusDraft {
		return sql.ErrNoRows
	}
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestRepo) Transition(_ context.Context, params repository.TransitionParams) error {
	m.transitionCalls++
	m.lastTransition = &params
	if m.transitionErr != nil {
		return m.transitionErr
	}
	stored, ok := m.requests[params.RequestID]
	if !ok || stored.Status != params.From {
		return sql.ErrNoRows
	}
	stored.Status = params.To
	return nil
}

func (m *mockRequestRepo) ListEvents(_ context.Context, _ string) ([]models.RequestEvent, error) {
	return m.events, nil
}

func (m *mockRequestRepo) ListAttachments(_ context.Context, _ string) ([]models.Attachment, error) {
	return nil, nil
}

func (m *mockRequestRepo) CountAttachments(_ context.Context, requestID string) (int, error) {
	return m.attachments[requestID], nil
}

type mockUserStore struct {
	users map[string]*models.User
}

func (m *mockUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type recordingEnqueuer struct {
	jobIDs []string
}

func (r *recordingEnqueuer) EnqueueJob(jobID string) {
	r.jobIDs = append(r.jobIDs, jobID)
}

func seedRequest(repo *mockRequestRepo, status models.RequestStatus, reqType models.RequestType) *models.InvestorRequest {
	amount := 50000.0
	currency := "SAR"
	req := &models.InvestorRequest{
		ID:            "req-1",
		RequestNumber: "INV-2026-000001",
		UserID:        "investor-1",
		Type:          reqType,
		Status:        status,
		Amount:        &amount,
		Currency:      &currency,
	}
	repo.requests[req.ID] = req
	return req
}

func testInvestor() *models.User {
	return &models.User{
		ID:       "investor-1",
		Email:    "sara@example.com",
		FullName: "Sara Al-Qahtani",
		Role:     models.RoleInvestor,
		Language: models.LangArabic,
		Active:   true,
	}
}

func newTestRequestService(repo *mockRequestRepo, enqueuer *recordingEnqueuer) *RequestService {
	users := &mockUserStore{users: map[string]*models.User{"investor-1": testInvestor()}}
	// Pass an untyped nil interface when no enqueuer is supplied, so the
	// service's nil check is not defeated by a typed-nil pointer.
	var jobQueue jobEnqueuer
	if enqueuer != nil {
		jobQueue = enqueuer
	}
	return NewRequestService(repo, users, jobQueue, nil, 5, "ops@bakurah.example.com", "https://portal.example.com")
}

func TestCreateRejectsBuyWithoutAmount(t *testing.T) {
	svc := newTestRequestService(newMockRequestRepo(), nil)

	_, err := svc.Create(context.Background(), "investor-1", dto.CreateRequestInput{Type: models.RequestTypeBuy})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.NotEmpty(t, appErr.Details)
}

func TestCreateFeedbackIgnoresAmount(t *testing.T) {
	repo := newMockRequestRepo()
	svc := newTestRequestService(repo, nil)

	amount := 100.0
	req, err := svc.Create(context.Background(), "investor-1", dto.CreateRequestInput{
		Type:   models.RequestTypeFeedback,
		Amount: &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, req.Status)
	assert.Nil(t, req.Amount)
}

func TestSubmitRequiresAttachmentForEveryType(t *testing.T) {
	for _, reqType := range []models.RequestType{
		models.RequestTypeBuy,
		models.RequestTypeFeedback,
		models.RequestTypeBoardNomination,
	} {
		repo := newMockRequestRepo()
		seedRequest(repo, models.StatusDraft, reqType)
		svc := newTestRequestService(repo, nil)

		_, err := svc.Submit(context.Background(), "req-1", "investor-1")
		assert.ErrorIs(t, err, appErrors.ErrAttachmentsRequired, string(reqType))

		repo.attachments["req-1"] = 1
		req, err := svc.Submit(context.Background(), "req-1", "investor-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSubmitted, req.Status)
	}
}

func TestSubmitBuildsOutboxJobsAndEnqueues(t *testing.T) {
	repo := newMockRequestRepo()
	seedRequest(repo, models.StatusDraft, models.RequestTypeFeedback)
	repo.attachments["req-1"] = 1
	enqueuer := &recordingEnqueuer{}
	svc := newTestRequestService(repo, enqueuer)

	_, err := svc.Submit(context.Background(), "req-1", "investor-1")
	require.NoError(t, err)

	require.NotNil(t, repo.lastTransition)
	require.Len(t, repo.lastTransition.Jobs, 2)

	investorJob := repo.lastTransition.Jobs[0]
	assert.Equal(t, models.TemplateRequestSubmitted, investorJob.TemplateID)
	assert.Equal(t, "sara@example.com", investorJob.Recipient)
	assert.Equal(t, models.LangArabic, investorJob.Language)
	assert.Equal(t, models.JobQueued, investorJob.Status)

	var payload notificationPayload
	require.NoError(t, json.Unmarshal(investorJob.Payload, &payload))
	assert.Equal(t, "INV-2026-000001", payload.RequestNumber)
	assert.Equal(t, "Sara Al-Qahtani", payload.FullName)

	adminJob := repo.lastTransition.Jobs[1]
	assert.Equal(t, models.TemplateRequestAdminAlert, adminJob.TemplateID)
	assert.Equal(t, "ops@bakurah.example.com", adminJob.Recipient)
	assert.Equal(t, models.LangEnglish, adminJob.Language)

	var adminPayload notificationPayload
	require.NoError(t, json.Unmarshal(adminJob.Payload, &adminPayload))
	require.NotNil(t, adminPayload.Note)
	assert.Contains(t, *adminPayload.Note, "Sara Al-Qahtani")

	require.Len(t, repo.lastTransition.Notifications, 1)
	assert.Equal(t, "investor-1", repo.lastTransition.Notifications[0].UserID)

	assert.Len(t, enqueuer.jobIDs, 2)
}

func TestSubmitRejectsForeignRequestAsNotOwned(t *testing.T) {
	repo := newMockRequestRepo()
	seedRequest(repo, models.StatusDraft, models.RequestTypeFeedback)
	repo.attachments["req-1"] = 1
	svc := newTestRequestService(repo, nil)

	// The draft exists; a non-owner still gets the ownership error.
	_, err := svc.Submit(context.Background(), "req-1", "investor-2")
	assert.ErrorIs(t, err, appErrors.ErrRequestNotOwned)
	assert.Zero(t, repo.transitionCalls)
}

func TestUpdateDraftRejectsNonDraft(t *testing.T) {
	repo := newMockRequestRepo()
	seedRequest(repo, models.StatusSubmitted, models.RequestTypeBuy)
	svc := newTestRequestService(repo, nil)

	notes := "changed my mind"
	_, err := svc.UpdateDraft(context.Background(), "req-1", "investor-1", dto.UpdateDraftInput{Notes: &notes})
	assert.ErrorIs(t, err, appErrors.ErrRequestNotDraft)
	assert.Zero(t, repo.updateDraftCalls)
}

func TestDecideRejectsIllegalTransition(t *testing.T) {
	repo := newMockRequestRepo()
	seedRequest(repo, models.StatusCompleted, models.RequestTypeBuy)
	svc := newTestRequestService(repo, nil)

	_, err := svc.Decide(context.Background(), "req-1", "admin-1", dto.DecideRequestInput{Status: models.StatusRejected})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Zero(t, repo.transitionCalls)
}

func TestDecideMapsConcurrentUpdateToConflict(t *testing.T) {
	repo := newMockRequestRepo()
	seedRequest(repo, models.StatusScreening, models.RequestTypeBuy)
	repo.transitionErr = sql.ErrNoRows
	svc := newTestRequestService(repo, nil)

	_, err := svc.Decide(context.Background(), "req-1", "admin-1", dto.DecideRequestInput{Status: models.StatusApproved})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
}

func TestProvideInfoRoutesBackToScreening(t *testing.T) {
	repo := newMockRequestRepo()
	seedRequest(repo, models.StatusPendingInfo, models.RequestTypeBuy)
	svc := newTestRequestService(repo, nil)

	req, err := svc.ProvideInfo(context.Background(), "req-1", "investor-1", dto.ProvideInfoInput{Note: "updated bank statement attached"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScreening, req.Status)

	// Screening is an internal stage; no email should be staged.
	require.NotNil(t, repo.lastTransition)
	assert.Empty(t, repo.lastTransition.Jobs)
	require.NotNil(t, repo.lastTransition.Note)
	assert.Equal(t, "updated bank statement attached", *repo.lastTransition.Note)
}

func TestSettlementChain(t *testing.T) {
	repo := newMockRequestRepo()
	seedRequest(repo, models.StatusApproved, models.RequestTypeSell)
	svc := newTestRequestService(repo, nil)

	req, err := svc.MarkSettling(context.Background(), "req-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettling, req.Status)

	req, err = svc.MarkCompleted(context.Background(), "req-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, req.Status)

	_, err = svc.MarkSettling(context.Background(), "req-1", "admin-1")
	require.Error(t, err)
}
