package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/repository"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, req *models.InvestorRequest) error
	GetByID(ctx context.Context, id string) (*models.InvestorRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.InvestorRequest, int, error)
	UpdateDraft(ctx context.Context, req *models.InvestorRequest) error
	Transition(ctx context.Context, params repository.TransitionParams) error
	ListEvents(ctx context.Context, requestID string) ([]models.RequestEvent, error)
	ListAttachments(ctx context.Context, requestID string) ([]models.Attachment, error)
	CountAttachments(ctx context.Context, requestID string) (int, error)
}

type requestUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// jobEnqueuer pushes a persisted outbox job onto the in-process delivery
// queue. Enqueue failures are tolerated; the cron sweep picks the row up.
type jobEnqueuer interface {
	EnqueueJob(jobID string)
}

// RequestService owns the investor request lifecycle.
type RequestService struct {
	repo        requestStore
	users       requestUserStore
	enqueuer    jobEnqueuer
	logger      *zap.Logger
	metrics     *MetricsService
	maxAttempts int
	adminEmail  string
	portalURL   string
}

// SetMetrics attaches the optional transition counter.
func (s *RequestService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// NewRequestService constructs the service.
func NewRequestService(repo requestStore, users requestUserStore, enqueuer jobEnqueuer, logger *zap.Logger, maxAttempts int, adminEmail, portalURL string) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &RequestService{
		repo:        repo,
		users:       users,
		enqueuer:    enqueuer,
		logger:      logger,
		maxAttempts: maxAttempts,
		adminEmail:  adminEmail,
		portalURL:   portalURL,
	}
}

// Create opens a new request in draft for the investor.
func (s *RequestService) Create(ctx context.Context, userID string, input dto.CreateRequestInput) (*models.InvestorRequest, error) {
	if details := input.Validate(); len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, details)
	}

	req := &models.InvestorRequest{
		UserID:      userID,
		Type:        input.Type,
		Status:      models.StatusDraft,
		TargetPrice: input.TargetPrice,
		ExpiryAt:    input.ExpiryAt,
		Notes:       input.Notes,
		Metadata:    input.Metadata,
	}
	if input.Type.RequiresAmount() {
		req.Amount = input.Amount
		req.Currency = input.Currency
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	s.logger.Info("request created",
		zap.String("request_id", req.ID),
		zap.String("request_number", req.RequestNumber),
		zap.String("type", string(req.Type)))
	return req, nil
}

// getOwned loads a request and checks investor ownership.
func (s *RequestService) getOwned(ctx context.Context, requestID, userID string) (*models.InvestorRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRequestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if req.UserID != userID {
		return nil, appErrors.ErrRequestNotOwned
	}
	return req, nil
}

// UpdateDraft edits a draft's editable fields.
func (s *RequestService) UpdateDraft(ctx context.Context, requestID, userID string, input dto.UpdateDraftInput) (*models.InvestorRequest, error) {
	req, err := s.getOwned(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusDraft {
		return nil, appErrors.ErrRequestNotDraft
	}

	if input.Amount != nil {
		req.Amount = input.Amount
	}
	if input.Currency != nil {
		req.Currency = input.Currency
	}
	if input.TargetPrice != nil {
		req.TargetPrice = input.TargetPrice
	}
	if input.ExpiryAt != nil {
		req.ExpiryAt = input.ExpiryAt
	}
	if input.Notes != nil {
		req.Notes = input.Notes
	}
	if input.Metadata != nil {
		req.Metadata = input.Metadata
	}

	if req.Type.RequiresAmount() {
		if req.Amount == nil || *req.Amount <= 0 {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, []appErrors.FieldError{
				{Field: "amount", Message: "amount must be positive"},
			})
		}
		if req.Currency == nil || *req.Currency == "" {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, []appErrors.FieldError{
				{Field: "currency", Message: "currency is required for buy and sell requests"},
			})
		}
	}

	if err := s.repo.UpdateDraft(ctx, req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRequestNotDraft
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	return req, nil
}

// Submit moves a draft into the review pipeline. Every request must carry at
// least one attachment before submission.
func (s *RequestService) Submit(ctx context.Context, requestID, userID string) (*models.InvestorRequest, error) {
	req, err := s.getOwned(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusDraft {
		return nil, appErrors.ErrRequestNotDraft
	}

	count, err := s.repo.CountAttachments(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attachments")
	}
	if count == 0 {
		return nil, appErrors.ErrAttachmentsRequired
	}

	return s.transition(ctx, req, models.StatusSubmitted, userID, nil)
}

// ProvideInfo answers a pending_info request and returns it to screening.
func (s *RequestService) ProvideInfo(ctx context.Context, requestID, userID string, input dto.ProvideInfoInput) (*models.InvestorRequest, error) {
	req, err := s.getOwned(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusPendingInfo {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is not awaiting information")
	}
	note := input.Note
	return s.transition(ctx, req, models.StatusScreening, userID, &note)
}

// Decide applies an admin review decision.
func (s *RequestService) Decide(ctx context.Context, requestID, actorID string, input dto.DecideRequestInput) (*models.InvestorRequest, error) {
	req, err := s.loadAny(ctx, requestID)
	if err != nil {
		return nil, err
	}
	var note *string
	if input.Note != "" {
		note = &input.Note
	}
	return s.transition(ctx, req, input.Status, actorID, note)
}

// MarkSettling starts settlement on an approved request.
func (s *RequestService) MarkSettling(ctx context.Context, requestID, actorID string) (*models.InvestorRequest, error) {
	req, err := s.loadAny(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, req, models.StatusSettling, actorID, nil)
}

// MarkCompleted finishes settlement.
func (s *RequestService) MarkCompleted(ctx context.Context, requestID, actorID string) (*models.InvestorRequest, error) {
	req, err := s.loadAny(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, req, models.StatusCompleted, actorID, nil)
}

func (s *RequestService) loadAny(ctx context.Context, requestID string) (*models.InvestorRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRequestNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return req, nil
}

// transition validates the move, builds the outbox rows and commits everything
// in one repository transaction, then nudges the in-process queue.
func (s *RequestService) transition(ctx context.Context, req *models.InvestorRequest, to models.RequestStatus, actorID string, note *string) (*models.InvestorRequest, error) {
	if err := ValidateTransition(req.Status, to); err != nil {
		return nil, err
	}

	params := repository.TransitionParams{
		RequestID: req.ID,
		From:      req.Status,
		To:        to,
		ActorID:   actorID,
		Note:      note,
	}

	if templateID, ok := TemplateForStatus(to); ok {
		owner, err := s.users.FindByID(ctx, req.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request owner")
		}
		job, notification, err := s.buildNotification(owner, req, templateID, note)
		if err != nil {
			return nil, err
		}
		params.Jobs = append(params.Jobs, *job)
		params.Notifications = append(params.Notifications, *notification)

		// Submission also alerts the back office.
		if to == models.StatusSubmitted && s.adminEmail != "" {
			adminJob, err := s.buildAdminAlert(owner, req)
			if err != nil {
				return nil, err
			}
			params.Jobs = append(params.Jobs, *adminJob)
		}
	}

	if err := s.repo.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition request")
	}

	req.Status = to
	req.UpdatedAt = time.Now().UTC()

	// The outbox row is durable at this point; in-process enqueue is an
	// optimisation and its loss is repaired by the sweep.
	if s.enqueuer != nil {
		for _, job := range params.Jobs {
			s.enqueuer.EnqueueJob(job.ID)
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveTransition(string(params.From), string(to))
	}

	s.logger.Info("request transitioned",
		zap.String("request_id", req.ID),
		zap.String("from", string(params.From)),
		zap.String("to", string(to)),
		zap.String("actor_id", actorID))
	return req, nil
}

type notificationPayload struct {
	RequestID     string  `json:"request_id"`
	RequestNumber string  `json:"request_number"`
	RequestType   string  `json:"request_type"`
	FullName      string  `json:"full_name"`
	Note          *string `json:"note,omitempty"`
}

func (s *RequestService) buildNotification(owner *models.User, req *models.InvestorRequest, templateID models.NotificationTemplateID, note *string) (*models.NotificationJob, *models.Notification, error) {
	payload, err := json.Marshal(notificationPayload{
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		RequestType:   string(req.Type),
		FullName:      owner.FullName,
		Note:          note,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode notification payload")
	}

	job := &models.NotificationJob{
		UserID:      owner.ID,
		Recipient:   owner.Email,
		TemplateID:  templateID,
		Channel:     models.ChannelEmail,
		Language:    owner.Language,
		Payload:     payload,
		Status:      models.JobQueued,
		MaxAttempts: s.maxAttempts,
	}

	title, body := inAppCopy(templateID, owner.Language, req.RequestNumber)
	requestID := req.ID
	notification := &models.Notification{
		UserID:    owner.ID,
		Title:     title,
		Body:      body,
		RequestID: &requestID,
	}
	return job, notification, nil
}

// buildAdminAlert stages the back-office email announcing a new submission.
// Admin mail is always English.
func (s *RequestService) buildAdminAlert(owner *models.User, req *models.InvestorRequest) (*models.NotificationJob, error) {
	submittedBy := "Submitted by " + owner.FullName
	payload, err := json.Marshal(notificationPayload{
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		RequestType:   string(req.Type),
		FullName:      "Review Team",
		Note:          &submittedBy,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode notification payload")
	}
	return &models.NotificationJob{
		UserID:      owner.ID,
		Recipient:   s.adminEmail,
		TemplateID:  models.TemplateRequestAdminAlert,
		Channel:     models.ChannelEmail,
		Language:    models.LangEnglish,
		Payload:     payload,
		Status:      models.JobQueued,
		MaxAttempts: s.maxAttempts,
	}, nil
}

// inAppCopy is the short bilingual text for the portal notification bell.
func inAppCopy(templateID models.NotificationTemplateID, lang models.Language, requestNumber string) (string, string) {
	arabic := lang == models.LangArabic
	switch templateID {
	case models.TemplateRequestSubmitted:
		if arabic {
			return "تم استلام طلبك", "تم استلام الطلب " + requestNumber + " وهو قيد المراجعة."
		}
		return "Request received", "Request " + requestNumber + " was received and is under review."
	case models.TemplateRequestPendingInfo:
		if arabic {
			return "معلومات إضافية مطلوبة", "الطلب " + requestNumber + " بحاجة إلى معلومات إضافية."
		}
		return "More information needed", "Request " + requestNumber + " needs more information."
	case models.TemplateRequestApproved:
		if arabic {
			return "تمت الموافقة على الطلب", "تمت الموافقة على الطلب " + requestNumber + "."
		}
		return "Request approved", "Request " + requestNumber + " was approved."
	case models.TemplateRequestRejected:
		if arabic {
			return "تم رفض الطلب", "تم رفض الطلب " + requestNumber + "."
		}
		return "Request rejected", "Request " + requestNumber + " was rejected."
	case models.TemplateRequestSettling:
		if arabic {
			return "الطلب قيد التسوية", "بدأت تسوية الطلب " + requestNumber + "."
		}
		return "Request settling", "Settlement of request " + requestNumber + " has started."
	case models.TemplateRequestCompleted:
		if arabic {
			return "اكتمل الطلب", "اكتمل الطلب " + requestNumber + " بنجاح."
		}
		return "Request completed", "Request " + requestNumber + " completed successfully."
	default:
		return string(templateID), requestNumber
	}
}

// Get returns a request with attachments and event history. Investors only
// see their own requests; staff see everything.
func (s *RequestService) Get(ctx context.Context, requestID, viewerID string, staff bool) (*dto.RequestDetail, error) {
	var req *models.InvestorRequest
	var err error
	if staff {
		req, err = s.loadAny(ctx, requestID)
	} else {
		req, err = s.getOwned(ctx, requestID, viewerID)
	}
	if err != nil {
		return nil, err
	}

	attachments, err := s.repo.ListAttachments(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	events, err := s.repo.ListEvents(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request events")
	}

	return &dto.RequestDetail{Request: *req, Attachments: attachments, Events: events}, nil
}

// List returns a page of requests. An empty userID lists across investors.
func (s *RequestService) List(ctx context.Context, userID string, query dto.RequestQuery) ([]models.InvestorRequest, int, error) {
	requests, total, err := s.repo.List(ctx, models.RequestFilter{
		UserID:   userID,
		Statuses: query.Statuses,
		Type:     query.Type,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, total, nil
}

// ListEvents returns the event trail, enforcing ownership for investors.
func (s *RequestService) ListEvents(ctx context.Context, requestID, viewerID string, staff bool) ([]models.RequestEvent, error) {
	if staff {
		if _, err := s.loadAny(ctx, requestID); err != nil {
			return nil, err
		}
	} else if _, err := s.getOwned(ctx, requestID, viewerID); err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request events")
	}
	return events, nil
}
