package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bakurah/investors-portal-api/internal/models"
)

const requestColumns = "id, request_number, user_id, type, amount, currency, status, target_price, expiry_at, notes, metadata, created_at, updated_at"

// RequestRepository persists investor requests, their event trail and attachments.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// nextRequestNumber allocates a request number from the yearly sequence
// inside the given transaction so the insert and the allocation commit together.
func nextRequestNumber(ctx context.Context, tx *sqlx.Tx, now time.Time) (string, error) {
	var seq int64
	if err := tx.GetContext(ctx, &seq, "SELECT nextval('request_number_seq')"); err != nil {
		return "", fmt.Errorf("allocate request number: %w", err)
	}
	return fmt.Sprintf("INV-%d-%06d", now.Year(), seq), nil
}

// Create inserts a request and its creation event in one transaction.
// The request number comes from a database sequence so duplicates are
// impossible even across concurrent writers.
func (r *RequestRepository) Create(ctx context.Context, req *models.InvestorRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	number, err := nextRequestNumber(ctx, tx, now)
	if err != nil {
		return err
	}
	req.RequestNumber = number

	const insertRequest = `INSERT INTO investor_requests (id, request_number, user_id, type, amount, currency, status, target_price, expiry_at, notes, metadata, created_at, updated_at)
	VALUES (:id, :request_number, :user_id, :type, :amount, :currency, :status, :target_price, :expiry_at, :notes, :metadata, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRequest, req); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	event := models.RequestEvent{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		ToStatus:  req.Status,
		ActorID:   &req.UserID,
		CreatedAt: now,
	}
	if err := insertEvent(ctx, tx, &event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sqlx.Tx, event *models.RequestEvent) error {
	const query = `INSERT INTO request_events (id, request_id, from_status, to_status, actor_id, note, created_at)
	VALUES (:id, :request_id, :from_status, :to_status, :actor_id, :note, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert request event: %w", err)
	}
	return nil
}

// GetByID fetches one request.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.InvestorRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM investor_requests WHERE id = $1 LIMIT 1", requestColumns)
	var req models.InvestorRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter with total count, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.InvestorRequest, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 4)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			args = append(args, status)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("UPPER(request_number) LIKE $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s FROM investor_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		requestColumns, where, pageSize, (page-1)*pageSize)
	var requests []models.InvestorRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM investor_requests WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// UpdateDraft overwrites the editable fields of a draft request.
// The status guard keeps the update from racing a concurrent submit.
func (r *RequestRepository) UpdateDraft(ctx context.Context, req *models.InvestorRequest) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE investor_requests
	SET type = :type, amount = :amount, currency = :currency, target_price = :target_price,
	    expiry_at = :expiry_at, notes = :notes, metadata = :metadata, updated_at = :updated_at
	WHERE id = :id AND status = 'draft'`
	result, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransitionParams carries everything a status change must commit atomically:
// the guarded update, the event row and the notification outbox rows.
type TransitionParams struct {
	RequestID     string
	From          models.RequestStatus
	To            models.RequestStatus
	ActorID       string
	Note          *string
	Jobs          []models.NotificationJob
	Notifications []models.Notification
}

// Transition moves a request between statuses in one transaction. The UPDATE
// is guarded by the expected current status; zero rows affected means the
// request was concurrently moved (or does not exist) and sql.ErrNoRows is
// returned so the caller can re-read and report a conflict.
func (r *RequestRepository) Transition(ctx context.Context, params TransitionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		"UPDATE investor_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		params.To, now, params.RequestID, params.From)
	if err != nil {
		return fmt.Errorf("transition request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	from := params.From
	event := models.RequestEvent{
		ID:         uuid.NewString(),
		RequestID:  params.RequestID,
		FromStatus: &from,
		ToStatus:   params.To,
		Note:       params.Note,
		CreatedAt:  now,
	}
	if params.ActorID != "" {
		actor := params.ActorID
		event.ActorID = &actor
	}
	if err := insertEvent(ctx, tx, &event); err != nil {
		return err
	}

	for i := range params.Jobs {
		if err := insertNotificationJob(ctx, tx, &params.Jobs[i], now); err != nil {
			return err
		}
	}
	for i := range params.Notifications {
		if err := insertNotification(ctx, tx, &params.Notifications[i], now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

func insertNotificationJob(ctx context.Context, tx *sqlx.Tx, job *models.NotificationJob, now time.Time) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobQueued
	}
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = now
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	const query = `INSERT INTO notification_jobs (id, user_id, recipient, template_id, channel, language, payload, status, attempts, max_attempts, last_error, scheduled_at, created_at, updated_at)
	VALUES (:id, :user_id, :recipient, :template_id, :channel, :language, :payload, :status, :attempts, :max_attempts, :last_error, :scheduled_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("insert notification job: %w", err)
	}
	return nil
}

func insertNotification(ctx context.Context, tx *sqlx.Tx, notification *models.Notification, now time.Time) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.CreatedAt = now
	const query = `INSERT INTO notifications (id, user_id, title, body, request_id, created_at)
	VALUES (:id, :user_id, :title, :body, :request_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListEvents returns the event trail for a request, oldest first.
func (r *RequestRepository) ListEvents(ctx context.Context, requestID string) ([]models.RequestEvent, error) {
	const query = `SELECT id, request_id, from_status, to_status, actor_id, note, created_at
	FROM request_events WHERE request_id = $1 ORDER BY created_at ASC`
	var events []models.RequestEvent
	if err := r.db.SelectContext(ctx, &events, query, requestID); err != nil {
		return nil, fmt.Errorf("list request events: %w", err)
	}
	return events, nil
}

// CreateAttachment records an uploaded file.
func (r *RequestRepository) CreateAttachment(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO request_attachments (id, request_id, file_name, storage_path, content_type, size_bytes, uploaded_by, created_at)
	VALUES (:id, :request_id, :file_name, :storage_path, :content_type, :size_bytes, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attachment); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetAttachment fetches one attachment.
func (r *RequestRepository) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	const query = `SELECT id, request_id, file_name, storage_path, content_type, size_bytes, uploaded_by, created_at
	FROM request_attachments WHERE id = $1 LIMIT 1`
	var attachment models.Attachment
	if err := r.db.GetContext(ctx, &attachment, query, id); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// ListAttachments returns every attachment on a request.
func (r *RequestRepository) ListAttachments(ctx context.Context, requestID string) ([]models.Attachment, error) {
	const query = `SELECT id, request_id, file_name, storage_path, content_type, size_bytes, uploaded_by, created_at
	FROM request_attachments WHERE request_id = $1 ORDER BY created_at ASC`
	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, requestID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// CountAttachments returns the number of files on a request.
func (r *RequestRepository) CountAttachments(ctx context.Context, requestID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM request_attachments WHERE request_id = $1", requestID); err != nil {
		return 0, fmt.Errorf("count attachments: %w", err)
	}
	return count, nil
}

// ListForExport returns requests joined with owner details for report generation.
func (r *RequestRepository) ListForExport(ctx context.Context, filter models.RequestFilter) ([]models.RequestExportRow, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 3)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			args = append(args, status)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("r.status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("r.type = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT r.id, r.request_number, r.type, r.amount, r.currency, r.status, r.created_at,
	u.email AS user_email, u.full_name AS user_name
	FROM investor_requests r
	JOIN users u ON u.id = r.user_id
	WHERE %s ORDER BY r.created_at DESC`, strings.Join(conditions, " AND "))
	var rows []models.RequestExportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list requests for export: %w", err)
	}
	return rows, nil
}
