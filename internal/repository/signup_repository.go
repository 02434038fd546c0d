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

const signupColumns = "id, email, full_name, phone, national_id, message, language, status, reviewed_by, reviewed_at, note, created_at"

// SignupRepository persists investor signup requests.
type SignupRepository struct {
	db *sqlx.DB
}

// NewSignupRepository constructs the repository.
func NewSignupRepository(db *sqlx.DB) *SignupRepository {
	return &SignupRepository{db: db}
}

// Create inserts a pending signup request. A duplicate email surfaces as a
// unique violation for the service to translate.
func (r *SignupRepository) Create(ctx context.Context, signup *models.InvestorSignupRequest) error {
	if signup.ID == "" {
		signup.ID = uuid.NewString()
	}
	if signup.CreatedAt.IsZero() {
		signup.CreatedAt = time.Now().UTC()
	}
	signup.Status = models.SignupPending
	const query = `INSERT INTO investor_signup_requests (id, email, full_name, phone, national_id, message, language, status, created_at)
	VALUES (:id, :email, :full_name, :phone, :national_id, :message, :language, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, signup); err != nil {
		return fmt.Errorf("create signup: %w", err)
	}
	return nil
}

// GetByID fetches one signup request.
func (r *SignupRepository) GetByID(ctx context.Context, id string) (*models.InvestorSignupRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM investor_signup_requests WHERE id = $1 LIMIT 1", signupColumns)
	var signup models.InvestorSignupRequest
	if err := r.db.GetContext(ctx, &signup, query, id); err != nil {
		return nil, err
	}
	return &signup, nil
}

// FindPendingByEmail fetches a pending signup for an email, if any.
func (r *SignupRepository) FindPendingByEmail(ctx context.Context, email string) (*models.InvestorSignupRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM investor_signup_requests WHERE email = $1 AND status = 'pending' LIMIT 1", signupColumns)
	var signup models.InvestorSignupRequest
	if err := r.db.GetContext(ctx, &signup, query, email); err != nil {
		return nil, err
	}
	return &signup, nil
}

// List returns signups, optionally filtered by status, newest first.
func (r *SignupRepository) List(ctx context.Context, status models.SignupStatus, page, pageSize int) ([]models.InvestorSignupRequest, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 1)
	if status != "" {
		args = append(args, status)
		conditions = append(conditions, "status = $1")
	}
	where := strings.Join(conditions, " AND ")

	query := fmt.Sprintf("SELECT %s FROM investor_signup_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		signupColumns, where, pageSize, (page-1)*pageSize)
	var signups []models.InvestorSignupRequest
	if err := r.db.SelectContext(ctx, &signups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list signups: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM investor_signup_requests WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count signups: %w", err)
	}
	return signups, total, nil
}

// Review moves a pending signup to approved or rejected. The status guard
// means a second concurrent review affects zero rows and gets sql.ErrNoRows.
func (r *SignupRepository) Review(ctx context.Context, id string, status models.SignupStatus, reviewerID string, note *string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE investor_signup_requests SET status = $1, note = $2, reviewed_by = $3, reviewed_at = $4 WHERE id = $5 AND status = 'pending'",
		status, note, reviewerID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("review signup: %w", err)
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

// CountPending returns the number of signups awaiting review.
func (r *SignupRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM investor_signup_requests WHERE status = 'pending'"); err != nil {
		return 0, fmt.Errorf("count pending signups: %w", err)
	}
	return count, nil
}
