package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bakurah/investors-portal-api/internal/models"
)

// DashboardRepository runs the aggregation queries behind the portal
// dashboards. Each method is independent so the service can fan them out
// concurrently on the shared pool.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// StatusSummary returns the per-status histogram. An empty userID aggregates
// across all investors for the admin view.
func (r *DashboardRepository) StatusSummary(ctx context.Context, userID string) ([]models.StatusCount, error) {
	query := "SELECT status, COUNT(*) AS count FROM investor_requests"
	args := []interface{}{}
	if userID != "" {
		query += " WHERE user_id = $1"
		args = append(args, userID)
	}
	query += " GROUP BY status"
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("status summary: %w", err)
	}
	return counts, nil
}

// RecentRequests returns the newest requests, bounded by limit.
func (r *DashboardRepository) RecentRequests(ctx context.Context, userID string, limit int) ([]models.InvestorRequest, error) {
	if limit <= 0 {
		limit = 8
	}
	condition := ""
	args := []interface{}{}
	if userID != "" {
		condition = " WHERE user_id = $1"
		args = append(args, userID)
	}
	query := fmt.Sprintf("SELECT %s FROM investor_requests%s ORDER BY created_at DESC LIMIT %d",
		requestColumns, condition, limit)
	var requests []models.InvestorRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("recent requests: %w", err)
	}
	return requests, nil
}

// OldestPendingInfo returns the requests that have waited longest for the
// investor to supply information, bounded by limit.
func (r *DashboardRepository) OldestPendingInfo(ctx context.Context, userID string, limit int) ([]models.InvestorRequest, error) {
	if limit <= 0 {
		limit = 5
	}
	condition := " WHERE status = 'pending_info'"
	args := []interface{}{}
	if userID != "" {
		condition += " AND user_id = $1"
		args = append(args, userID)
	}
	query := fmt.Sprintf("SELECT %s FROM investor_requests%s ORDER BY updated_at ASC LIMIT %d",
		requestColumns, condition, limit)
	var requests []models.InvestorRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("oldest pending info: %w", err)
	}
	return requests, nil
}

// ScreeningQueue returns the oldest requests awaiting staff screening.
func (r *DashboardRepository) ScreeningQueue(ctx context.Context, limit int) ([]models.InvestorRequest, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s FROM investor_requests WHERE status IN ('submitted', 'screening') ORDER BY updated_at ASC LIMIT %d",
		requestColumns, limit)
	var requests []models.InvestorRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("screening queue: %w", err)
	}
	return requests, nil
}

// RollingVolume returns the summed amount of completed buy/sell requests over
// the trailing number of days.
func (r *DashboardRepository) RollingVolume(ctx context.Context, userID string, days int) (float64, error) {
	if days <= 0 {
		days = 30
	}
	query := fmt.Sprintf(`SELECT COALESCE(SUM(amount), 0) FROM investor_requests
	WHERE type IN ('buy', 'sell') AND status = 'completed'
	AND updated_at >= NOW() - INTERVAL '%d days'`, days)
	args := []interface{}{}
	if userID != "" {
		query += " AND user_id = $1"
		args = append(args, userID)
	}
	var volume float64
	if err := r.db.GetContext(ctx, &volume, query, args...); err != nil {
		return 0, fmt.Errorf("rolling volume: %w", err)
	}
	return volume, nil
}

// TypeAverages returns the average amount of buy and sell requests.
func (r *DashboardRepository) TypeAverages(ctx context.Context, userID string) ([]models.TypeAverage, error) {
	query := `SELECT type, COALESCE(AVG(amount), 0) AS average FROM investor_requests
	WHERE type IN ('buy', 'sell') AND amount IS NOT NULL`
	args := []interface{}{}
	if userID != "" {
		query += " AND user_id = $1"
		args = append(args, userID)
	}
	query += " GROUP BY type"
	var averages []models.TypeAverage
	if err := r.db.SelectContext(ctx, &averages, query, args...); err != nil {
		return nil, fmt.Errorf("type averages: %w", err)
	}
	return averages, nil
}

// CountOpenConversations returns the number of unclaimed chat threads.
func (r *DashboardRepository) CountOpenConversations(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM conversations WHERE admin_id IS NULL AND last_message_at IS NOT NULL"); err != nil {
		return 0, fmt.Errorf("count open conversations: %w", err)
	}
	return count, nil
}
