package dto

import "github.com/bakurah/investors-portal-api/internal/models"

// RequestSummary is the per-status histogram for one investor.
type RequestSummary struct {
	Total    int                          `json:"total"`
	ByStatus map[models.RequestStatus]int `json:"by_status"`
}

// PendingActions surfaces requests awaiting investor input.
type PendingActions struct {
	PendingInfoCount int                      `json:"pending_info_count"`
	Items            []models.InvestorRequest `json:"items"`
}

// ActivitySummary aggregates transaction volume figures.
type ActivitySummary struct {
	RollingVolume30d float64              `json:"rolling_volume_30d"`
	AverageByType    []models.TypeAverage `json:"average_by_type"`
}

// InvestorDashboardResponse is the investor overview payload.
type InvestorDashboardResponse struct {
	RequestSummary      RequestSummary           `json:"request_summary"`
	RecentRequests      []models.InvestorRequest `json:"recent_requests"`
	PendingActions      PendingActions           `json:"pending_actions"`
	UnreadNotifications int                      `json:"unread_notifications"`
	Activity            ActivitySummary          `json:"activity"`
}

// AdminDashboardResponse is the back-office overview payload.
type AdminDashboardResponse struct {
	RequestsByStatus  []models.StatusCount     `json:"requests_by_status"`
	ScreeningQueue    []models.InvestorRequest `json:"screening_queue"`
	PendingSignups    int                      `json:"pending_signups"`
	OpenConversations int                      `json:"open_conversations"`
	RollingVolume30d  float64                  `json:"rolling_volume_30d"`
}
