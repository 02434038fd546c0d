package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

type dashboardStore interface {
	StatusSummary(ctx context.Context, userID string) ([]models.StatusCount, error)
	RecentRequests(ctx context.Context, userID string, limit int) ([]models.InvestorRequest, error)
	OldestPendingInfo(ctx context.Context, userID string, limit int) ([]models.InvestorRequest, error)
	ScreeningQueue(ctx context.Context, limit int) ([]models.InvestorRequest, error)
	RollingVolume(ctx context.Context, userID string, days int) (float64, error)
	TypeAverages(ctx context.Context, userID string) ([]models.TypeAverage, error)
	CountOpenConversations(ctx context.Context) (int, error)
}

type unreadCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

type pendingSignupCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type dashboardCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DashboardService aggregates the portal overview panels. The independent
// queries fan out concurrently; any single failure aborts the whole load with
// a code naming the panel that broke.
type DashboardService struct {
	store    dashboardStore
	unread   unreadCounter
	signups  pendingSignupCounter
	cache    dashboardCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs the service. A nil cache disables caching.
func NewDashboardService(store dashboardStore, unread unreadCounter, signups pendingSignupCounter, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &DashboardService{
		store:    store,
		unread:   unread,
		signups:  signups,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func investorDashboardKey(userID string) string {
	return "dashboard:investor:" + userID
}

const adminDashboardKey = "dashboard:admin"

// InvestorOverview builds the investor dashboard.
func (s *DashboardService) InvestorOverview(ctx context.Context, userID string) (*dto.InvestorDashboardResponse, error) {
	if s.cache != nil {
		var cached dto.InvestorDashboardResponse
		if err := s.cache.GetJSON(ctx, investorDashboardKey(userID), &cached); err == nil {
			return &cached, nil
		}
	}

	var (
		statusCounts []models.StatusCount
		recent       []models.InvestorRequest
		pendingInfo  []models.InvestorRequest
		unreadCount  int
		volume       float64
		averages     []models.TypeAverage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if statusCounts, err = s.store.StatusSummary(gctx, userID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStatusSummary.Code, appErrors.ErrStatusSummary.Status, appErrors.ErrStatusSummary.Message)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if recent, err = s.store.RecentRequests(gctx, userID, 8); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRecentRequests.Code, appErrors.ErrRecentRequests.Status, appErrors.ErrRecentRequests.Message)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if pendingInfo, err = s.store.OldestPendingInfo(gctx, userID, 5); err != nil {
			return appErrors.Wrap(err, appErrors.ErrPendingInfoRequests.Code, appErrors.ErrPendingInfoRequests.Status, appErrors.ErrPendingInfoRequests.Message)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if unreadCount, err = s.unread.CountUnread(gctx, userID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrUnreadCount.Code, appErrors.ErrUnreadCount.Status, appErrors.ErrUnreadCount.Message)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if volume, err = s.store.RollingVolume(gctx, userID, 30); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRollingVolume.Code, appErrors.ErrRollingVolume.Status, appErrors.ErrRollingVolume.Message)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if averages, err = s.store.TypeAverages(gctx, userID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrTypeAverages.Code, appErrors.ErrTypeAverages.Status, appErrors.ErrTypeAverages.Message)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := dto.RequestSummary{ByStatus: make(map[models.RequestStatus]int, len(statusCounts))}
	for _, bucket := range statusCounts {
		summary.ByStatus[bucket.Status] = bucket.Count
		summary.Total += bucket.Count
	}

	resp := &dto.InvestorDashboardResponse{
		RequestSummary: summary,
		RecentRequests: recent,
		PendingActions: dto.PendingActions{
			PendingInfoCount: len(pendingInfo),
			Items:            pendingInfo,
		},
		UnreadNotifications: unreadCount,
		Activity: dto.ActivitySummary{
			RollingVolume30d: volume,
			AverageByType:    averages,
		},
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, investorDashboardKey(userID), resp, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// AdminOverview builds the back-office dashboard.
func (s *DashboardService) AdminOverview(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	if s.cache != nil {
		var cached dto.AdminDashboardResponse
		if err := s.cache.GetJSON(ctx, adminDashboardKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var (
		statusCounts []models.StatusCount
		queue        []models.InvestorRequest
		signupCount  int
		openConvs    int
		volume       float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if statusCounts, err = s.store.StatusSummary(gctx, ""); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStatusSummary.Code, appErrors.ErrStatusSummary.Status, appErrors.ErrStatusSummary.Message)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if queue, err = s.store.ScreeningQueue(gctx, 10); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRecentRequests.Code, appErrors.ErrRecentRequests.Status, "failed to load screening queue")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if signupCount, err = s.signups.CountPending(gctx); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending signups")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if openConvs, err = s.store.CountOpenConversations(gctx); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open conversations")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if volume, err = s.store.RollingVolume(gctx, "", 30); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRollingVolume.Code, appErrors.ErrRollingVolume.Status, appErrors.ErrRollingVolume.Message)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &dto.AdminDashboardResponse{
		RequestsByStatus:  statusCounts,
		ScreeningQueue:    queue,
		PendingSignups:    signupCount,
		OpenConversations: openConvs,
		RollingVolume30d:  volume,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, adminDashboardKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// Invalidate drops cached dashboards after a write that changes them.
func (s *DashboardService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	keys := []string{adminDashboardKey}
	if userID != "" {
		keys = append(keys, investorDashboardKey(userID))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
