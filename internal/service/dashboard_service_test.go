package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

type mockDashboardStore struct {
	statusCounts []models.StatusCount
	recent       []models.InvestorRequest
	pendingInfo  []models.InvestorRequest
	queue        []models.InvestorRequest
	volume       float64
	averages     []models.TypeAverage
	openConvs    int

	statusErr error
	volumeErr error

	statusCalls int
}

func (m *mockDashboardStore) StatusSummary(_ context.Context, _ string) ([]models.StatusCount, error) {
	m.statusCalls++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.statusCounts, nil
}

func (m *mockDashboardStore) RecentRequests(_ context.Context, _ string, _ int) ([]models.InvestorRequest, error) {
	return m.recent, nil
}

func (m *mockDashboardStore) OldestPendingInfo(_ context.Context, _ string, _ int) ([]models.InvestorRequest, error) {
	return m.pendingInfo, nil
}

func (m *mockDashboardStore) ScreeningQueue(_ context.Context, _ int) ([]models.InvestorRequest, error) {
	return m.queue, nil
}

func (m *mockDashboardStore) RollingVolume(_ context.Context, _ string, _ int) (float64, error) {
	if m.volumeErr != nil {
		return 0, m.volumeErr
	}
	return m.volume, nil
}

func (m *mockDashboardStore) TypeAverages(_ context.Context, _ string) ([]models.TypeAverage, error) {
	return m.averages, nil
}

func (m *mockDashboardStore) CountOpenConversations(_ context.Context) (int, error) {
	return m.openConvs, nil
}

type stubUnreadCounter struct{ count int }

func (s *stubUnreadCounter) CountUnread(_ context.Context, _ string) (int, error) {
	return s.count, nil
}

type stubSignupCounter struct{ count int }

func (s *stubSignupCounter) CountPending(_ context.Context) (int, error) {
	return s.count, nil
}

type stubDashboardCache struct {
	store       map[string][]byte
	deletedKeys []string
}

func (s *stubDashboardCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubDashboardCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubDashboardCache) Delete(_ context.Context, keys ...string) error {
	s.deletedKeys = append(s.deletedKeys, keys...)
	for _, key := range keys {
		delete(s.store, key)
	}
	return nil
}

func populatedDashboardStore() *mockDashboardStore {
	return &mockDashboardStore{
		statusCounts: []models.StatusCount{
			{Status: models.StatusDraft, Count: 2},
			{Status: models.StatusScreening, Count: 3},
			{Status: models.StatusCompleted, Count: 5},
		},
		recent: []models.InvestorRequest{{ID: "req-1"}},
		pendingInfo: []models.InvestorRequest{
			{ID: "req-2", Status: models.StatusPendingInfo},
		},
		queue:     []models.InvestorRequest{{ID: "req-3", Status: models.StatusSubmitted}},
		volume:    125000,
		averages:  []models.TypeAverage{{Type: models.RequestTypeBuy, Average: 60000}},
		openConvs: 4,
	}
}

func TestInvestorOverviewAssemblesPanels(t *testing.T) {
	store := populatedDashboardStore()
	svc := NewDashboardService(store, &stubUnreadCounter{count: 7}, &stubSignupCounter{}, nil, time.Minute, nil)

	resp, err := svc.InvestorOverview(context.Background(), "investor-1")
	require.NoError(t, err)

	assert.Equal(t, 10, resp.RequestSummary.Total)
	assert.Equal(t, 3, resp.RequestSummary.ByStatus[models.StatusScreening])
	assert.Len(t, resp.RecentRequests, 1)
	assert.Equal(t, 1, resp.PendingActions.PendingInfoCount)
	assert.Equal(t, 7, resp.UnreadNotifications)
	assert.Equal(t, 125000.0, resp.Activity.RollingVolume30d)
}

func TestInvestorOverviewNamesFailedPanel(t *testing.T) {
	store := populatedDashboardStore()
	store.volumeErr = errors.New("connection reset")
	svc := NewDashboardService(store, &stubUnreadCounter{}, &stubSignupCounter{}, nil, time.Minute, nil)

	_, err := svc.InvestorOverview(context.Background(), "investor-1")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrRollingVolume.Code, appErr.Code)
}

func TestInvestorOverviewServesFromCache(t *testing.T) {
	store := populatedDashboardStore()
	cache := &stubDashboardCache{}
	svc := NewDashboardService(store, &stubUnreadCounter{}, &stubSignupCounter{}, cache, time.Minute, nil)

	_, err := svc.InvestorOverview(context.Background(), "investor-1")
	require.NoError(t, err)
	require.Equal(t, 1, store.statusCalls)

	_, err = svc.InvestorOverview(context.Background(), "investor-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.statusCalls, "second load should hit the cache")
}

func TestAdminOverviewAssemblesPanels(t *testing.T) {
	store := populatedDashboardStore()
	svc := NewDashboardService(store, &stubUnreadCounter{}, &stubSignupCounter{count: 2}, nil, time.Minute, nil)

	resp, err := svc.AdminOverview(context.Background())
	require.NoError(t, err)

	assert.Len(t, resp.RequestsByStatus, 3)
	assert.Len(t, resp.ScreeningQueue, 1)
	assert.Equal(t, 2, resp.PendingSignups)
	assert.Equal(t, 4, resp.OpenConversations)
	assert.Equal(t, 125000.0, resp.RollingVolume30d)
}

func TestInvalidateDropsBothDashboards(t *testing.T) {
	cache := &stubDashboardCache{store: map[string][]byte{
		adminDashboardKey:                  []byte(`{}`),
		investorDashboardKey("investor-1"): []byte(`{}`),
	}}
	svc := NewDashboardService(populatedDashboardStore(), &stubUnreadCounter{}, &stubSignupCounter{}, cache, time.Minute, nil)

	svc.Invalidate(context.Background(), "investor-1")
	assert.ElementsMatch(t, []string{adminDashboardKey, investorDashboardKey("investor-1")}, cache.deletedKeys)
	assert.Empty(t, cache.store)
}
