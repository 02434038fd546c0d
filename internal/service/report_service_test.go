package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/storage"
)

type mockReportStore struct {
	rows     []models.RequestExportRow
	requests map[string]*models.InvestorRequest
	events   map[string][]models.RequestEvent
	getErr   error
}

func (m *mockReportStore) GetByID(_ context.Context, id string) (*models.InvestorRequest, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return req, nil
}

func (m *mockReportStore) ListEvents(_ context.Context, requestID string) ([]models.RequestEvent, error) {
	return m.events[requestID], nil
}

func (m *mockReportStore) ListForExport(_ context.Context, _ models.RequestFilter) ([]models.RequestExportRow, error) {
	return m.rows, nil
}

func newTestReportService(t *testing.T, store *mockReportStore) *ReportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("unit-test-secret", time.Minute)
	return NewReportService(store, files, signer, ReportConfig{ResultTTL: time.Hour}, zap.NewNop())
}

func exportRow(number, email string) models.RequestExportRow {
	amount := 5000.0
	currency := "SAR"
	return models.RequestExportRow{
		ID:            "req-" + number,
		RequestNumber: number,
		Type:          models.RequestTypeBuy,
		Amount:        &amount,
		Currency:      &currency,
		Status:        models.StatusScreening,
		CreatedAt:     time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		UserEmail:     email,
		UserName:      "Investor " + number,
	}
}

func readReport(t *testing.T, svc *ReportService, token string) (string, string) {
	t.Helper()
	file, contentType, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	return string(data), contentType
}

func TestGenerateRequestExportCSV(t *testing.T) {
	store := &mockReportStore{rows: []models.RequestExportRow{
		exportRow("INV-2026-000001", "one@example.com"),
		exportRow("INV-2026-000002", "two@example.com"),
	}}
	svc := newTestReportService(t, store)

	result, err := svc.GenerateRequestExport(context.Background(), models.RequestFilter{}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, result.Format)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	body, contentType := readReport(t, svc, result.Token)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, body, "Request Number")
	assert.Contains(t, body, "INV-2026-000001")
	assert.Contains(t, body, "two@example.com")
}

func TestGenerateRequestExportJSON(t *testing.T) {
	store := &mockReportStore{rows: []models.RequestExportRow{exportRow("INV-2026-000003", "three@example.com")}}
	svc := newTestReportService(t, store)

	result, err := svc.GenerateRequestExport(context.Background(), models.RequestFilter{}, FormatJSON)
	require.NoError(t, err)

	body, contentType := readReport(t, svc, result.Token)
	assert.Equal(t, "application/json", contentType)

	var decoded []models.RequestExportRow
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "INV-2026-000003", decoded[0].RequestNumber)
}

func TestGenerateRequestExportRejectsUnknownFormat(t *testing.T) {
	svc := newTestReportService(t, &mockReportStore{})

	_, err := svc.GenerateRequestExport(context.Background(), models.RequestFilter{}, ReportFormat("xlsx"))
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGenerateStatementHidesForeignRequest(t *testing.T) {
	from := models.StatusScreening
	note := "approved by committee"
	store := &mockReportStore{
		requests: map[string]*models.InvestorRequest{
			"req-1": {
				ID:            "req-1",
				RequestNumber: "INV-2026-000004",
				UserID:        "user-1",
				Type:          models.RequestTypeSell,
				Status:        models.StatusApproved,
				CreatedAt:     time.Now(),
			},
		},
		events: map[string][]models.RequestEvent{
			"req-1": {{ID: "evt-1", RequestID: "req-1", FromStatus: &from, ToStatus: models.StatusApproved, Note: &note, CreatedAt: time.Now()}},
		},
	}
	svc := newTestReportService(t, store)

	_, err := svc.GenerateStatement(context.Background(), "req-1", "user-2", false)
	assert.ErrorIs(t, err, appErrors.ErrRequestNotFound)

	result, err := svc.GenerateStatement(context.Background(), "req-1", "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, result.Format)
	assert.True(t, strings.HasSuffix(result.RelativePath, ".pdf"))

	body, contentType := readReport(t, svc, result.Token)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(body, "%PDF"))
}

func TestGenerateStatementDistinguishesOutageFromMissingRow(t *testing.T) {
	store := &mockReportStore{getErr: errors.New("connection refused")}
	svc := newTestReportService(t, store)

	_, err := svc.GenerateStatement(context.Background(), "req-1", "user-1", true)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.NotErrorIs(t, err, appErrors.ErrRequestNotFound)
}

func TestOpenRejectsInvalidToken(t *testing.T) {
	svc := newTestReportService(t, &mockReportStore{})

	_, _, err := svc.Open("not-a-token")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
