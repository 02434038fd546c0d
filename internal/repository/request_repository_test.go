package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/bakurah/investors-portal-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreateAllocatesNumberInTx(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('request_number_seq')")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO investor_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	amount := 1500.0
	currency := "SAR"
	req := &models.InvestorRequest{
		UserID:   "investor-1",
		Type:     models.RequestTypeBuy,
		Amount:   &amount,
		Currency: &currency,
		Status:   models.StatusDraft,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	require.NotEmpty(t, req.ID)
	require.Regexp(t, `^INV-\d{4}-000042$`, req.RequestNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCreateRollsBackOnEventFailure(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('request_number_seq')")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO investor_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_events")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	req := &models.InvestorRequest{
		UserID: "investor-1",
		Type:   models.RequestTypeFeedback,
		Status: models.StatusDraft,
	}
	require.Error(t, repo.Create(context.Background(), req))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryTransitionWritesOutboxAtomically(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE investor_requests SET status")).
		WithArgs(models.StatusSubmitted, sqlmock.AnyArg(), "req-1", models.StatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), TransitionParams{
		RequestID: "req-1",
		From:      models.StatusDraft,
		To:        models.StatusSubmitted,
		ActorID:   "investor-1",
		Jobs: []models.NotificationJob{{
			UserID:      "investor-1",
			Recipient:   "investor@example.com",
			TemplateID:  models.TemplateRequestSubmitted,
			Channel:     models.ChannelEmail,
			Language:    models.LangArabic,
			Payload:     []byte(`{"request_number":"INV-2026-000001"}`),
			MaxAttempts: 5,
		}},
		Notifications: []models.Notification{{
			UserID: "investor-1",
			Title:  "تم استلام طلبك",
			Body:   "INV-2026-000001",
		}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryTransitionConflictReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE investor_requests SET status")).
		WithArgs(models.StatusScreening, sqlmock.AnyArg(), "req-1", models.StatusSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), TransitionParams{
		RequestID: "req-1",
		From:      models.StatusSubmitted,
		To:        models.StatusScreening,
		ActorID:   "admin-1",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateDraftGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE investor_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDraft(context.Background(), &models.InvestorRequest{
		ID:   "req-1",
		Type: models.RequestTypeSell,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFiltersByStatusAndUser(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows([]string{"id", "request_number", "user_id", "type", "amount", "currency", "status", "target_price", "expiry_at", "notes", "metadata", "created_at", "updated_at"}).
		AddRow("req-1", "INV-2026-000001", "investor-1", "buy", 1000.0, "SAR", "submitted", nil, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, request_number, user_id")).
		WithArgs("investor-1", models.StatusSubmitted).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM investor_requests")).
		WithArgs("investor-1", models.StatusSubmitted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	requests, total, err := repo.List(context.Background(), models.RequestFilter{
		UserID:   "investor-1",
		Statuses: []models.RequestStatus{models.StatusSubmitted},
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, requests, 1)
	require.Equal(t, "INV-2026-000001", requests[0].RequestNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}
