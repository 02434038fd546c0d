package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/bakurah/investors-portal-api/internal/models"
)

func newChatRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestChatRepositoryGetOrCreateConvergesOnOneRow(t *testing.T) {
	db, mock, cleanup := newChatRepoMock(t)
	defer cleanup()

	repo := NewChatRepository(db)
	// Conflict with the partial unique index swallows the insert.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"id", "investor_id", "admin_id", "last_message_at", "created_at"}).
		AddRow("conv-1", "investor-1", nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, investor_id, admin_id")).
		WithArgs("investor-1").
		WillReturnRows(rows)

	conversation, err := repo.GetOrCreateOpenConversation(context.Background(), "investor-1")
	require.NoError(t, err)
	require.Equal(t, "conv-1", conversation.ID)
	require.Nil(t, conversation.AdminID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepositoryClaimLosesRace(t *testing.T) {
	db, mock, cleanup := newChatRepoMock(t)
	defer cleanup()

	repo := NewChatRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversations SET admin_id")).
		WithArgs("admin-2", "conv-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.Claim(context.Background(), "conv-1", "admin-2")
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepositoryInsertMessageBumpsConversation(t *testing.T) {
	db, mock, cleanup := newChatRepoMock(t)
	defer cleanup()

	repo := NewChatRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversations SET last_message_at")).
		WithArgs(sqlmock.AnyArg(), "conv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	message := &models.Message{ConversationID: "conv-1", SenderID: "investor-1", Body: "hello"}
	require.NoError(t, repo.InsertMessage(context.Background(), message))
	require.NotEmpty(t, message.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepositoryListMessagesReturnsNewestPageChronologically(t *testing.T) {
	db, mock, cleanup := newChatRepoMock(t)
	defer cleanup()

	repo := NewChatRepository(db)
	now := time.Now().UTC()
	// The database hands back the newest page in descending order.
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "body", "read_at", "created_at"}).
		AddRow("msg-3", "conv-1", "investor-1", "third", nil, now).
		AddRow("msg-2", "conv-1", "admin-1", "second", nil, now.Add(-time.Minute)).
		AddRow("msg-1", "conv-1", "investor-1", "first", nil, now.Add(-2*time.Minute))
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT 3").
		WithArgs("conv-1").
		WillReturnRows(rows)

	messages, err := repo.ListMessages(context.Background(), "conv-1", nil, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "msg-1", messages[0].ID)
	require.Equal(t, "msg-2", messages[1].ID)
	require.Equal(t, "msg-3", messages[2].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepositoryMarkReadIsIdempotent(t *testing.T) {
	db, mock, cleanup := newChatRepoMock(t)
	defer cleanup()

	repo := NewChatRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET read_at")).
		WithArgs(sqlmock.AnyArg(), "conv-1", "investor-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET read_at")).
		WithArgs(sqlmock.AnyArg(), "conv-1", "investor-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkMessagesRead(context.Background(), "conv-1", "investor-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, updated)

	updated, err = repo.MarkMessagesRead(context.Background(), "conv-1", "investor-1")
	require.NoError(t, err)
	require.EqualValues(t, 0, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}
