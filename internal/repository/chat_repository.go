package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bakurah/investors-portal-api/internal/models"
)

// ChatRepository persists conversations and messages.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository constructs the repository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// GetOrCreateOpenConversation returns the investor's open conversation,
// creating it if needed. The insert relies on a partial unique index on
// (investor_id) WHERE admin_id IS NULL, so two concurrent callers converge
// on a single row instead of creating duplicates.
func (r *ChatRepository) GetOrCreateOpenConversation(ctx context.Context, investorID string) (*models.Conversation, error) {
	now := time.Now().UTC()
	const insert = `INSERT INTO conversations (id, investor_id, admin_id, last_message_at, created_at)
	VALUES ($1, $2, NULL, NULL, $3)
	ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), investorID, now); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	const query = `SELECT id, investor_id, admin_id, last_message_at, created_at
	FROM conversations WHERE investor_id = $1 AND admin_id IS NULL LIMIT 1`
	var conversation models.Conversation
	if err := r.db.GetContext(ctx, &conversation, query, investorID); err != nil {
		return nil, fmt.Errorf("get open conversation: %w", err)
	}
	return &conversation, nil
}

// GetByID fetches one conversation.
func (r *ChatRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	const query = `SELECT id, investor_id, admin_id, last_message_at, created_at
	FROM conversations WHERE id = $1 LIMIT 1`
	var conversation models.Conversation
	if err := r.db.GetContext(ctx, &conversation, query, id); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListForInvestor returns the investor's conversations with unread counts,
// most recently active first.
func (r *ChatRepository) ListForInvestor(ctx context.Context, investorID string) ([]models.ConversationSummary, error) {
	const query = `SELECT c.id, c.investor_id, c.admin_id, c.last_message_at, c.created_at,
	COALESCE((SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read_at IS NULL), 0) AS unread_count
	FROM conversations c
	WHERE c.investor_id = $1
	ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`
	var summaries []models.ConversationSummary
	if err := r.db.SelectContext(ctx, &summaries, query, investorID); err != nil {
		return nil, fmt.Errorf("list investor conversations: %w", err)
	}
	return summaries, nil
}

// ListForAdmin returns every conversation with unread counts for the staff
// side, most recently active first.
func (r *ChatRepository) ListForAdmin(ctx context.Context) ([]models.ConversationSummary, error) {
	const query = `SELECT c.id, c.investor_id, c.admin_id, c.last_message_at, c.created_at,
	COALESCE((SELECT COUNT(*) FROM messages m
		JOIN conversations mc ON mc.id = m.conversation_id
		WHERE m.conversation_id = c.id AND m.sender_id = mc.investor_id AND m.read_at IS NULL), 0) AS unread_count
	FROM conversations c
	ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`
	var summaries []models.ConversationSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("list admin conversations: %w", err)
	}
	return summaries, nil
}

// Claim assigns an unassigned conversation to an admin. Zero rows affected
// means another admin claimed it first.
func (r *ChatRepository) Claim(ctx context.Context, conversationID, adminID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE conversations SET admin_id = $1 WHERE id = $2 AND admin_id IS NULL",
		adminID, conversationID)
	if err != nil {
		return false, fmt.Errorf("claim conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// InsertMessage appends a message and bumps the conversation's activity stamp.
func (r *ChatRepository) InsertMessage(ctx context.Context, message *models.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert message: %w", err)
	}
	defer tx.Rollback()

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	message.CreatedAt = now

	const insert = `INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
	VALUES (:id, :conversation_id, :sender_id, :body, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, message); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE conversations SET last_message_at = $1 WHERE id = $2",
		now, message.ConversationID); err != nil {
		return fmt.Errorf("bump conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert message: %w", err)
	}
	return nil
}

// ListMessages returns the newest page of messages in chronological order.
// Before, when set, moves the page back past that instant, so repeated calls
// with the oldest returned timestamp walk the history backwards.
func (r *ChatRepository) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args := []interface{}{conversationID}
	condition := ""
	if before != nil {
		args = append(args, *before)
		condition = " AND created_at < $2"
	}
	query := fmt.Sprintf(`SELECT id, conversation_id, sender_id, body, read_at, created_at
	FROM messages WHERE conversation_id = $1%s ORDER BY created_at DESC LIMIT %d`, condition, limit)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkMessagesRead stamps every unread message not sent by the reader and
// returns the number of rows updated. Repeat calls affect zero rows.
func (r *ChatRepository) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE messages SET read_at = $1 WHERE conversation_id = $2 AND sender_id <> $3 AND read_at IS NULL",
		time.Now().UTC(), conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return result.RowsAffected()
}
