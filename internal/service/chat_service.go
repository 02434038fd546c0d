package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

type chatStore interface {
	GetOrCreateOpenConversation(ctx context.Context, investorID string) (*models.Conversation, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListForInvestor(ctx context.Context, investorID string) ([]models.ConversationSummary, error)
	ListForAdmin(ctx context.Context) ([]models.ConversationSummary, error)
	Claim(ctx context.Context, conversationID, adminID string) (bool, error)
	InsertMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

// ChatService mediates the investor/staff message threads.
type ChatService struct {
	repo   chatStore
	logger *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(repo chatStore, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{repo: repo, logger: logger}
}

// OpenConversation returns the investor's single open thread, creating it on
// first use. Concurrent first calls converge on one conversation.
func (s *ChatService) OpenConversation(ctx context.Context, investorID string) (*models.Conversation, error) {
	conversation, err := s.repo.GetOrCreateOpenConversation(ctx, investorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open conversation")
	}
	return conversation, nil
}

// ListConversations returns the viewer's threads with unread counts.
func (s *ChatService) ListConversations(ctx context.Context, viewerID string, staff bool) ([]models.ConversationSummary, error) {
	var summaries []models.ConversationSummary
	var err error
	if staff {
		summaries, err = s.repo.ListForAdmin(ctx)
	} else {
		summaries, err = s.repo.ListForInvestor(ctx, viewerID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	return summaries, nil
}

// authorize checks the viewer may touch the conversation.
func (s *ChatService) authorize(ctx context.Context, conversationID, viewerID string, staff bool) (*models.Conversation, error) {
	conversation, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	if !staff && conversation.InvestorID != viewerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
	}
	return conversation, nil
}

// SendMessage appends a message to the thread. The first staff reply claims
// an unassigned conversation.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID string, staff bool, input dto.SendMessageInput) (*models.Message, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, []appErrors.FieldError{
			{Field: "body", Message: "message body is required"},
		})
	}

	conversation, err := s.authorize(ctx, conversationID, senderID, staff)
	if err != nil {
		return nil, err
	}

	if staff && conversation.AdminID == nil {
		claimed, err := s.repo.Claim(ctx, conversation.ID, senderID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim conversation")
		}
		if claimed {
			s.logger.Info("conversation claimed",
				zap.String("conversation_id", conversation.ID),
				zap.String("admin_id", senderID))
		}
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Body:           body,
	}
	if err := s.repo.InsertMessage(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	return message, nil
}

// ListMessages returns a page of thread history, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, conversationID, viewerID string, staff bool, before *time.Time, limit int) ([]models.Message, error) {
	if _, err := s.authorize(ctx, conversationID, viewerID, staff); err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, conversationID, before, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, nil
}

// MarkRead stamps the counterpart's unread messages. The second identical
// call reports Updated=false.
func (s *ChatService) MarkRead(ctx context.Context, conversationID, viewerID string, staff bool) (*dto.MarkReadResult, error) {
	if _, err := s.authorize(ctx, conversationID, viewerID, staff); err != nil {
		return nil, err
	}
	count, err := s.repo.MarkMessagesRead(ctx, conversationID, viewerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark messages read")
	}
	return &dto.MarkReadResult{Updated: count > 0, Count: int(count)}, nil
}
