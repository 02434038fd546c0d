package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

type mockChatRepo struct {
	conversations map[string]*models.Conversation
	messages      []models.Message
	unread        int64

	claimCalls int
	markCalls  int
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{conversations: make(map[string]*models.Conversation)}
}

func (m *mockChatRepo) GetOrCreateOpenConversation(_ context.Context, investorID string) (*models.Conversation, error) {
	for _, conv := range m.conversations {
		if conv.InvestorID == investorID && conv.AdminID == nil {
			return conv, nil
		}
	}
	conv := &models.Conversation{ID: "conv-1", InvestorID: investorID, CreatedAt: time.Now()}
	m.conversations[conv.ID] = conv
	return conv, nil
}

func (m *mockChatRepo) GetByID(_ context.Context, id string) (*models.Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return conv, nil
}

func (m *mockChatRepo) ListForInvestor(_ context.Context, _ string) ([]models.ConversationSummary, error) {
	return nil, nil
}

func (m *mockChatRepo) ListForAdmin(_ context.Context) ([]models.ConversationSummary, error) {
	return nil, nil
}

func (m *mockChatRepo) Claim(_ context.Context, conversationID, adminID string) (bool, error) {
	m.claimCalls++
	conv := m.conversations[conversationID]
	if conv.AdminID != nil {
		return false, nil
	}
	conv.AdminID = &adminID
	return true, nil
}

func (m *mockChatRepo) InsertMessage(_ context.Context, message *models.Message) error {
	message.ID = "msg-1"
	message.CreatedAt = time.Now()
	now := message.CreatedAt
	m.conversations[message.ConversationID].LastMessageAt = &now
	m.messages = append(m.messages, *message)
	return nil
}

func (m *mockChatRepo) ListMessages(_ context.Context, _ string, _ *time.Time, _ int) ([]models.Message, error) {
	return m.messages, nil
}

func (m *mockChatRepo) MarkMessagesRead(_ context.Context, _, _ string) (int64, error) {
	m.markCalls++
	count := m.unread
	m.unread = 0
	return count, nil
}

func seedConversation(repo *mockChatRepo, adminID *string) *models.Conversation {
	conv := &models.Conversation{ID: "conv-1", InvestorID: "investor-1", AdminID: adminID}
	repo.conversations[conv.ID] = conv
	return conv
}

func TestOpenConversationReusesOpenThread(t *testing.T) {
	repo := newMockChatRepo()
	svc := NewChatService(repo, nil)

	first, err := svc.OpenConversation(context.Background(), "investor-1")
	require.NoError(t, err)
	second, err := svc.OpenConversation(context.Background(), "investor-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSendMessageRejectsBlankBody(t *testing.T) {
	repo := newMockChatRepo()
	seedConversation(repo, nil)
	svc := NewChatService(repo, nil)

	_, err := svc.SendMessage(context.Background(), "conv-1", "investor-1", false, dto.SendMessageInput{Body: "   "})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.messages)
}

func TestSendMessageHidesForeignConversation(t *testing.T) {
	repo := newMockChatRepo()
	seedConversation(repo, nil)
	svc := NewChatService(repo, nil)

	_, err := svc.SendMessage(context.Background(), "conv-1", "investor-2", false, dto.SendMessageInput{Body: "hello"})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStaffFirstReplyClaimsConversation(t *testing.T) {
	repo := newMockChatRepo()
	seedConversation(repo, nil)
	svc := NewChatService(repo, nil)

	msg, err := svc.SendMessage(context.Background(), "conv-1", "admin-1", true, dto.SendMessageInput{Body: "how can we help?"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.claimCalls)
	require.NotNil(t, repo.conversations["conv-1"].AdminID)
	assert.Equal(t, "admin-1", *repo.conversations["conv-1"].AdminID)
	assert.Equal(t, "how can we help?", msg.Body)
}

func TestStaffReplyDoesNotReclaimAssignedConversation(t *testing.T) {
	repo := newMockChatRepo()
	adminID := "admin-1"
	seedConversation(repo, &adminID)
	svc := NewChatService(repo, nil)

	_, err := svc.SendMessage(context.Background(), "conv-1", "admin-2", true, dto.SendMessageInput{Body: "following up"})
	require.NoError(t, err)
	assert.Zero(t, repo.claimCalls)
	assert.Equal(t, "admin-1", *repo.conversations["conv-1"].AdminID)
}

func TestSendMessageBumpsLastMessageAt(t *testing.T) {
	repo := newMockChatRepo()
	seedConversation(repo, nil)
	svc := NewChatService(repo, nil)

	_, err := svc.SendMessage(context.Background(), "conv-1", "investor-1", false, dto.SendMessageInput{Body: "hello"})
	require.NoError(t, err)
	assert.NotNil(t, repo.conversations["conv-1"].LastMessageAt)
}

func TestMarkReadReportsIdempotence(t *testing.T) {
	repo := newMockChatRepo()
	seedConversation(repo, nil)
	repo.unread = 3
	svc := NewChatService(repo, nil)

	result, err := svc.MarkRead(context.Background(), "conv-1", "investor-1", false)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, 3, result.Count)

	result, err = svc.MarkRead(context.Background(), "conv-1", "investor-1", false)
	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Zero(t, result.Count)
}
