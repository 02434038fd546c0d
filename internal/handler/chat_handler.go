package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakurah/investors-portal-api/internal/dto"
	"github.com/bakurah/investors-portal-api/internal/service"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
	"github.com/bakurah/investors-portal-api/pkg/response"
)

// ChatHandler exposes the investor/staff messaging endpoints.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler constructs ChatHandler.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Open godoc
// @Summary Open or resume the investor's support thread
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chat/conversations [post]
func (h *ChatHandler) Open(c *gin.Context) {
	claims := claimsFromContext(c)
	conversation, err := h.chat.OpenConversation(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conversation, nil)
}

// List godoc
// @Summary List the viewer's conversations with unread counts
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chat/conversations [get]
func (h *ChatHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	summaries, err := h.chat.ListConversations(c.Request.Context(), claims.UserID, isStaff(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// Send godoc
// @Summary Post a message to a conversation
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param payload body dto.SendMessageInput true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /chat/conversations/{id}/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var input dto.SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	claims := claimsFromContext(c)
	message, err := h.chat.SendMessage(c.Request.Context(), c.Param("id"), claims.UserID, isStaff(claims), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message)
}

// Messages godoc
// @Summary Page through a conversation's history, oldest first
// @Tags Chat
// @Produce json
// @Param id path string true "Conversation ID"
// @Param before query string false "RFC3339 cursor; messages created before this instant"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /chat/conversations/{id}/messages [get]
func (h *ChatHandler) Messages(c *gin.Context) {
	var before *time.Time
	if cursor := c.Query("before"); cursor != "" {
		parsed, err := time.Parse(time.RFC3339, cursor)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid before cursor"))
			return
		}
		before = &parsed
	}
	limit := 50
	if raw, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && raw > 0 {
		limit = raw
	}

	claims := claimsFromContext(c)
	messages, err := h.chat.ListMessages(c.Request.Context(), c.Param("id"), claims.UserID, isStaff(claims), before, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// MarkRead godoc
// @Summary Mark the counterpart's messages as read
// @Tags Chat
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} response.Envelope
// @Router /chat/conversations/{id}/read [post]
func (h *ChatHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	result, err := h.chat.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID, isStaff(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
