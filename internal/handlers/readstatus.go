package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/chat"
)

type ReadStatusHandler struct {
	svc *chat.Service
}

func NewReadStatusHandler(svc *chat.Service) *ReadStatusHandler {
	return &ReadStatusHandler{svc: svc}
}

// GetReadStatus — текущий unread-флаг пары (user, chat)
func (h *ReadStatusHandler) GetReadStatus(c *gin.Context) {
	chatID, userID, ok := parseReadStatusParams(c)
	if !ok {
		return
	}

	unread, err := h.svc.ReadStatus(chatID, userID)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

// MarkRead сбрасывает unread по явному действию пользователя
func (h *ReadStatusHandler) MarkRead(c *gin.Context) {
	chatID, userID, ok := parseReadStatusParams(c)
	if !ok {
		return
	}

	if err := h.svc.MarkRead(chatID, userID); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": false})
}

func parseReadStatusParams(c *gin.Context) (chatID, userID uuid.UUID, ok bool) {
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return uuid.Nil, uuid.Nil, false
	}
	return chatID, userID, true
}
