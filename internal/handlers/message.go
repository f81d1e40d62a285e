package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/chat"
	"github.com/thereayou/roomline/internal/handlers/dto"
	"github.com/thereayou/roomline/internal/middleware"
	"github.com/thereayou/roomline/internal/models"
)

type MessageHandler struct {
	svc *chat.Service
}

func NewMessageHandler(svc *chat.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// SendMessage персистит сообщение. Realtime-рассылку делает отправитель
// по каналу отдельным best-effort шагом, сервер здесь её не дублирует.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.CreateMessage(chatID, userID, req.Text, req.FileURL, req.FileType)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatMessageResponse(msg))
}

// GetMessages — история комнаты, курсорная пагинация от новых к старым
func (h *MessageHandler) GetMessages(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	cursor, ok := parseCursor(c)
	if !ok {
		return
	}

	page, err := h.svc.ListMessages(chatID, cursor, chat.DefaultMessagePageSize)
	if err != nil {
		respondChatError(c, err)
		return
	}

	messages := make([]dto.MessageResponse, len(page.Messages))
	for i := range page.Messages {
		messages[i] = formatMessageResponse(&page.Messages[i])
	}

	c.JSON(http.StatusOK, dto.MessagesPageResponse{
		Messages: messages,
		Cursor:   page.Cursor,
		HasMore:  page.HasMore,
	})
}

func formatMessageResponse(msg *models.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		CreatedBy: msg.CreatedBy,
		Content:   msg.Content,
		FileURL:   msg.FileURL,
		FileType:  msg.FileType,
		CreatedAt: msg.CreatedAt,
	}
}
