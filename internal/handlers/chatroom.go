package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/chat"
	"github.com/thereayou/roomline/internal/handlers/dto"
	"github.com/thereayou/roomline/internal/middleware"
	"github.com/thereayou/roomline/internal/models"
	"github.com/thereayou/roomline/internal/websocket"
)

type ChatRoomHandler struct {
	svc *chat.Service
	hub *websocket.Hub
}

func NewChatRoomHandler(svc *chat.Service, hub *websocket.Hub) *ChatRoomHandler {
	return &ChatRoomHandler{svc: svc, hub: hub}
}

// respondChatError переводит сентинелы сервиса в HTTP-статусы
func respondChatError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chat.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, chat.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, chat.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// CreateRoom создает новую комнату с создателем-админом
func (h *ChatRoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID, err := uuid.Parse(req.AdminID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid admin id"})
		return
	}

	room, err := h.svc.CreateRoom(chat.CreateRoomParams{
		Name:        req.Name,
		Description: req.Description,
		AdminID:     adminID,
		AvatarColor: req.AvatarColor,
		AvatarText:  req.AvatarText,
	})
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatRoomResponse(room))
}

// GetUserRooms — комнаты пользователя с курсорной пагинацией
func (h *ChatRoomHandler) GetUserRooms(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	cursor, ok := parseCursor(c)
	if !ok {
		return
	}

	page, err := h.svc.ListRoomsForUser(userID, cursor, chat.DefaultRoomPageSize)
	if err != nil {
		respondChatError(c, err)
		return
	}

	rooms := make([]dto.RoomResponse, len(page.Rooms))
	for i := range page.Rooms {
		rooms[i] = formatRoomResponse(&page.Rooms[i])
	}

	c.JSON(http.StatusOK, dto.RoomsPageResponse{
		ChatRooms: rooms,
		Cursor:    page.Cursor,
		HasMore:   page.HasMore,
	})
}

// RequestJoin принимает заявку на вступление; повторная заявка — no-op
func (h *ChatRoomHandler) RequestJoin(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req dto.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.svc.RequestJoin(chatID, userID); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "join request accepted"})
}

// DecideMemberRequest — решение админа по заявке, с адресным push-уведомлением
func (h *ChatRoomHandler) DecideMemberRequest(c *gin.Context) {
	actingUserID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req dto.MemberDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.svc.DecideJoinRequest(chatID, userID, req.Status, actingUserID); err != nil {
		respondChatError(c, err)
		return
	}

	h.hub.NotifyJoinDecision(userID, chatID, req.Status)

	c.JSON(http.StatusOK, gin.H{"message": "request " + req.Status})
}

// RemoveMember удаляет участника (только админ)
func (h *ChatRoomHandler) RemoveMember(c *gin.Context) {
	actingUserID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.svc.RemoveMember(chatID, userID, actingUserID); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

// Leave — выход из комнаты; уходящий админ передаёт права по политике
// преемства, уход последнего approved-участника удаляет комнату
func (h *ChatRoomHandler) Leave(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.svc.Leave(chatID, userID); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left room"})
}

// ChangeAdmin — явная передача прав админа approved-участнику
func (h *ChatRoomHandler) ChangeAdmin(c *gin.Context) {
	actingUserID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req dto.ChangeAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newAdminID, err := uuid.Parse(req.NewAdminID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid new admin id"})
		return
	}

	if err := h.svc.ChangeAdmin(chatID, newAdminID, actingUserID); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "admin changed"})
}

// parseCursor читает query-параметр cursor; пустой или отсутствующий = nil
func parseCursor(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("cursor")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return nil, false
	}
	return &id, true
}

func formatRoomResponse(room *models.ChatRoom) dto.RoomResponse {
	return dto.RoomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		AdminID:     room.AdminID,
		AvatarColor: room.AvatarColor,
		AvatarText:  room.AvatarText,
		LastMessage: room.LastMessage,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}
