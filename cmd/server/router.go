package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/roomline/internal/handlers"
	"github.com/thereayou/roomline/internal/middleware"
	"github.com/thereayou/roomline/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	jwtMgr *auth.JWTManager,
	rdb *redis.Client,
	authH *handlers.AuthHandler,
	userH *handlers.UserHandler,
	roomH *handlers.ChatRoomHandler,
	msgH *handlers.MessageHandler,
	readH *handlers.ReadStatusHandler,
	wsH *handlers.WebSocketHandler,
) {
	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/logout", authH.Logout)
	}

	// API endpoints
	api := r.Group("/", middleware.AuthMiddleware(jwtMgr, rdb))
	{
		api.GET("/users/me", userH.GetMe)
		api.GET("/users/:id", userH.GetUser)

		api.POST("/chatroom", roomH.CreateRoom)
		api.GET("/chatroom/user/:userId", roomH.GetUserRooms)
		api.POST("/chatroom/:chatId/request", roomH.RequestJoin)
		api.PUT("/chatroom/:chatId/memberRequest", roomH.DecideMemberRequest)
		api.DELETE("/chatroom/:chatId/members/:userId", roomH.RemoveMember)
		api.DELETE("/chatroom/:chatId/leave/:userId", roomH.Leave)
		api.PUT("/chatroom/:chatId/changeAdmin", roomH.ChangeAdmin)

		api.GET("/chatroom/:chatId/messages", msgH.GetMessages)
		api.POST("/rooms/:roomId/messages", msgH.SendMessage)

		api.GET("/chatroom/:chatId/readStatus/:userId", readH.GetReadStatus)
		api.PUT("/chatroom/:chatId/readStatus/:userId", readH.MarkRead)
	}

	// Realtime канал
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), wsH.HandleWebSocket)
}
