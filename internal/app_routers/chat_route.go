package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/configuration"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/handler"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/rl/api/chat")
	chatRoute.Use(handler.Authenticated(container.Verifier, container.Logger))
	{
		chatRoute.GET("/conversations", container.ChatHandler.ListConversations)
		chatRoute.POST("/conversations", container.ChatHandler.CreateConversation)
		chatRoute.GET("/conversations/:conversationId/messages", container.ChatHandler.GetMessages)
		chatRoute.POST("/messages/mark-read", container.ChatHandler.MarkAsRead)
		chatRoute.GET("/messages/unread-summary", container.ChatHandler.UnreadSummary)
		chatRoute.POST("/messages/upload", container.ChatHandler.UploadAttachment)
	}
}
