package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/service"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/storage"
	apperrors "github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

type ChatHandler interface {
	ListConversations(c *gin.Context)
	CreateConversation(c *gin.Context)
	GetMessages(c *gin.Context)
	MarkAsRead(c *gin.Context)
	UnreadSummary(c *gin.Context)
	UploadAttachment(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
	store   storage.ObjectStore
	logger  *zap.Logger
}

func NewChatHandler(service service.ChatService, store storage.ObjectStore, logger *zap.Logger) ChatHandler {
	return &chatHandler{
		service: service,
		store:   store,
		logger:  logger,
	}
}

func (h *chatHandler) ListConversations(c *gin.Context) {
	ident := CallerIdentity(c)

	conversations, err := h.service.ListConversations(c.Request.Context(), ident.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

type createConversationRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *chatHandler) CreateConversation(c *gin.Context) {
	ident := CallerIdentity(c)

	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	conv, err := h.service.GetOrCreateConversation(c.Request.Context(), ident.UserID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *chatHandler) GetMessages(c *gin.Context) {
	ident := CallerIdentity(c)
	conversationID := c.Param("conversationId")

	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}

	msgs, err := h.service.History(c.Request.Context(), ident.UserID, conversationID, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type markAsReadRequest struct {
	MessageIDs []string `json:"messageIds" binding:"required"`
}

func (h *chatHandler) MarkAsRead(c *gin.Context) {
	ident := CallerIdentity(c)

	var req markAsReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messageIds is required"})
		return
	}

	updated, err := h.service.MarkRead(c.Request.Context(), ident.UserID, req.MessageIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]string, len(updated))
	for i, m := range updated {
		ids[i] = m.ID.Hex()
	}
	c.JSON(http.StatusOK, gin.H{"updated": ids})
}

func (h *chatHandler) UnreadSummary(c *gin.Context) {
	ident := CallerIdentity(c)

	summary, err := h.service.UnreadSummary(c.Request.Context(), ident.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// UploadAttachment stores a multipart file and persists it as a message
// whose body already carries the uploaded file's URL and metadata; the
// receiver gets the usual receive_message push.
func (h *chatHandler) UploadAttachment(c *gin.Context) {
	ident := CallerIdentity(c)

	conversationID := c.PostForm("conversationId")
	messageType := c.DefaultPostForm("messageType", model.MessageTypeFile)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer src.Close()

	info, err := h.store.Upload(c.Request.Context(), src, fileHeader.Filename, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.service.SendFileMessage(c.Request.Context(), ident, conversationID, info, messageType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodePermissionDenied:
		status = http.StatusForbidden
	case apperrors.CodeUnauthenticated:
		status = http.StatusUnauthorized
	case apperrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
