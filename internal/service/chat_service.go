package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/db"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/hub"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/identity"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/repo"
	apperrors "github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

// UnreadSummary is the payload of the unread-count endpoint.
type UnreadSummary struct {
	Total          int64            `json:"total"`
	ByConversation map[string]int64 `json:"byConversation"`
}

// ChatService is the request/response surface the UI depends on beside
// the websocket: conversation list, create-or-get, history, bulk
// mark-as-read, unread summary and attachment upload.
type ChatService interface {
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*model.Conversation, error)
	History(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
	MarkRead(ctx context.Context, userID string, messageIDs []string) ([]model.Message, error)
	UnreadSummary(ctx context.Context, userID string) (*UnreadSummary, error)
	SendFileMessage(ctx context.Context, sender *identity.Identity, conversationID string, file *model.FileInfo, messageType string) (*model.Message, error)
}

type chatService struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	users         repo.UserRepository
	publisher     hub.Publisher
	receipts      *hub.ReceiptAggregator
	logger        *zap.Logger
}

func NewChatService(conversations repo.ConversationRepository, messages repo.MessageRepository, users repo.UserRepository, publisher hub.Publisher, receipts *hub.ReceiptAggregator, logger *zap.Logger) ChatService {
	return &chatService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		publisher:     publisher,
		receipts:      receipts,
		logger:        logger,
	}
}

// ListConversations returns the caller's conversations newest-activity
// first, each annotated with that caller's unread count and the
// counterpart's display fields from the local profile mirror.
func (s *chatService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.messages.UnreadByConversation(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range conversations {
		conv := &conversations[i]
		conv.UnreadCount = counts[conv.ID.Hex()]

		// Missing profiles (the counterpart never connected here) just
		// leave the display fields empty.
		counterpartID := conv.Counterpart(userID)
		profile, err := s.users.GetUser(ctx, counterpartID)
		if err != nil {
			s.logger.Debug("counterpart profile lookup failed",
				zap.String("user_id", counterpartID),
				zap.Error(err),
			)
			continue
		}
		if profile != nil {
			conv.CounterpartName = profile.Name
			conv.CounterpartAvatar = profile.Avatar
		}
	}
	return conversations, nil
}

func (s *chatService) GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*model.Conversation, error) {
	return s.conversations.GetOrCreate(ctx, userID, otherUserID)
}

// History returns one page of messages. Only participants may read a
// conversation's history.
func (s *chatService) History(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}

	return s.messages.History(ctx, conversationID, page)
}

// MarkRead flips the caller's unread rows and relays batched read
// receipts to the original senders through the gateway.
func (s *chatService) MarkRead(ctx context.Context, userID string, messageIDs []string) ([]model.Message, error) {
	updated, err := s.messages.MarkRead(ctx, messageIDs, userID)
	if err != nil {
		return nil, err
	}

	s.receipts.Notify(updated, userID)
	return updated, nil
}

func (s *chatService) UnreadSummary(ctx context.Context, userID string) (*UnreadSummary, error) {
	counts, err := s.messages.UnreadByConversation(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &UnreadSummary{ByConversation: counts}
	for _, c := range counts {
		summary.Total += c
	}
	return summary, nil
}

// SendFileMessage persists an uploaded attachment as a message and fans
// it out to the receiver the same way a socket send would. The HTTP
// response carrying the persisted message is the sender's
// acknowledgement.
func (s *chatService) SendFileMessage(ctx context.Context, sender *identity.Identity, conversationID string, file *model.FileInfo, messageType string) (*model.Message, error) {
	if messageType != model.MessageTypeImage && messageType != model.MessageTypeFile {
		return nil, apperrors.ErrBadMessageType
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(sender.UserID) {
		return nil, apperrors.ErrNotParticipant
	}

	convID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, apperrors.ErrBadConversationID
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       sender.UserID,
		ReceiverID:     conv.Counterpart(sender.UserID),
		Type:           messageType,
		File:           file,
		CreatedAt:      time.Now().UTC(),
	}

	saved, err := s.messages.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	if err := s.conversations.SetLastMessage(ctx, saved); err != nil {
		s.logger.Warn("last-message preview update failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}

	outbound, err := event.NewEvent(event.EventReceiveMessage, event.OutboundMessage{
		Message:     *saved,
		SenderName:  sender.Name,
		SenderImage: sender.Avatar,
	})
	if err != nil {
		s.logger.Error("marshal receive_message failed", zap.Error(err))
		return saved, nil
	}
	s.publisher.PublishToUser(saved.ReceiverID, outbound)

	return saved, nil
}
