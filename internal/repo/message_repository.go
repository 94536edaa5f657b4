package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/db"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	apperrors "github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

const historyPageSize = 25

type messageRepository struct {
	mongoRepo     *db.Repository[model.Message]
	conversations *db.Repository[model.Conversation]
	logger        *zap.Logger
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *model.Message) (*model.Message, error)
	History(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
	MarkRead(ctx context.Context, messageIDs []string, receiverID string) ([]model.Message, error)
	UnreadByConversation(ctx context.Context, userID string) (map[string]int64, error)
}

func NewMessageRepository(repo *db.Repository[model.Message], conversations *db.Repository[model.Conversation], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo:     repo,
		conversations: conversations,
		logger:        logger,
	}
}

// -----------------------------------------------------------------------------
// Insert
// -----------------------------------------------------------------------------

// Insert appends a message. The referenced conversation must exist and
// its two participants must be exactly the message's sender and
// receiver; anything else is rejected before the write. Transient Mongo
// failures are retried with backoff.
func (m *messageRepository) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if err := m.validateMessage(ctx, msg); err != nil {
		return nil, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg.IsRead = false
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, apperrors.ErrStoreWrite(err)
			}
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				msg.ID = oid
			}

			m.logger.Info("message inserted",
				zap.String("message_id", msg.ID.Hex()),
				zap.String("conversation_id", msg.ConversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return msg, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("conversation_id", msg.ConversationID.Hex()),
	)
	return nil, apperrors.ErrStoreWrite(lastErr)
}

func (m *messageRepository) validateMessage(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return apperrors.InvalidArg("message cannot be nil")
	}
	if msg.ConversationID.IsZero() {
		return apperrors.ErrBadConversationID
	}
	if !model.ValidType(msg.Type) {
		return apperrors.ErrBadMessageType
	}
	if msg.Type == model.MessageTypeText && msg.Body == "" {
		return apperrors.ErrEmptyMessage
	}
	if msg.Type != model.MessageTypeText && msg.File == nil {
		return apperrors.ErrFileBodyNotObject
	}

	// The conversation row must pair exactly this sender and receiver.
	lo, hi := model.NormalizePair(msg.SenderID, msg.ReceiverID)
	filter := db.NewFilter().
		Eq("_id", msg.ConversationID).
		Eq("participant_a", lo).
		Eq("participant_b", hi).
		Build()

	exists, err := m.conversations.Exists(ctx, filter)
	if err != nil {
		return apperrors.ErrStoreRead(err)
	}
	if !exists {
		return apperrors.ErrConversationNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// History
// -----------------------------------------------------------------------------

// History returns one page of a conversation's messages, oldest first.
func (m *messageRepository) History(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if conversationID == "" {
		return nil, apperrors.ErrBadConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("conversation_id", conversationID).Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, apperrors.ErrStoreRead(err)
			}
			m.logger.Warn("retrying message history",
				zap.String("conversation_id", conversationID),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: historyPageSize,
			SortBy:   "created_at",
			SortDesc: false,
		})
		if err == nil {
			m.logger.Debug("messages retrieved",
				zap.String("conversation_id", conversationID),
				zap.Int("count", len(result.Data)),
				zap.Int64("total", result.Total),
				zap.Int64("page", result.Page),
			)
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	m.logger.Error("message history failed",
		zap.String("conversation_id", conversationID),
		zap.Error(lastErr),
	)
	return nil, apperrors.ErrStoreRead(lastErr)
}

// -----------------------------------------------------------------------------
// MarkRead
// -----------------------------------------------------------------------------

// MarkRead flips is_read on the requested messages and returns only the
// rows that were actually updated. Rows addressed to a different
// receiver are silently skipped rather than rejected: the receiver_id
// match in the filter is the authorization boundary for read receipts.
func (m *messageRepository) MarkRead(ctx context.Context, messageIDs []string, receiverID string) ([]model.Message, error) {
	if len(messageIDs) == 0 {
		return nil, apperrors.ErrNoMessageIDs
	}
	if receiverID == "" {
		return nil, apperrors.ErrMissingReceiver
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectIDs("_id", messageIDs).
		Eq("receiver_id", receiverID).
		Eq("is_read", false).
		Build()

	// Snapshot the rows first so the caller learns exactly which
	// messages transitioned; stale or foreign ids drop out here.
	updated, err := m.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		m.logger.Error("mark-read lookup failed",
			zap.String("receiver_id", receiverID),
			zap.Error(err),
		)
		return nil, apperrors.ErrStoreRead(err)
	}
	if len(updated) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, len(updated))
	for i, msg := range updated {
		ids[i] = msg.ID
	}

	updateFilter := db.NewFilter().In("_id", ids).Build()
	if _, err := m.mongoRepo.UpdateMany(ctx, updateFilter, bson.M{"is_read": true}); err != nil {
		m.logger.Error("mark-read update failed",
			zap.String("receiver_id", receiverID),
			zap.Int("count", len(ids)),
			zap.Error(err),
		)
		return nil, apperrors.ErrStoreWrite(err)
	}

	for i := range updated {
		updated[i].IsRead = true
	}

	m.logger.Debug("messages marked read",
		zap.String("receiver_id", receiverID),
		zap.Int("count", len(updated)),
	)
	return updated, nil
}

// -----------------------------------------------------------------------------
// UnreadByConversation
// -----------------------------------------------------------------------------

type unreadGroup struct {
	ConversationID primitive.ObjectID `bson:"_id"`
	Count          int64              `bson:"count"`
}

// UnreadByConversation groups the user's unread messages by
// conversation in a single aggregation; the conversation list and the
// unread-summary endpoint both annotate from this map.
func (m *messageRepository) UnreadByConversation(ctx context.Context, userID string) (map[string]int64, error) {
	if userID == "" {
		return nil, apperrors.InvalidArg("user id cannot be empty")
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"receiver_id": userID,
			"is_read":     false,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$conversation_id",
			"count": bson.M{"$sum": 1},
		}}},
	}

	var groups []unreadGroup
	if err := m.mongoRepo.Aggregate(ctx, pipeline, &groups); err != nil {
		m.logger.Error("unread aggregation failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, apperrors.ErrStoreRead(err)
	}

	counts := make(map[string]int64, len(groups))
	for _, g := range groups {
		counts[g.ConversationID.Hex()] = g.Count
	}
	return counts, nil
}
