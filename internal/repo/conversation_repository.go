package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/db"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	apperrors "github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

type conversationRepository struct {
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

type ConversationRepository interface {
	GetOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error)
	GetByID(ctx context.Context, conversationID string) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	SetLastMessage(ctx context.Context, msg *model.Message) error
}

func NewConversationRepository(repo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// GetOrCreate returns the single conversation for the unordered user
// pair, creating it when absent. The pair is normalized before the
// upsert, so GetOrCreate(a,b) and GetOrCreate(b,a) converge on one
// document; the unique (participant_a, participant_b) index keeps
// concurrent first-time creation from racing into duplicates.
func (r *conversationRepository) GetOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	if userA == "" || userB == "" || userA == userB {
		return nil, apperrors.InvalidArg("a conversation needs two distinct participants")
	}

	lo, hi := model.NormalizePair(userA, userB)

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("participant_a", lo).
		Eq("participant_b", hi).
		Build()

	insert := bson.M{
		"participant_a": lo,
		"participant_b": hi,
		"created_at":    time.Now().UTC(),
	}

	conv, err := retryOnDuplicateKey(func() (*model.Conversation, error) {
		return r.mongoRepo.FindOneAndUpsert(ctx, filter, insert)
	})
	if err != nil {
		r.logger.Error("get-or-create conversation failed",
			zap.String("participant_a", lo),
			zap.String("participant_b", hi),
			zap.Error(err),
		)
		return nil, apperrors.ErrStoreWrite(err)
	}

	return conv, nil
}

// GetByID fetches a conversation by its hex id. Returns
// ErrConversationNotFound when no document matches.
func (r *conversationRepository) GetByID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, apperrors.ErrBadConversationID
	}
	if _, err := primitive.ObjectIDFromHex(conversationID); err != nil {
		return nil, apperrors.ErrBadConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conv, err := r.mongoRepo.FindByID(ctx, conversationID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrConversationNotFound
		}
		r.logger.Error("failed to fetch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, apperrors.ErrStoreRead(err)
	}

	return conv, nil
}

// ListForUser returns every conversation involving userID, most recent
// activity first. Unread counts are annotated by the service layer from
// the message repository's aggregation.
func (r *conversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, apperrors.InvalidArg("user id cannot be empty")
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Or(
		bson.M{"participant_a": userID},
		bson.M{"participant_b": userID},
	).Build()

	opts := sortDesc("last_message_time")
	conversations, err := r.mongoRepo.FindAll(ctx, filter, opts)
	if err != nil {
		r.logger.Error("failed to list conversations",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, apperrors.ErrStoreRead(err)
	}

	r.logger.Debug("conversations retrieved",
		zap.String("user_id", userID),
		zap.Int("count", len(conversations)),
	)
	return conversations, nil
}

// SetLastMessage refreshes the denormalized preview fields after a
// message is appended.
func (r *conversationRepository) SetLastMessage(ctx context.Context, msg *model.Message) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("_id", msg.ConversationID).Build()
	update := bson.M{
		"last_message_text":      msg.Preview(),
		"last_message_time":      msg.CreatedAt,
		"last_message_sender_id": msg.SenderID,
		"last_message_type":      msg.Type,
	}

	if _, err := r.mongoRepo.Update(ctx, filter, update); err != nil {
		return fmt.Errorf("update last message preview: %w", err)
	}
	return nil
}
