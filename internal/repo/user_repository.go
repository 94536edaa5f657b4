package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/db"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/identity"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
)

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	Sync(ctx context.Context, id *identity.Identity) error
}

type userRepository struct {
	mongoRepo *db.Repository[model.User]
}

func NewUserRepository(repo *db.Repository[model.User]) UserRepository {
	return &userRepository{
		mongoRepo: repo,
	}
}

// GetUser returns the locally mirrored profile for userID, or nil when
// the user has never connected here.
func (r *userRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("user_id", userID).Build()
	result, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// Sync refreshes the local mirror from a verified identity. Called on
// every websocket handshake so sender display fields stay current.
func (r *userRepository) Sync(ctx context.Context, id *identity.Identity) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	filter := db.NewFilter().Eq("user_id", id.UserID).Build()

	_, err := r.mongoRepo.FindOneAndUpsert(ctx, filter, bson.M{
		"user_id":    id.UserID,
		"created_at": now,
	})
	if err != nil {
		return err
	}

	_, err = r.mongoRepo.Update(ctx, filter, bson.M{
		"name":      id.Name,
		"email":     id.Email,
		"avatar":    id.Avatar,
		"role":      id.Role,
		"synced_at": now,
	})
	return err
}
