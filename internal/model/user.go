package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a read-only mirror of the identity service's user record,
// kept for sender display fields on outbound messages. The identity
// service owns the authoritative copy.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"userId" bson:"user_id"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Avatar    string             `json:"image" bson:"avatar"`
	Role      string             `json:"role" bson:"role"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	SyncedAt  *time.Time         `json:"syncedAt" bson:"synced_at"`
}
