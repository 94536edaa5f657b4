package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation represents a 1:1 direct-message channel in MongoDB.
// The participant pair is stored normalized: ParticipantA always holds
// the lexicographically smaller user id, so one unordered pair maps to
// exactly one document regardless of who opened the conversation.
type Conversation struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ParticipantA string             `json:"participantA" bson:"participant_a"`
	ParticipantB string             `json:"participantB" bson:"participant_b"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`

	// Denormalized preview of the most recent message, kept so the
	// conversation list renders without joining the messages collection.
	LastMessageText   string    `json:"lastMessageText" bson:"last_message_text"`
	LastMessageTime   time.Time `json:"lastMessageTime" bson:"last_message_time"`
	LastMessageSender string    `json:"lastMessageSenderId" bson:"last_message_sender_id"`
	LastMessageType   string    `json:"lastMessageType" bson:"last_message_type"`

	// UnreadCount is computed per viewer at query time, never stored.
	UnreadCount int64 `json:"unreadCount" bson:"-"`

	// Counterpart display fields, resolved per viewer from the local
	// profile mirror at query time.
	CounterpartName   string `json:"counterpartName,omitempty" bson:"-"`
	CounterpartAvatar string `json:"counterpartAvatar,omitempty" bson:"-"`
}

// NormalizePair orders a user pair so (a,b) and (b,a) address the same
// conversation document.
func NormalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Counterpart returns the other participant from the viewer's side.
func (c *Conversation) Counterpart(viewerID string) string {
	if c.ParticipantA == viewerID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}
