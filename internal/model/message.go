package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message types
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

// Message represents a direct message in MongoDB. A text message carries
// its content in Body; image and file messages carry a structured File
// descriptor instead, delivered to clients as an object rather than an
// encoded string.
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversation_id"`
	SenderID       string             `json:"senderId" bson:"sender_id"`
	ReceiverID     string             `json:"receiverId" bson:"receiver_id"`
	Type           string             `json:"messageType" bson:"message_type"`
	Body           string             `json:"message,omitempty" bson:"body,omitempty"`
	File           *FileInfo          `json:"file,omitempty" bson:"file,omitempty"`
	IsRead         bool               `json:"isRead" bson:"is_read"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
}

// FileInfo describes an uploaded attachment
type FileInfo struct {
	URL      string `json:"url" bson:"url"`
	FileName string `json:"fileName" bson:"file_name"`
	FileSize int64  `json:"fileSize" bson:"file_size"`
	MimeType string `json:"mimeType" bson:"mime_type"`
}

// ValidType reports whether t is one of the supported message types.
func ValidType(t string) bool {
	return t == MessageTypeText || t == MessageTypeImage || t == MessageTypeFile
}

// Preview returns the text shown in a conversation list row.
func (m *Message) Preview() string {
	switch m.Type {
	case MessageTypeImage:
		return "[image]"
	case MessageTypeFile:
		if m.File != nil {
			return m.File.FileName
		}
		return "[file]"
	default:
		return m.Body
	}
}
