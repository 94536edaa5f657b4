package event

import (
	"encoding/json"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
)

// SendMessagePayload is the body of a send_message frame. Message is
// kept raw because its shape depends on MessageType: a JSON string for
// text, a structured file descriptor for image and file. Keeping it raw
// means neither side ever has to re-parse an encoded string.
type SendMessagePayload struct {
	ConversationID string          `json:"conversationId"`
	ReceiverID     string          `json:"receiverId"`
	Message        json.RawMessage `json:"message"`
	MessageType    string          `json:"messageType"`
	CorrelationID  string          `json:"correlationId,omitempty"`
}

// Text decodes the message body as a plain string.
func (p *SendMessagePayload) Text() (string, error) {
	var s string
	err := json.Unmarshal(p.Message, &s)
	return s, err
}

// FileBody decodes the message body as a structured file descriptor.
func (p *SendMessagePayload) FileBody() (*model.FileInfo, error) {
	var f model.FileInfo
	if err := json.Unmarshal(p.Message, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// TypingPayload is shared by typing and stop_typing.
type TypingPayload struct {
	ReceiverID     string `json:"receiverId"`
	ConversationID string `json:"conversationId"`
}

type MarkAsReadPayload struct {
	MessageIDs []string `json:"messageIds"`
}

type JoinConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

// OutboundMessage decorates a persisted message with the sender's
// display fields for receive_message frames.
type OutboundMessage struct {
	model.Message
	SenderName    string `json:"sender_name"`
	SenderImage   string `json:"sender_image"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// SentAck is the message_sent acknowledgement to the originating
// connection only.
type SentAck struct {
	model.Message
	CorrelationID string `json:"correlationId,omitempty"`
}

type ErrorPayload struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type UserTypingPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type MessagesReadPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
	ReadBy         string   `json:"readBy"`
}

type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}
