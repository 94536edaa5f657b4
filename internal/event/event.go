package event

import "encoding/json"

// Inbound events (client -> server)
const (
	EventSendMessage       = "send_message"
	EventTyping            = "typing"
	EventStopTyping        = "stop_typing"
	EventMarkAsRead        = "mark_as_read"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventUserOnline        = "user_online"
)

// Outbound events (server -> client)
const (
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventMessageError   = "message_error"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventMessagesRead   = "messages_read"
	EventUserStatus     = "user_status"
)

// Presence status values carried by user_status
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// WsEvent is the wire envelope for every websocket frame in both
// directions.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an envelope.
func NewEvent(name string, payload interface{}) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Payload: raw}, nil
}
