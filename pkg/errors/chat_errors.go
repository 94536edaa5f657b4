package errors

var (
	// Handshake / authorization
	ErrBadToken         = Unauthorized("invalid or missing bearer token")
	ErrNotParticipant   = Forbidden("user is not a participant of this conversation")
	ErrReceiverMismatch = Forbidden("receiver does not belong to this conversation")

	// Payload validation
	ErrEmptyMessage         = InvalidArg("message body cannot be empty")
	ErrBadMessageType       = InvalidArg("messageType must be text, image or file")
	ErrBadConversationID    = InvalidArg("conversation id is not a valid object id")
	ErrMissingReceiver      = InvalidArg("receiverId is required")
	ErrNoMessageIDs         = InvalidArg("messageIds cannot be empty")
	ErrFileBodyNotObject    = InvalidArg("file message body must be a structured object")
	ErrConversationNotFound = NotFound("conversation does not exist")
)

func ErrStoreWrite(cause error) error {
	return Wrap(CodeUnavailable, "message store write failed", cause)
}

func ErrStoreRead(cause error) error {
	return Wrap(CodeUnavailable, "message store read failed", cause)
}

func ErrIdentityUnreachable(cause error) error {
	return Wrap(CodeUnavailable, "identity service unreachable", cause)
}
