package hub

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
)

// TypingRelay forwards transient typing signals to the counterpart's
// topic. It keeps no state and applies no debouncing or expiry: the
// sending client owns the inactivity timeout and emits stop_typing
// itself.
type TypingRelay struct {
	publisher Publisher
	logger    *zap.Logger
}

func NewTypingRelay(publisher Publisher, logger *zap.Logger) *TypingRelay {
	return &TypingRelay{
		publisher: publisher,
		logger:    logger,
	}
}

// Relay rebroadcasts one typing or stop_typing frame from c to the
// stated receiver. Failures are logged only; typing is best effort.
func (t *TypingRelay) Relay(c Conn, raw json.RawMessage, stop bool) {
	var p event.TypingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.logger.Debug("malformed typing payload", zap.Error(err))
		return
	}
	if p.ReceiverID == "" || p.ConversationID == "" {
		return
	}

	name := event.EventUserTyping
	if stop {
		name = event.EventUserStopTyping
	}

	ev, err := event.NewEvent(name, event.UserTypingPayload{
		UserID:         c.UserID(),
		ConversationID: p.ConversationID,
	})
	if err != nil {
		t.logger.Error("marshal typing event failed", zap.Error(err))
		return
	}

	t.publisher.PublishToUser(p.ReceiverID, ev)
}
