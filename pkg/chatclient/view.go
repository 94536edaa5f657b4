package chatclient

import (
	"sync"
	"time"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
)

// DeliveryStatus is the client-side lifecycle of a message. It is never
// persisted; the server only knows is_read.
type DeliveryStatus int

const (
	StatusSending DeliveryStatus = iota
	StatusSent
	StatusRead
	StatusFailed
)

// LocalMessage is one row of the rendered conversation. A message the
// user just sent exists first as an optimistic echo identified only by
// its correlation id; the ack swaps in the server identity without
// moving the row.
type LocalMessage struct {
	CorrelationID  string
	ServerID       string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Type           string
	Body           string
	File           *model.FileInfo
	Status         DeliveryStatus
	CreatedAt      time.Time
}

// ConversationView holds the ordered message list for one open
// conversation plus the lookups reconciliation needs. Entries are
// resolved by correlation id or server id, never by position: indexes
// shift under concurrent sends.
type ConversationView struct {
	mu       sync.RWMutex
	convID   string
	entries  []*LocalMessage
	byCorrID map[string]*LocalMessage
	byID     map[string]*LocalMessage
}

func NewConversationView(conversationID string) *ConversationView {
	return &ConversationView{
		convID:   conversationID,
		byCorrID: make(map[string]*LocalMessage),
		byID:     make(map[string]*LocalMessage),
	}
}

func (v *ConversationView) ConversationID() string { return v.convID }

// AppendPending adds an optimistic echo at the tail.
func (v *ConversationView) AppendPending(msg *LocalMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()

	msg.Status = StatusSending
	v.entries = append(v.entries, msg)
	v.byCorrID[msg.CorrelationID] = msg
}

// AppendConfirmed adds a server-confirmed message (typically one
// received from the counterpart). A duplicate server id is ignored.
func (v *ConversationView) AppendConfirmed(remote model.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := remote.ID.Hex()
	if _, exists := v.byID[id]; exists {
		return
	}

	entry := fromServerMessage(remote)
	v.entries = append(v.entries, entry)
	v.byID[id] = entry
}

// Resolve replaces the pending entry matching correlationID with the
// server-confirmed record, in place: same list position, server id and
// timestamp swapped in. Returns false when no pending entry matches,
// which happens after a resync already dropped it.
func (v *ConversationView) Resolve(correlationID string, confirmed model.Message) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.byCorrID[correlationID]
	if !ok {
		return false
	}

	entry.ServerID = confirmed.ID.Hex()
	entry.CreatedAt = confirmed.CreatedAt
	entry.Body = confirmed.Body
	entry.File = confirmed.File
	entry.Status = StatusSent

	delete(v.byCorrID, correlationID)
	v.byID[entry.ServerID] = entry
	return true
}

// Fail marks the pending entry matching correlationID as failed so the
// UI can offer its retry affordance. The entry stays in place.
func (v *ConversationView) Fail(correlationID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.byCorrID[correlationID]
	if !ok {
		return false
	}
	entry.Status = StatusFailed
	return true
}

// MarkRead flips the delivery status of own messages the counterpart
// acknowledged.
func (v *ConversationView) MarkRead(serverIDs []string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, id := range serverIDs {
		if entry, ok := v.byID[id]; ok {
			entry.Status = StatusRead
		}
	}
}

// Reset rebuilds the view from a server history page. Unresolved
// pendings are discarded: any ack in flight during an outage is lost
// for good, so server state wins. Callers re-render and let the user
// retry what disappeared.
func (v *ConversationView) Reset(history []model.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries = v.entries[:0]
	v.byCorrID = make(map[string]*LocalMessage)
	v.byID = make(map[string]*LocalMessage)

	for _, remote := range history {
		entry := fromServerMessage(remote)
		v.entries = append(v.entries, entry)
		v.byID[entry.ServerID] = entry
	}
}

// Messages returns a snapshot of the rendered list in order.
func (v *ConversationView) Messages() []LocalMessage {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]LocalMessage, len(v.entries))
	for i, e := range v.entries {
		out[i] = *e
	}
	return out
}

// PendingCount reports how many sends still await their ack.
func (v *ConversationView) PendingCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.byCorrID)
}

func fromServerMessage(remote model.Message) *LocalMessage {
	status := StatusSent
	if remote.IsRead {
		status = StatusRead
	}
	return &LocalMessage{
		ServerID:       remote.ID.Hex(),
		ConversationID: remote.ConversationID.Hex(),
		SenderID:       remote.SenderID,
		ReceiverID:     remote.ReceiverID,
		Type:           remote.Type,
		Body:           remote.Body,
		File:           remote.File,
		Status:         status,
		CreatedAt:      remote.CreatedAt,
	}
}
