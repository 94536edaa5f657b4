package hub

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/db"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	apperrors "github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

// fakeConn records everything sent to one connection.
type fakeConn struct {
	mu     sync.Mutex
	userID string
	name   string
	avatar string
	events []event.WsEvent
}

func newFakeConn(userID, name string) *fakeConn {
	return &fakeConn{userID: userID, name: name, avatar: "https://cdn.test/" + userID + ".png"}
}

func (f *fakeConn) SendEvent(ev event.WsEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return true
}

func (f *fakeConn) UserID() string     { return f.userID }
func (f *fakeConn) UserName() string   { return f.name }
func (f *fakeConn) UserAvatar() string { return f.avatar }

func (f *fakeConn) sent() []event.WsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.WsEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fakePublisher records fan-outs per user topic.
type fakePublisher struct {
	mu        sync.Mutex
	published map[string][]event.WsEvent
	conns     map[string]int // simulated connection count per user
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		published: make(map[string][]event.WsEvent),
		conns:     make(map[string]int),
	}
}

func (f *fakePublisher) PublishToUser(userID string, ev event.WsEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[userID] = append(f.published[userID], ev)
	if n, ok := f.conns[userID]; ok {
		return n
	}
	return 1
}

func (f *fakePublisher) eventsFor(userID string) []event.WsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[userID]
}

// fakeConversationRepo serves a fixed set of conversations.
type fakeConversationRepo struct {
	conversations map[string]*model.Conversation
	lastMessages  []*model.Message
}

func newFakeConversationRepo(convs ...*model.Conversation) *fakeConversationRepo {
	m := make(map[string]*model.Conversation, len(convs))
	for _, c := range convs {
		m[c.ID.Hex()] = c
	}
	return &fakeConversationRepo{conversations: m}
}

func (f *fakeConversationRepo) GetOrCreate(ctx context.Context, a, b string) (*model.Conversation, error) {
	lo, hi := model.NormalizePair(a, b)
	for _, c := range f.conversations {
		if c.ParticipantA == lo && c.ParticipantB == hi {
			return c, nil
		}
	}
	conv := &model.Conversation{ID: primitive.NewObjectID(), ParticipantA: lo, ParticipantB: hi}
	f.conversations[conv.ID.Hex()] = conv
	return conv, nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	if c, ok := f.conversations[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrConversationNotFound
}

func (f *fakeConversationRepo) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, c := range f.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) SetLastMessage(ctx context.Context, msg *model.Message) error {
	f.lastMessages = append(f.lastMessages, msg)
	return nil
}

// fakeMessageRepo stores messages in memory and honors the receiver
// filter on MarkRead the way the Mongo repository does.
type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []*model.Message
	insertErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	msg.ID = primitive.NewObjectID()
	msg.IsRead = false
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeMessageRepo) History(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var data []model.Message
	for _, m := range f.messages {
		if m.ConversationID.Hex() == conversationID {
			data = append(data, *m)
		}
	}
	return &db.PaginatedResult[model.Message]{Data: data, Total: int64(len(data)), Page: page, PageSize: 25}, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, messageIDs []string, receiverID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	requested := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		requested[id] = true
	}

	var updated []model.Message
	for _, m := range f.messages {
		if requested[m.ID.Hex()] && m.ReceiverID == receiverID && !m.IsRead {
			m.IsRead = true
			updated = append(updated, *m)
		}
	}
	return updated, nil
}

func (f *fakeMessageRepo) UnreadByConversation(ctx context.Context, userID string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, m := range f.messages {
		if m.ReceiverID == userID && !m.IsRead {
			counts[m.ConversationID.Hex()]++
		}
	}
	return counts, nil
}

func (f *fakeMessageRepo) byID(id string) *model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID.Hex() == id {
			return m
		}
	}
	return nil
}

func (f *fakeMessageRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
