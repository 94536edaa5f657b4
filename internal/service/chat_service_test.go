package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/db"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/hub"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/identity"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	apperrors "github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

type stubConversations struct {
	list []model.Conversation
	byID map[string]*model.Conversation
}

func (s *stubConversations) GetOrCreate(ctx context.Context, a, b string) (*model.Conversation, error) {
	lo, hi := model.NormalizePair(a, b)
	return &model.Conversation{ID: primitive.NewObjectID(), ParticipantA: lo, ParticipantB: hi}, nil
}

func (s *stubConversations) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	if c, ok := s.byID[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrConversationNotFound
}

func (s *stubConversations) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.list, nil
}

func (s *stubConversations) SetLastMessage(ctx context.Context, msg *model.Message) error {
	return nil
}

type stubMessages struct {
	unread map[string]int64
}

func (s *stubMessages) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	msg.ID = primitive.NewObjectID()
	return msg, nil
}

func (s *stubMessages) History(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	return &db.PaginatedResult[model.Message]{Page: page}, nil
}

func (s *stubMessages) MarkRead(ctx context.Context, messageIDs []string, receiverID string) ([]model.Message, error) {
	return nil, nil
}

func (s *stubMessages) UnreadByConversation(ctx context.Context, userID string) (map[string]int64, error) {
	return s.unread, nil
}

type stubUsers struct {
	profiles map[string]*model.User
}

func (s *stubUsers) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.profiles[userID], nil
}

func (s *stubUsers) Sync(ctx context.Context, id *identity.Identity) error {
	return nil
}

type nopPublisher struct{}

func (nopPublisher) PublishToUser(userID string, ev event.WsEvent) int { return 0 }

func newTestService(convs *stubConversations, msgs *stubMessages, users *stubUsers) ChatService {
	receipts := hub.NewReceiptAggregator(msgs, nopPublisher{}, zap.NewNop())
	return NewChatService(convs, msgs, users, nopPublisher{}, receipts, zap.NewNop())
}

func TestListConversationsAnnotations(t *testing.T) {
	withAlice := model.Conversation{ID: primitive.NewObjectID(), ParticipantA: "1", ParticipantB: "2"}
	withStranger := model.Conversation{ID: primitive.NewObjectID(), ParticipantA: "1", ParticipantB: "3"}

	convs := &stubConversations{list: []model.Conversation{withAlice, withStranger}}
	msgs := &stubMessages{unread: map[string]int64{withAlice.ID.Hex(): 4}}
	users := &stubUsers{profiles: map[string]*model.User{
		"2": {UserID: "2", Name: "Alice", Avatar: "https://cdn.test/2.png"},
	}}

	out, err := newTestService(convs, msgs, users).ListConversations(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, out, 2)

	// unread count and counterpart profile resolved per viewer
	assert.Equal(t, int64(4), out[0].UnreadCount)
	assert.Equal(t, "Alice", out[0].CounterpartName)
	assert.Equal(t, "https://cdn.test/2.png", out[0].CounterpartAvatar)

	// a counterpart who never connected leaves the display fields empty
	assert.Equal(t, int64(0), out[1].UnreadCount)
	assert.Empty(t, out[1].CounterpartName)
	assert.Empty(t, out[1].CounterpartAvatar)
}

func TestHistoryRequiresParticipation(t *testing.T) {
	conv := model.Conversation{ID: primitive.NewObjectID(), ParticipantA: "1", ParticipantB: "2"}
	convs := &stubConversations{byID: map[string]*model.Conversation{conv.ID.Hex(): &conv}}

	svc := newTestService(convs, &stubMessages{}, &stubUsers{})

	_, err := svc.History(context.Background(), "9", conv.ID.Hex(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	page, err := svc.History(context.Background(), "1", conv.ID.Hex(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Page)
}
