package hub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
)

func seedMessage(t *testing.T, repo *fakeMessageRepo, conv *model.Conversation, senderID, receiverID string) *model.Message {
	t.Helper()
	msg, err := repo.Insert(context.Background(), &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Type:           model.MessageTypeText,
		Body:           "sample",
	})
	require.NoError(t, err)
	return msg
}

func markReadFrame(t *testing.T, ids []string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(event.MarkAsReadPayload{MessageIDs: ids})
	require.NoError(t, err)
	return raw
}

func TestReceiptsBatchPerSender(t *testing.T) {
	convA := testConversation("reader", "alice")
	convB := testConversation("reader", "bob")
	msgRepo := newFakeMessageRepo()
	publisher := newFakePublisher()
	agg := NewReceiptAggregator(msgRepo, publisher, zap.NewNop())

	// five unread messages addressed to the reader, from two senders
	var ids []string
	for i := 0; i < 3; i++ {
		m := seedMessage(t, msgRepo, convA, "alice", "reader")
		ids = append(ids, m.ID.Hex())
	}
	for i := 0; i < 2; i++ {
		m := seedMessage(t, msgRepo, convB, "bob", "reader")
		ids = append(ids, m.ID.Hex())
	}

	reader := newFakeConn("reader", "Reader")
	agg.HandleMarkRead(context.Background(), reader, markReadFrame(t, ids))

	// exactly one batched event per distinct sender, never one per row
	aliceEvents := publisher.eventsFor("alice")
	require.Len(t, aliceEvents, 1)
	assert.Equal(t, event.EventMessagesRead, aliceEvents[0].Event)

	var aliceBatch event.MessagesReadPayload
	require.NoError(t, json.Unmarshal(aliceEvents[0].Payload, &aliceBatch))
	assert.Len(t, aliceBatch.MessageIDs, 3)
	assert.Equal(t, convA.ID.Hex(), aliceBatch.ConversationID)
	assert.Equal(t, "reader", aliceBatch.ReadBy)

	bobEvents := publisher.eventsFor("bob")
	require.Len(t, bobEvents, 1)

	var bobBatch event.MessagesReadPayload
	require.NoError(t, json.Unmarshal(bobEvents[0].Payload, &bobBatch))
	assert.Len(t, bobBatch.MessageIDs, 2)

	assert.Equal(t, uint64(2), agg.Batches())

	// the rows themselves flipped
	for _, id := range ids {
		assert.True(t, msgRepo.byID(id).IsRead)
	}
}

func TestReceiptsIgnoreForeignRows(t *testing.T) {
	conv := testConversation("reader", "alice")
	other := testConversation("alice", "carol")
	msgRepo := newFakeMessageRepo()
	publisher := newFakePublisher()
	agg := NewReceiptAggregator(msgRepo, publisher, zap.NewNop())

	mine := seedMessage(t, msgRepo, conv, "alice", "reader")
	foreign := seedMessage(t, msgRepo, other, "alice", "carol")

	reader := newFakeConn("reader", "Reader")
	agg.HandleMarkRead(context.Background(), reader,
		markReadFrame(t, []string{mine.ID.Hex(), foreign.ID.Hex()}))

	// ids addressed to someone else fall out silently
	assert.True(t, msgRepo.byID(mine.ID.Hex()).IsRead)
	assert.False(t, msgRepo.byID(foreign.ID.Hex()).IsRead)

	events := publisher.eventsFor("alice")
	require.Len(t, events, 1)

	var batch event.MessagesReadPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &batch))
	assert.Equal(t, []string{mine.ID.Hex()}, batch.MessageIDs)
}

func TestReceiptsAlreadyReadIsNoOp(t *testing.T) {
	conv := testConversation("reader", "alice")
	msgRepo := newFakeMessageRepo()
	publisher := newFakePublisher()
	agg := NewReceiptAggregator(msgRepo, publisher, zap.NewNop())

	msg := seedMessage(t, msgRepo, conv, "alice", "reader")
	reader := newFakeConn("reader", "Reader")

	agg.HandleMarkRead(context.Background(), reader, markReadFrame(t, []string{msg.ID.Hex()}))
	agg.HandleMarkRead(context.Background(), reader, markReadFrame(t, []string{msg.ID.Hex()}))

	// a second pass over already-read rows publishes nothing new
	assert.Len(t, publisher.eventsFor("alice"), 1)
	assert.Equal(t, uint64(1), agg.Batches())
}

func TestReceiptsEmptyIDList(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	publisher := newFakePublisher()
	agg := NewReceiptAggregator(msgRepo, publisher, zap.NewNop())

	reader := newFakeConn("reader", "Reader")
	agg.HandleMarkRead(context.Background(), reader, markReadFrame(t, nil))

	assert.Equal(t, uint64(0), agg.Batches())
}

func TestGroupBySender(t *testing.T) {
	conv := testConversation("reader", "alice")
	rows := []model.Message{
		{ID: primitive.NewObjectID(), ConversationID: conv.ID, SenderID: "alice", ReceiverID: "reader"},
		{ID: primitive.NewObjectID(), ConversationID: conv.ID, SenderID: "alice", ReceiverID: "reader"},
		{ID: primitive.NewObjectID(), ConversationID: conv.ID, SenderID: "bob", ReceiverID: "reader"},
	}

	batches := groupBySender(rows)
	require.Len(t, batches, 2)
	assert.Len(t, batches["alice"].MessageIDs, 2)
	assert.Len(t, batches["bob"].MessageIDs, 1)
	assert.Equal(t, "reader", batches["alice"].ReadBy)
}
