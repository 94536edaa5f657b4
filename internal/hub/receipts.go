package hub

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/repo"
)

// ReceiptAggregator bulk-marks messages read and relays one batched
// messages_read notification per original sender, instead of one event
// per message.
type ReceiptAggregator struct {
	messages  repo.MessageRepository
	publisher Publisher
	logger    *zap.Logger

	batches atomic.Uint64
}

func NewReceiptAggregator(messages repo.MessageRepository, publisher Publisher, logger *zap.Logger) *ReceiptAggregator {
	return &ReceiptAggregator{
		messages:  messages,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleMarkRead processes one mark_as_read frame from the viewing
// user. The store only flips rows addressed to that user, so ids
// belonging to someone else fall out silently. Failures are logged and
// not surfaced; receipts are best effort.
func (a *ReceiptAggregator) HandleMarkRead(ctx context.Context, c Conn, raw json.RawMessage) {
	var p event.MarkAsReadPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		a.logger.Debug("malformed mark_as_read payload", zap.Error(err))
		return
	}
	if len(p.MessageIDs) == 0 {
		return
	}

	updated, err := a.messages.MarkRead(ctx, p.MessageIDs, c.UserID())
	if err != nil {
		a.logger.Warn("mark-read failed",
			zap.String("reader_id", c.UserID()),
			zap.Error(err),
		)
		return
	}

	a.Notify(updated, c.UserID())
}

// Notify groups already-updated rows by their original sender and
// publishes exactly one messages_read event per distinct sender. Also
// used by the REST bulk mark-as-read handler so both entry points share
// one fan-out.
func (a *ReceiptAggregator) Notify(updated []model.Message, readBy string) {
	for senderID, batch := range groupBySender(updated) {
		ev, err := event.NewEvent(event.EventMessagesRead, batch)
		if err != nil {
			a.logger.Error("marshal messages_read failed", zap.Error(err))
			continue
		}
		a.publisher.PublishToUser(senderID, ev)
		a.batches.Add(1)

		a.logger.Debug("read receipt relayed",
			zap.String("sender_id", senderID),
			zap.String("read_by", readBy),
			zap.Int("messages", len(batch.MessageIDs)),
		)
	}
}

// groupBySender folds updated rows into one payload per original
// sender. Unread counters are not pushed; each client recomputes its
// badge from the id set it receives.
func groupBySender(updated []model.Message) map[string]event.MessagesReadPayload {
	batches := make(map[string]event.MessagesReadPayload)
	for _, msg := range updated {
		batch, ok := batches[msg.SenderID]
		if !ok {
			batch = event.MessagesReadPayload{
				ConversationID: msg.ConversationID.Hex(),
				ReadBy:         msg.ReceiverID,
			}
		}
		batch.MessageIDs = append(batch.MessageIDs, msg.ID.Hex())
		batches[msg.SenderID] = batch
	}
	return batches
}

// Batches reports how many receipt notifications were published.
func (a *ReceiptAggregator) Batches() uint64 {
	return a.batches.Load()
}
