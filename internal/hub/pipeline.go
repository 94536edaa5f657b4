package hub

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/repo"
	apperrors "github.com/fatmadali94/rierco-laboratories-sub001/pkg/errors"
)

// Publisher fans one event out to every live connection of a user's
// topic. The hub implements it; tests substitute a recorder.
type Publisher interface {
	PublishToUser(userID string, ev event.WsEvent) int
}

// MessagePipeline carries a send request through validate, authorize,
// persist and fan-out. Persistence strictly precedes fan-out, so a
// pushed message is always present in a subsequent history fetch.
type MessagePipeline struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	publisher     Publisher
	logger        *zap.Logger

	sent   atomic.Uint64
	failed atomic.Uint64
}

func NewMessagePipeline(conversations repo.ConversationRepository, messages repo.MessageRepository, publisher Publisher, logger *zap.Logger) *MessagePipeline {
	return &MessagePipeline{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		logger:        logger,
	}
}

// HandleSend processes one send_message frame from connection c.
//
// The ack and the broadcast are two distinct emissions on purpose: the
// sender's other tabs and the originating tab must not receive the
// receive_message copy (it would duplicate the local echo), and the
// receiver never sees the ack.
func (p *MessagePipeline) HandleSend(ctx context.Context, c Conn, raw json.RawMessage) {
	var req event.SendMessagePayload
	if err := json.Unmarshal(raw, &req); err != nil {
		p.reject(c, apperrors.InvalidArg("malformed send_message payload"), "")
		return
	}

	msg, err := p.buildMessage(c.UserID(), &req)
	if err != nil {
		p.reject(c, err, req.CorrelationID)
		return
	}

	// Authorize before any write: the sender must be a participant and
	// the stated receiver must be the counterpart.
	conv, err := p.conversations.GetByID(ctx, req.ConversationID)
	if err != nil {
		p.reject(c, err, req.CorrelationID)
		return
	}
	if !conv.HasParticipant(c.UserID()) {
		p.reject(c, apperrors.ErrNotParticipant, req.CorrelationID)
		return
	}
	if conv.Counterpart(c.UserID()) != req.ReceiverID {
		p.reject(c, apperrors.ErrReceiverMismatch, req.CorrelationID)
		return
	}

	saved, err := p.messages.Insert(ctx, msg)
	if err != nil {
		p.reject(c, err, req.CorrelationID)
		return
	}

	// Preview refresh is best effort; the message row is the source of
	// truth either way.
	if err := p.conversations.SetLastMessage(ctx, saved); err != nil {
		p.logger.Warn("last-message preview update failed",
			zap.String("conversation_id", saved.ConversationID.Hex()),
			zap.Error(err),
		)
	}

	p.fanOut(c, saved, req.CorrelationID)
	p.sent.Add(1)
}

func (p *MessagePipeline) buildMessage(senderID string, req *event.SendMessagePayload) (*model.Message, error) {
	if req.ReceiverID == "" {
		return nil, apperrors.ErrMissingReceiver
	}
	if !model.ValidType(req.MessageType) {
		return nil, apperrors.ErrBadMessageType
	}

	convID, err := primitive.ObjectIDFromHex(req.ConversationID)
	if err != nil {
		return nil, apperrors.ErrBadConversationID
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     req.ReceiverID,
		Type:           req.MessageType,
		CreatedAt:      time.Now().UTC(),
	}

	switch req.MessageType {
	case model.MessageTypeText:
		body, err := req.Text()
		if err != nil || body == "" {
			return nil, apperrors.ErrEmptyMessage
		}
		msg.Body = body
	default:
		// Image and file bodies travel as one structured object end to
		// end; a quoted JSON string here would force the receiver to
		// parse twice and is rejected outright.
		file, err := req.FileBody()
		if err != nil || file.URL == "" {
			return nil, apperrors.ErrFileBodyNotObject
		}
		msg.File = file
	}

	return msg, nil
}

func (p *MessagePipeline) fanOut(c Conn, saved *model.Message, correlationID string) {
	outbound, err := event.NewEvent(event.EventReceiveMessage, event.OutboundMessage{
		Message:       *saved,
		SenderName:    c.UserName(),
		SenderImage:   c.UserAvatar(),
		CorrelationID: correlationID,
	})
	if err != nil {
		p.logger.Error("marshal receive_message failed", zap.Error(err))
	} else {
		reached := p.publisher.PublishToUser(saved.ReceiverID, outbound)
		p.logger.Debug("message fanned out",
			zap.String("message_id", saved.ID.Hex()),
			zap.String("receiver_id", saved.ReceiverID),
			zap.Int("connections", reached),
		)
	}

	ack, err := event.NewEvent(event.EventMessageSent, event.SentAck{
		Message:       *saved,
		CorrelationID: correlationID,
	})
	if err != nil {
		p.logger.Error("marshal message_sent failed", zap.Error(err))
		return
	}
	// Ack goes to the originating connection only. If it is lost to a
	// disconnect there is no retry; the client resynchronizes from
	// history on reconnect.
	c.SendEvent(ack)
}

// reject surfaces a failure to the triggering connection only; the
// receiver observes nothing.
func (p *MessagePipeline) reject(c Conn, err error, correlationID string) {
	p.failed.Add(1)
	p.logger.Warn("send rejected",
		zap.String("sender_id", c.UserID()),
		zap.Error(err),
	)

	ev, mErr := event.NewEvent(event.EventMessageError, event.ErrorPayload{
		Error:         err.Error(),
		Code:          string(apperrors.CodeOf(err)),
		CorrelationID: correlationID,
	})
	if mErr != nil {
		p.logger.Error("marshal message_error failed", zap.Error(mErr))
		return
	}
	c.SendEvent(ev)
}

// Stats reports how many sends succeeded and failed since startup.
func (p *MessagePipeline) Stats() (sent, failed uint64) {
	return p.sent.Load(), p.failed.Load()
}
