package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
)

const (
	dialTimeout      = 10 * time.Second
	writeTimeout     = 10 * time.Second
	reconnectBackoff = 2 * time.Second
	maxBackoff       = 30 * time.Second
)

// HistoryFetcher retrieves a conversation's recent message page from
// the REST surface. The reconciliation layer calls it after every
// reconnect because the transport keeps no outbound queue across drops.
type HistoryFetcher interface {
	RecentMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// Callbacks surface events the embedding UI reacts to. All are
// optional.
type Callbacks struct {
	OnUpdate     func(conversationID string)
	OnTyping     func(userID, conversationID string, typing bool)
	OnUserStatus func(userID, status string)
	OnError      func(err error)
}

// ChatClient keeps an optimistically rendered conversation consistent
// with server state: local echoes on send, in-place replacement on ack,
// full page resync after reconnect.
type ChatClient struct {
	url     string
	token   string
	selfID  string
	fetcher HistoryFetcher
	cb      Callbacks
	logger  *zap.Logger

	mu         sync.RWMutex
	conn       *websocket.Conn
	views      map[string]*ConversationView
	activeConv string
	closed     bool
}

func New(url, token, selfUserID string, fetcher HistoryFetcher, cb Callbacks, logger *zap.Logger) *ChatClient {
	return &ChatClient{
		url:     url,
		token:   token,
		selfID:  selfUserID,
		fetcher: fetcher,
		cb:      cb,
		logger:  logger,
		views:   make(map[string]*ConversationView),
	}
}

// Connect dials the gateway and starts the read loop. It returns after
// the first successful handshake; subsequent drops reconnect with
// backoff until Close or ctx cancellation.
func (c *ChatClient) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(ctx)
	return nil
}

func (c *ChatClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(dialCtx, c.url+"?token="+c.token, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	return conn, nil
}

func (c *ChatClient) readLoop(ctx context.Context) {
	backoff := reconnectBackoff

	for {
		var ev event.WsEvent
		err := c.currentConn().ReadJSON(&ev)
		if err == nil {
			backoff = reconnectBackoff
			c.dispatch(ev)
			continue
		}

		if c.isClosed() || ctx.Err() != nil {
			return
		}

		c.logger.Warn("transport dropped, reconnecting", zap.Error(err))

		// Reconnect, then resynchronize: acks that were in flight
		// during the outage are gone, so pending local state cannot be
		// trusted and the active conversation is re-fetched whole.
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			conn, dialErr := c.dial(ctx)
			if dialErr == nil {
				c.mu.Lock()
				c.conn = conn
				c.mu.Unlock()
				break
			}

			c.logger.Warn("reconnect failed", zap.Error(dialErr))
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		if err := c.Resync(ctx); err != nil {
			c.logger.Warn("post-reconnect resync failed", zap.Error(err))
			if c.cb.OnError != nil {
				c.cb.OnError(err)
			}
		}
	}
}

func (c *ChatClient) dispatch(ev event.WsEvent) {
	switch ev.Event {
	case event.EventMessageSent:
		var ack event.SentAck
		if err := json.Unmarshal(ev.Payload, &ack); err != nil {
			return
		}
		if view := c.viewFor(ack.ConversationID.Hex()); view != nil {
			if view.Resolve(ack.CorrelationID, ack.Message) {
				c.notifyUpdate(view.ConversationID())
			}
		}

	case event.EventReceiveMessage:
		var in event.OutboundMessage
		if err := json.Unmarshal(ev.Payload, &in); err != nil {
			return
		}
		if view := c.viewFor(in.ConversationID.Hex()); view != nil {
			view.AppendConfirmed(in.Message)
			c.notifyUpdate(view.ConversationID())
		}

	case event.EventMessageError:
		var fail event.ErrorPayload
		if err := json.Unmarshal(ev.Payload, &fail); err != nil {
			return
		}
		c.failPending(fail.CorrelationID)
		if c.cb.OnError != nil {
			c.cb.OnError(fmt.Errorf("send failed: %s", fail.Error))
		}

	case event.EventMessagesRead:
		var read event.MessagesReadPayload
		if err := json.Unmarshal(ev.Payload, &read); err != nil {
			return
		}
		if view := c.viewFor(read.ConversationID); view != nil {
			view.MarkRead(read.MessageIDs)
			c.notifyUpdate(read.ConversationID)
		}

	case event.EventUserTyping, event.EventUserStopTyping:
		var typing event.UserTypingPayload
		if err := json.Unmarshal(ev.Payload, &typing); err != nil {
			return
		}
		if c.cb.OnTyping != nil {
			c.cb.OnTyping(typing.UserID, typing.ConversationID, ev.Event == event.EventUserTyping)
		}

	case event.EventUserStatus:
		var status event.UserStatusPayload
		if err := json.Unmarshal(ev.Payload, &status); err != nil {
			return
		}
		if c.cb.OnUserStatus != nil {
			c.cb.OnUserStatus(status.UserID, status.Status)
		}
	}
}

// Send renders a local echo immediately and ships the frame. The
// returned correlation id identifies the pending entry until the ack
// resolves it.
func (c *ChatClient) Send(conversationID, receiverID, body, messageType string) (string, error) {
	correlationID := uuid.New().String()

	view := c.ensureView(conversationID)
	view.AppendPending(&LocalMessage{
		CorrelationID:  correlationID,
		ConversationID: conversationID,
		SenderID:       c.selfID,
		ReceiverID:     receiverID,
		Type:           messageType,
		Body:           body,
		CreatedAt:      time.Now(),
	})
	c.notifyUpdate(conversationID)

	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	err = c.writeEvent(event.EventSendMessage, event.SendMessagePayload{
		ConversationID: conversationID,
		ReceiverID:     receiverID,
		Message:        raw,
		MessageType:    messageType,
		CorrelationID:  correlationID,
	})
	if err != nil {
		view.Fail(correlationID)
		return correlationID, err
	}
	return correlationID, nil
}

// JoinConversation opens a conversation: loads its recent page, marks
// it active for resync, and tells the gateway.
func (c *ChatClient) JoinConversation(ctx context.Context, conversationID string) error {
	history, err := c.fetcher.RecentMessages(ctx, conversationID)
	if err != nil {
		return err
	}

	view := c.ensureView(conversationID)
	view.Reset(history)

	c.mu.Lock()
	c.activeConv = conversationID
	c.mu.Unlock()

	c.notifyUpdate(conversationID)
	return c.writeEvent(event.EventJoinConversation, event.JoinConversationPayload{ConversationID: conversationID})
}

// LeaveConversation clears the active conversation; stop_typing goes
// out first so the counterpart's indicator does not hang.
func (c *ChatClient) LeaveConversation(receiverID string) error {
	c.mu.Lock()
	conversationID := c.activeConv
	c.activeConv = ""
	c.mu.Unlock()

	if conversationID == "" {
		return nil
	}
	_ = c.StopTyping(receiverID, conversationID)
	return c.writeEvent(event.EventLeaveConversation, event.JoinConversationPayload{ConversationID: conversationID})
}

func (c *ChatClient) Typing(receiverID, conversationID string) error {
	return c.writeEvent(event.EventTyping, event.TypingPayload{ReceiverID: receiverID, ConversationID: conversationID})
}

func (c *ChatClient) StopTyping(receiverID, conversationID string) error {
	return c.writeEvent(event.EventStopTyping, event.TypingPayload{ReceiverID: receiverID, ConversationID: conversationID})
}

func (c *ChatClient) MarkAsRead(messageIDs []string) error {
	return c.writeEvent(event.EventMarkAsRead, event.MarkAsReadPayload{MessageIDs: messageIDs})
}

// Resync re-fetches the active conversation's recent page and rebuilds
// its view from server state, discarding unresolved pendings.
func (c *ChatClient) Resync(ctx context.Context) error {
	c.mu.RLock()
	conversationID := c.activeConv
	c.mu.RUnlock()

	if conversationID == "" {
		return nil
	}

	history, err := c.fetcher.RecentMessages(ctx, conversationID)
	if err != nil {
		return err
	}

	view := c.ensureView(conversationID)
	view.Reset(history)
	c.notifyUpdate(conversationID)
	return nil
}

// View exposes the rendered state of one conversation.
func (c *ChatClient) View(conversationID string) *ConversationView {
	return c.viewFor(conversationID)
}

func (c *ChatClient) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *ChatClient) writeEvent(name string, payload interface{}) error {
	ev, err := event.NewEvent(name, payload)
	if err != nil {
		return err
	}

	conn := c.currentConn()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(ev)
}

func (c *ChatClient) currentConn() *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *ChatClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *ChatClient) ensureView(conversationID string) *ConversationView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view, ok := c.views[conversationID]
	if !ok {
		view = NewConversationView(conversationID)
		c.views[conversationID] = view
	}
	return view
}

func (c *ChatClient) viewFor(conversationID string) *ConversationView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.views[conversationID]
}

func (c *ChatClient) failPending(correlationID string) {
	if correlationID == "" {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, view := range c.views {
		if view.Fail(correlationID) {
			if c.cb.OnUpdate != nil {
				go c.cb.OnUpdate(view.ConversationID())
			}
			return
		}
	}
}

func (c *ChatClient) notifyUpdate(conversationID string) {
	if c.cb.OnUpdate != nil {
		c.cb.OnUpdate(conversationID)
	}
}
