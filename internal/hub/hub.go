package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/event"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/identity"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/repo"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load

	handlerTimeout = 10 * time.Second // ceiling for one inbound event's store calls
)

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

// topicBucket holds one shard of the per-user topic map: user id to the
// set of that user's live connections. Publishing to "user:<id>" means
// delivering to every client in the inner map.
type topicBucket struct {
	sync.RWMutex
	users map[string]map[string]*Client
}

// Hub is the session gateway: it authenticates sockets, binds each one
// to its user's topic, and routes inbound frames to the messaging
// handlers.
type Hub struct {
	shards     [shardCount]*topicBucket
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage

	presence *PresenceRegistry
	pipeline *MessagePipeline
	typing   *TypingRelay
	receipts *ReceiptAggregator

	verifier identity.Verifier
	users    repo.UserRepository
	logger   *zap.Logger

	allowedOrigins map[string]bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Deps carries everything the hub needs wired in. The messaging
// handlers attach afterwards because they publish through the hub.
type Deps struct {
	Presence       *PresenceRegistry
	Verifier       identity.Verifier
	Users          repo.UserRepository
	Logger         *zap.Logger
	AllowedOrigins []string
}

func NewHub(deps Deps) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:       make(chan *Client, 1024),
		unregister:     make(chan *Client, 1024),
		inbound:        make(chan inboundMessage, 4096), // buffer for burst handling
		presence:       deps.Presence,
		verifier:       deps.Verifier,
		users:          deps.Users,
		logger:         deps.Logger,
		allowedOrigins: make(map[string]bool, len(deps.AllowedOrigins)),
		ctx:            ctx,
		cancel:         cancel,
	}

	for _, origin := range deps.AllowedOrigins {
		h.allowedOrigins[origin] = true
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &topicBucket{
			users: make(map[string]map[string]*Client),
		}
	}

	// run manager loop
	go h.run()

	// start worker loop
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in, ok := <-h.inbound:
					if !ok {
						return
					}
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

// Attach wires the messaging handlers. Must be called before the first
// connection is served.
func (h *Hub) Attach(pipeline *MessagePipeline, typing *TypingRelay, receipts *ReceiptAggregator) {
	h.pipeline = pipeline
	h.typing = typing
	h.receipts = receipts
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// handleEvent routes one inbound frame. It runs on a worker goroutine,
// so store and identity calls in the handlers never block the pumps.
func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	ctx, cancel := context.WithTimeout(h.ctx, handlerTimeout)
	defer cancel()

	switch ev.Event {
	case event.EventSendMessage:
		h.pipeline.HandleSend(ctx, c, ev.Payload)
	case event.EventTyping:
		h.typing.Relay(c, ev.Payload, false)
	case event.EventStopTyping:
		h.typing.Relay(c, ev.Payload, true)
	case event.EventMarkAsRead:
		h.receipts.HandleMarkRead(ctx, c, ev.Payload)
	case event.EventJoinConversation:
		var p event.JoinConversationPayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			c.setActiveConversation(p.ConversationID)
		}
	case event.EventLeaveConversation:
		c.setActiveConversation("")
	case event.EventUserOnline:
		h.sendPresenceSnapshot(c)
	default:
		h.logger.Warn("unknown event type",
			zap.String("event", ev.Event),
			zap.String("user_id", c.UserID()),
		)
	}
}

// sendPresenceSnapshot answers user_online with one user_status frame
// per currently online user, addressed to the requesting connection.
func (h *Hub) sendPresenceSnapshot(c *Client) {
	for _, userID := range h.presence.OnlineUsers() {
		if userID == c.UserID() {
			continue
		}
		ev, err := event.NewEvent(event.EventUserStatus, event.UserStatusPayload{
			UserID: userID,
			Status: event.StatusOnline,
		})
		if err != nil {
			continue
		}
		c.SendEvent(ev)
	}
}

func getShard(userID string) uint32 {
	if userID == "" {
		return 0
	}

	s := sha1.Sum([]byte(userID))
	return binary.BigEndian.Uint32(s[:4]) % shardCount
}

func (h *Hub) addClient(c *Client) {
	sh := getShard(c.UserID())
	b := h.shards[sh]
	b.Lock()
	set, ok := b.users[c.UserID()]
	if !ok {
		set = make(map[string]*Client)
		b.users[c.UserID()] = set
	}
	set[c.ID] = c
	b.Unlock()

	h.logger.Info("client bound to user topic",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.UserID()),
		zap.Uint32("shard", sh),
	)

	// First connection of this user announces them online. Additional
	// tabs must not toggle status.
	if first := h.presence.Add(c.UserID(), c.ID); first {
		h.broadcastStatus(c.UserID(), event.StatusOnline)
	}
}

func (h *Hub) removeClient(c *Client) {
	sh := getShard(c.UserID())
	b := h.shards[sh]
	b.Lock()
	removed := false
	if set, ok := b.users[c.UserID()]; ok {
		if _, exists := set[c.ID]; exists {
			delete(set, c.ID)
			removed = true
		}
		if len(set) == 0 {
			delete(b.users, c.UserID())
		}
	}
	b.Unlock()

	if !removed {
		return
	}

	c.Close()
	h.logger.Info("client removed from user topic",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.UserID()),
	)

	// Only the last connection going away announces the user offline.
	if last := h.presence.Remove(c.UserID(), c.ID); last {
		h.broadcastStatus(c.UserID(), event.StatusOffline)
	}
}

func (h *Hub) broadcastStatus(userID, status string) {
	ev, err := event.NewEvent(event.EventUserStatus, event.UserStatusPayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		h.logger.Error("marshal user_status failed", zap.Error(err))
		return
	}
	h.broadcastExcept(userID, ev)
}

// PublishToUser delivers ev to every live connection of userID and
// returns how many connections it reached.
func (h *Hub) PublishToUser(userID string, ev event.WsEvent) int {
	sh := getShard(userID)
	b := h.shards[sh]

	// collect clients while holding RLock
	b.RLock()
	set, ok := b.users[userID]
	if !ok || len(set) == 0 {
		b.RUnlock()
		return 0
	}
	clients := make([]*Client, 0, len(set))
	for _, c := range set {
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver without holding the lock
	delivered := 0
	for _, c := range clients {
		if c.SendEvent(ev) {
			delivered++
		}
	}
	return delivered
}

// broadcastExcept delivers ev to every connected user other than
// exceptUserID. Used only for presence transitions.
func (h *Hub) broadcastExcept(exceptUserID string, ev event.WsEvent) {
	for _, shard := range h.shards {
		shard.RLock()
		clients := make([]*Client, 0)
		for userID, set := range shard.users {
			if userID == exceptUserID {
				continue
			}
			for _, c := range set {
				clients = append(clients, c)
			}
		}
		shard.RUnlock()

		for _, c := range clients {
			c.SendEvent(ev)
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()

	// Close all client connections
	for _, shard := range h.shards {
		shard.RLock()
		for _, set := range shard.users {
			for _, client := range set {
				client.Close()
			}
		}
		shard.RUnlock()
	}

	close(h.inbound)
	h.wg.Wait()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.allowedOrigins[origin]
}

// ServeWS authenticates the handshake and upgrades the connection. The
// bearer token comes from the Authorization header or, for browser
// websocket clients that cannot set headers, the token query parameter.
// Verification failure refuses the socket before any hub state exists.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	ident, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		h.logger.Warn("handshake rejected", zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Refresh the local profile mirror; display fields ride on every
	// outbound message. Best effort.
	if err := h.users.Sync(r.Context(), ident); err != nil {
		h.logger.Warn("profile sync failed",
			zap.String("user_id", ident.UserID),
			zap.Error(err),
		)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	registerClient(*ident, conn, h)
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		return auth
	}
	return r.URL.Query().Get("token")
}
