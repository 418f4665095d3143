package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/metrics"
	"github.com/Skotchmaster/etutoring/internal/models"
)

type MessageSender interface {
	SendMessage(ctx context.Context, senderID, recipientID uuid.UUID, content string) (*models.Message, error)
}

type MeetingAuthorizer interface {
	CanJoin(ctx context.Context, userID uuid.UUID, role string, meetingID uuid.UUID) (bool, error)
}

type HubConfig struct {
	Backplane Backplane
	Messages  MessageSender
	Meetings  MeetingAuthorizer
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Hub tracks room membership of the connections served by this instance.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}

	backplane Backplane
	messages  MessageSender
	meetings  MeetingAuthorizer
	metrics   *metrics.Metrics
	log       *slog.Logger
	baseCtx   context.Context
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Backplane == nil {
		cfg.Backplane = NewLocalBackplane()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		clients:   make(map[*Client]struct{}),
		backplane: cfg.Backplane,
		messages:  cfg.Messages,
		meetings:  cfg.Meetings,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		baseCtx:   logging.IntoContext(context.Background(), cfg.Logger),
	}
}

// Start attaches the hub to its backplane. Frames published before Start are dropped.
func (h *Hub) Start(ctx context.Context) error {
	h.baseCtx = logging.IntoContext(ctx, h.log)
	return h.backplane.Start(ctx, h.deliverLocal)
}

func (h *Hub) Close() error {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
	return h.backplane.Close()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, UserRoom(c.user.ID))
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
}

// unregister drops c from every room and tells everyone the user went offline.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	h.mu.Unlock()
	h.metrics.ConnectionClosed()

	h.publish(h.baseCtx, broadcastRoom, EventUserOffline, map[string]any{"user_id": c.user.ID})
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	h.joinLocked(c, room)
	h.mu.Unlock()
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	h.leaveLocked(c, room)
	h.mu.Unlock()
}

func (h *Hub) inRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// deliverLocal hands frame to local members without holding the lock while enqueueing.
func (h *Hub) deliverLocal(room string, frame []byte) {
	h.mu.RLock()
	var targets []*Client
	if room == broadcastRoom {
		targets = make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			targets = append(targets, c)
		}
	} else {
		members := h.rooms[room]
		targets = make([]*Client, 0, len(members))
		for c := range members {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(frame)
	}
}

func (h *Hub) publish(ctx context.Context, room, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		logging.FromContext(ctx).Error("hub_encode_error", "event", event, "error", err)
		return
	}
	if err := h.backplane.Publish(ctx, room, frame); err != nil {
		logging.FromContext(ctx).Error("hub_publish_error", "room", room, "event", event, "error", err)
	}
}

// SendToUser delivers an event to every connection of the user across instances.
func (h *Hub) SendToUser(ctx context.Context, userID uuid.UUID, event string, data any) {
	h.publish(ctx, UserRoom(userID), event, data)
}

// PushNotification relays a freshly stored notification.
func (h *Hub) PushNotification(userID uuid.UUID, n *models.Notification) {
	h.SendToUser(h.baseCtx, userID, EventNotification, n)
}

// RelayMessage forwards a message persisted outside the socket to its recipient.
func (h *Hub) RelayMessage(ctx context.Context, m *models.Message) {
	h.SendToUser(ctx, m.RecipientID, EventReceiveMessage, m)
}

// Connections reports how many sockets this instance serves.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Online(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[UserRoom(userID)]) > 0
}
