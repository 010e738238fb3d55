package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"notebook-sources-be/internal/cache"
	"notebook-sources-be/internal/entity"
	"notebook-sources-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

// ErrHubStopped is returned to connections that arrive after Run has exited.
var ErrHubStopped = errors.New("websocket hub stopped")

const (
	MessageNotification = "notification"
	MessageSourceChange = "source_change"
)

type message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type sourceChangeData struct {
	NotebookId uuid.UUID         `json:"notebook_id"`
	Kind       entity.ChangeKind `json:"kind"`
	Record     entity.Source     `json:"record"`
}

// clusterEnvelope carries a notification to the other instances. Source
// changes never travel this way; every instance reads the feed itself.
type clusterEnvelope struct {
	Origin           string          `json:"origin"`
	TargetUserID     string          `json:"target_user_id,omitempty"`
	TargetNotebookID string          `json:"target_notebook_id,omitempty"`
	Message          json.RawMessage `json:"message"`
}

type Hub struct {
	// UserID -> connections (multi-device)
	clients map[uuid.UUID][]*Client

	// NotebookID -> connections watching that notebook
	watchers map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	// Closed when Run exits so late senders never block.
	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex

	// Redis connection for cross-instance notifications. Optional.
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		watchers:   make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.done) })

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			if client.NotebookID != uuid.Nil {
				h.watchers[client.NotebookID] = append(h.watchers[client.NotebookID], client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"user_id":     client.UserID.String(),
				"notebook_id": client.NotebookID.String(),
			})

		case client := <-h.unregister:
			h.mu.Lock()
			removed := removeClient(h.clients, client.UserID, client)
			if client.NotebookID != uuid.Nil {
				removeClient(h.watchers, client.NotebookID, client)
			}
			if removed {
				close(client.Send)
			}
			h.mu.Unlock()
			if removed {
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{
					"user_id":     client.UserID.String(),
					"notebook_id": client.NotebookID.String(),
				})
			}
		}
	}
}

// Register hands client to the running hub. It reports false once the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client and closes its Send channel. It is a no-op for
// unknown clients and after the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// removeClient drops client from index[key] and reports whether it was there.
func removeClient(index map[uuid.UUID][]*Client, key uuid.UUID, client *Client) bool {
	clients := index[key]
	for i, c := range clients {
		if c == client {
			clients = append(clients[:i], clients[i+1:]...)
			if len(clients) == 0 {
				delete(index, key)
			} else {
				index[key] = clients
			}
			return true
		}
	}
	return false
}

// Send delivers a notification to every connection of userID, here and on
// the other instances.
func (h *Hub) Send(userID uuid.UUID, notification entity.Notification) {
	data, err := json.Marshal(message{Type: MessageNotification, Data: notification})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode notification", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	h.deliverLocked(h.clients[userID], data)
	h.mu.RUnlock()

	h.publishCluster(clusterEnvelope{TargetUserID: userID.String(), Message: data})
}

// SendToNotebook delivers a notification to everyone watching notebookID.
func (h *Hub) SendToNotebook(notebookID uuid.UUID, notification entity.Notification) {
	data, err := json.Marshal(message{Type: MessageNotification, Data: notification})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode notification", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	h.deliverLocked(h.watchers[notebookID], data)
	h.mu.RUnlock()

	h.publishCluster(clusterEnvelope{TargetNotebookID: notebookID.String(), Message: data})
}

// ObserveSourceChange streams an applied change to the notebook's watchers.
// It is called on the feed goroutine and never blocks.
func (h *Hub) ObserveSourceChange(ctx context.Context, notebookID uuid.UUID, change cache.Change) {
	data, err := json.Marshal(message{
		Type: MessageSourceChange,
		Data: sourceChangeData{
			NotebookId: notebookID,
			Kind:       change.Event.Kind,
			Record:     change.Event.Record,
		},
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode source change", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	h.deliverLocked(h.watchers[notebookID], data)
	h.mu.RUnlock()
}

// Watchers returns how many local connections watch notebookID.
func (h *Hub) Watchers(notebookID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[notebookID])
}

// deliverLocked must be called with h.mu held for reading. A client whose
// buffer is full loses the message and is disconnected.
func (h *Hub) deliverLocked(clients []*Client, data []byte) {
	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{
				"user_id": client.UserID.String(),
			})
			go h.Unregister(client)
		}
	}
}

func (h *Hub) publishCluster(env clusterEnvelope) {
	if h.rdb == nil {
		return
	}
	env.Origin = h.instanceID
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Failed to publish to redis", map[string]interface{}{"error": err.Error()})
	}
}

// subscribeToRedis relays notifications published by other instances to the
// local connections they target.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.relay([]byte(msg.Payload))
	}
}

func (h *Hub) relay(raw []byte) {
	var env clusterEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if env.Origin == h.instanceID {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if id, err := uuid.Parse(env.TargetUserID); err == nil {
		h.deliverLocked(h.clients[id], env.Message)
	}
	if id, err := uuid.Parse(env.TargetNotebookID); err == nil {
		h.deliverLocked(h.watchers[id], env.Message)
	}
}
