package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Watcher keeps a notebook's source cache live while someone is looking at it.
type Watcher interface {
	Acquire(ctx context.Context, notebookID uuid.UUID) error
	Release(notebookID uuid.UUID)
}

// ServeWs runs one connection until the peer leaves. When notebookID is set
// the notebook's scope is held for the lifetime of the connection.
func ServeWs(hub *Hub, watcher Watcher, c *websocket.Conn, userID, notebookID uuid.UUID) error {
	client := &Client{Hub: hub, Conn: c, UserID: userID, NotebookID: notebookID, Send: make(chan []byte, sendBuffer)}

	// Registered before the scope opens so no applied change is missed.
	if !hub.Register(client) {
		c.Close()
		return ErrHubStopped
	}

	if notebookID != uuid.Nil {
		if err := watcher.Acquire(context.Background(), notebookID); err != nil {
			hub.Unregister(client)
			c.WriteJSON(message{Type: "error", Data: map[string]string{"message": "failed to load sources"}})
			c.Close()
			return err
		}
		defer watcher.Release(notebookID)
	}

	go client.writePump()
	client.readPump()
	return nil
}
