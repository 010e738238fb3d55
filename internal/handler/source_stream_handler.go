package handler

import (
	"context"

	"notebook-sources-be/internal/auth"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/pkg/serverutils"
	internalWS "notebook-sources-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// NotebookAccess decides whether the caller on ctx may watch a notebook.
type NotebookAccess interface {
	CheckAccess(ctx context.Context, notebookID uuid.UUID) error
}

// SourceStreamHandler upgrades authenticated requests to a websocket that
// streams a notebook's source changes and the user's notifications.
type SourceStreamHandler struct {
	hub       *internalWS.Hub
	watcher   internalWS.Watcher
	access    NotebookAccess
	jwtSecret string
	logger    logger.ILogger
}

func NewSourceStreamHandler(hub *internalWS.Hub, watcher internalWS.Watcher, access NotebookAccess, jwtSecret string, log logger.ILogger) *SourceStreamHandler {
	return &SourceStreamHandler{
		hub:       hub,
		watcher:   watcher,
		access:    access,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// RegisterRoutes must run before the source controller's group so the
// bearer-only middleware never sees the handshake.
func (h *SourceStreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/source/v1/ws", h.ServeWs)
}

func (h *SourceStreamHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on the handshake, so the query wins.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c.Get("Authorization"))
	}

	userID, err := serverutils.ParseUserToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("SourceStream", "Rejected websocket handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	notebookID := uuid.Nil
	if raw := c.Query("notebook_id"); raw != "" {
		notebookID, err = uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid notebook_id")
		}
		if err := h.access.CheckAccess(auth.WithUser(c.UserContext(), userID), notebookID); err != nil {
			h.logger.Warn("SourceStream", "Rejected notebook watch", map[string]interface{}{
				"user_id":     userID.String(),
				"notebook_id": notebookID.String(),
				"error":       err.Error(),
			})
			return err
		}
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		fields := map[string]interface{}{
			"user_id":     userID.String(),
			"notebook_id": notebookID.String(),
		}
		h.logger.Info("SourceStream", "Starting WebSocket session", fields)
		if err := internalWS.ServeWs(h.hub, h.watcher, conn, userID, notebookID); err != nil {
			fields["error"] = err.Error()
			h.logger.Error("SourceStream", "WebSocket session failed", fields)
			return
		}
		h.logger.Info("SourceStream", "WebSocket session ended", fields)
	})(c)
}
