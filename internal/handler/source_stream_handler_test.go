package handler

import (
	"context"
	"net/http/httptest"
	"testing"

	"notebook-sources-be/internal/auth"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/pkg/serverutils"
	"notebook-sources-be/internal/service"
	internalWS "notebook-sources-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type ownerOnlyAccess struct {
	owner    uuid.UUID
	notebook uuid.UUID
}

func (a ownerOnlyAccess) CheckAccess(ctx context.Context, notebookID uuid.UUID) error {
	userID, ok := auth.UserFromContext(ctx)
	if !ok {
		return service.ErrUnauthenticated
	}
	if userID != a.owner || notebookID != a.notebook {
		return service.ErrNotebookNotFound
	}
	return nil
}

type countingWatcher struct{ acquired int }

func (w *countingWatcher) Acquire(ctx context.Context, notebookID uuid.UUID) error {
	w.acquired++
	return nil
}

func (w *countingWatcher) Release(notebookID uuid.UUID) {}

func signUser(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID.String()}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestSourceStreamHandshake(t *testing.T) {
	access := ownerOnlyAccess{owner: uuid.New(), notebook: uuid.New()}
	watcher := &countingWatcher{}
	log := logger.NewNopLogger()

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(log))
	NewSourceStreamHandler(internalWS.NewHub(nil, log), watcher, access, testSecret, log).RegisterRoutes(app.Group("/api"))

	tests := []struct {
		name     string
		token    string
		notebook string
		want     int
	}{
		{name: "no token", notebook: access.notebook.String(), want: fiber.StatusUnauthorized},
		{name: "bad notebook id", token: signUser(t, access.owner), notebook: "nope", want: fiber.StatusBadRequest},
		{name: "foreign notebook", token: signUser(t, uuid.New()), notebook: access.notebook.String(), want: fiber.StatusNotFound},
		{name: "unknown notebook", token: signUser(t, access.owner), notebook: uuid.NewString(), want: fiber.StatusNotFound},
		// Authorized; a plain GET then fails only for lack of an upgrade.
		{name: "owner", token: signUser(t, access.owner), notebook: access.notebook.String(), want: fiber.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/api/source/v1/ws?notebook_id=" + tt.notebook
			if tt.token != "" {
				url += "&token=" + tt.token
			}
			resp, err := app.Test(httptest.NewRequest("GET", url, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
	assert.Zero(t, watcher.acquired)
}
