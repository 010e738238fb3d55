package controller

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"notebook-sources-be/internal/auth"
	"notebook-sources-be/internal/dto"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotebookService struct {
	running bool
}

func (s *stubNotebookService) Generate(ctx context.Context, req *dto.GenerateNotebookRequest) (*dto.GenerateNotebookResponse, error) {
	if s.running {
		return &dto.GenerateNotebookResponse{NotebookId: req.NotebookId, InProgress: true}, nil
	}
	return &dto.GenerateNotebookResponse{NotebookId: req.NotebookId, Result: json.RawMessage(`{"success":true}`)}, nil
}

func (s *stubNotebookService) InFlight(ctx context.Context) *dto.InFlightGenerationResponse {
	return &dto.InFlightGenerationResponse{}
}

func (s *stubNotebookService) CheckAccess(ctx context.Context, notebookID uuid.UUID) error {
	return nil
}

func TestNotebookControllerGenerate(t *testing.T) {
	tests := []struct {
		name       string
		running    bool
		wantStatus int
	}{
		{name: "started", wantStatus: fiber.StatusOK},
		{name: "already running", running: true, wantStatus: fiber.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
			fakeAuth := func(c *fiber.Ctx) error {
				c.SetUserContext(auth.WithUser(c.UserContext(), uuid.New()))
				return c.Next()
			}
			NewNotebookController(&stubNotebookService{running: tt.running}).RegisterRoutes(app.Group("/api"), fakeAuth)

			notebookID := uuid.New()
			req := httptest.NewRequest("POST", "/api/notebook/v1/"+notebookID.String()+"/generate", strings.NewReader(`{"source_type":"text"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body serverutils.BaseResponse[dto.GenerateNotebookResponse]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.True(t, body.Success)
			assert.Equal(t, tt.running, body.Data.InProgress)
			assert.Equal(t, notebookID, body.Data.NotebookId)
		})
	}
}
