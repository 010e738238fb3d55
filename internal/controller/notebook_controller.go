package controller

import (
	"notebook-sources-be/internal/dto"
	"notebook-sources-be/internal/pkg/serverutils"
	"notebook-sources-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type INotebookController interface {
	RegisterRoutes(r fiber.Router, protected fiber.Handler)
	Generate(ctx *fiber.Ctx) error
	InFlight(ctx *fiber.Ctx) error
}

type notebookController struct {
	service service.INotebookService
}

func NewNotebookController(service service.INotebookService) INotebookController {
	return &notebookController{service: service}
}

func (c *notebookController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	h := r.Group("/notebook/v1")
	h.Use(protected)
	h.Post(":id/generate", c.Generate)

	g := r.Group("/generation/v1")
	g.Use(protected)
	g.Get("in-flight", c.InFlight)
}

func (c *notebookController) Generate(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid notebook id")
	}

	var req dto.GenerateNotebookRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.NotebookId = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Generate(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	if res.InProgress {
		body := serverutils.SuccessResponse("Generation already in progress", res)
		body.Code = fiber.StatusAccepted
		return ctx.Status(fiber.StatusAccepted).JSON(body)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate notebook", res))
}

func (c *notebookController) InFlight(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get in-flight generations", c.service.InFlight(ctx.UserContext())))
}
