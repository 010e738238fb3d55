package controller

import (
	"notebook-sources-be/internal/dto"
	"notebook-sources-be/internal/pkg/serverutils"
	"notebook-sources-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISourceController interface {
	RegisterRoutes(r fiber.Router, protected fiber.Handler)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
}

type sourceController struct {
	service service.ISourceService
}

func NewSourceController(service service.ISourceService) ISourceController {
	return &sourceController{service: service}
}

func (c *sourceController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	h := r.Group("/source/v1")
	h.Use(protected)
	h.Get("", c.List)
	h.Post("", c.Create)
	h.Patch(":id", c.Update)
}

func (c *sourceController) List(ctx *fiber.Ctx) error {
	notebookID, err := uuid.Parse(ctx.Query("notebook_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid notebook_id")
	}

	res, err := c.service.List(ctx.UserContext(), notebookID)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sources", res))
}

func (c *sourceController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSourceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Add(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success add source", res))
}

func (c *sourceController) Update(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid source id")
	}

	var req dto.UpdateSourceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.Id = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Update(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update source", res))
}
