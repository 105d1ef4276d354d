package controller

import (
	"github.com/gofiber/fiber/v2"

	"vas-training-be/internal/dto"
	"vas-training-be/internal/pkg/serverutils"
	"vas-training-be/internal/service"
)

type ISOPController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
}

type sopController struct {
	sopService service.ISOPService
}

func NewSOPController(sopService service.ISOPService) ISOPController {
	return &sopController{
		sopService: sopService,
	}
}

func (c *sopController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sop/v1")
	h.Post("", c.Ingest)
}

func (c *sopController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestSOPRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.sopService.Ingest(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ingest SOP document", res))
}
