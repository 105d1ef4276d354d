package controller

import (
	"github.com/gofiber/fiber/v2"

	"vas-training-be/internal/apperror"
	"vas-training-be/internal/dto"
	"vas-training-be/internal/pkg/serverutils"
	"vas-training-be/internal/service"
)

type ITrainingController interface {
	RegisterRoutes(r fiber.Router)
	StartSession(ctx *fiber.Ctx) error
	Respond(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	EndSession(ctx *fiber.Ctx) error
	PauseSession(ctx *fiber.Ctx) error
	ResumeSession(ctx *fiber.Ctx) error
	GetFeedback(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
}

type trainingController struct {
	trainingService service.ITrainingService
}

func NewTrainingController(trainingService service.ITrainingService) ITrainingController {
	return &trainingController{
		trainingService: trainingService,
	}
}

func (c *trainingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/training/v1")
	h.Get("sessions", c.ListSessions)
	h.Post("session", c.StartSession)
	h.Get("session/:id", c.Status)
	h.Post("session/:id/respond", c.Respond)
	h.Post("session/:id/end", c.EndSession)
	h.Post("session/:id/pause", c.PauseSession)
	h.Post("session/:id/resume", c.ResumeSession)
	h.Get("session/:id/feedback", c.GetFeedback)
}

func (c *trainingController) StartSession(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.trainingService.Start(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success start training session", res))
}

func (c *trainingController) Respond(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	var req dto.RespondRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.trainingService.Respond(ctx.Context(), sessionID, req.UserResponse)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process response", res))
}

func (c *trainingController) Status(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	res, err := c.trainingService.Status(sessionID)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session status", res))
}

func (c *trainingController) EndSession(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	res, err := c.trainingService.End(ctx.Context(), sessionID)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success end session", res))
}

func (c *trainingController) PauseSession(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	if !c.trainingService.Pause(sessionID) {
		return apperror.NewNotFound("active session", sessionID)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success pause session", fiber.Map{"session_id": sessionID}))
}

func (c *trainingController) ResumeSession(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	if !c.trainingService.Resume(sessionID) {
		return apperror.NewNotFound("paused session", sessionID)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success resume session", fiber.Map{"session_id": sessionID}))
}

func (c *trainingController) GetFeedback(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	res, err := c.trainingService.GetFeedback(sessionID)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session feedback", res))
}

func (c *trainingController) ListSessions(ctx *fiber.Ctx) error {
	sessions, stats := c.trainingService.ListSessions()

	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", fiber.Map{
		"sessions": sessions,
		"stats":    stats,
	}))
}
