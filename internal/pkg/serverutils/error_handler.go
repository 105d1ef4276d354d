package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"vas-training-be/internal/apperror"
)

// ErrorHandlerMiddleware maps domain errors to HTTP responses so controllers
// can simply return them. Unknown errors become 500 without leaking detail.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var validationErr *apperror.ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, validationErr.Error()))
		}

		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(fiber.StatusNotFound, notFoundErr.Error()))
		}

		var stateErr *apperror.InvalidStateError
		if errors.As(err, &stateErr) {
			return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse(fiber.StatusConflict, stateErr.Error()))
		}

		var genErr *apperror.GenerationError
		if errors.As(err, &genErr) {
			// Timeouts and upstream outages are retryable for the caller.
			switch genErr.Kind {
			case apperror.GenerationTimeout:
				return ctx.Status(fiber.StatusGatewayTimeout).JSON(ErrorResponse(fiber.StatusGatewayTimeout, genErr.Error()))
			case apperror.GenerationUnavailable:
				return ctx.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse(fiber.StatusServiceUnavailable, genErr.Error()))
			default:
				return ctx.Status(fiber.StatusBadGateway).JSON(ErrorResponse(fiber.StatusBadGateway, genErr.Error()))
			}
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
	}
}
