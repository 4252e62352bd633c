package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/middleware"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

// serviceError maps service sentinel errors to API errors. Anything
// unrecognised is logged and reported as a 500 with a generic message.
func serviceError(c fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInvalidCategory):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", err.Error())
	case errors.Is(err, model.ErrNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, model.ErrForbidden):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "FORBIDDEN", "Not allowed")
	case errors.Is(err, model.ErrConflict):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "DUPLICATE", "Segment already submitted")
	}

	log.Error().Err(err).Str("component", "handler").Str("action", action).
		Str("request_id", string(c.Response().Header.Peek(middleware.RequestIDHeader))).
		Msg("request failed")
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
}

func invalidField(c fiber.Ctx, msg string) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", msg)
}

// queryBool reads an optional boolean parameter, accepting "true"/"false"
// and "1"/"0".
func queryBool(c fiber.Ctx, key string, def bool) bool {
	switch c.Query(key) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return def
	}
}
