package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/videorobot/api/internal/model"
)

// Envelope is the shape of every JSON reply: exactly one of Data and Error
// is set, and OK mirrors which one.
type Envelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *Detail     `json:"error,omitempty"`
}

type Detail struct {
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Envelope{OK: true, Data: data})
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(Envelope{OK: true, Data: data})
}

func Error(c *fiber.Ctx, status int, kind, message string, details interface{}) error {
	return c.Status(status).JSON(Envelope{
		Error: &Detail{Kind: kind, Message: message, Details: details},
	})
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, model.KindValidation, message, details)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, model.KindNotFound, message, nil)
}

func Capacity(c *fiber.Ctx, message string) error {
	c.Set(fiber.HeaderRetryAfter, "5")
	return Error(c, fiber.StatusTooManyRequests, model.KindCapacity, message, nil)
}

func Conflict(c *fiber.Ctx, kind, message string) error {
	return Error(c, fiber.StatusConflict, kind, message, nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, model.KindComposition, message, nil)
}

// FromError maps a pipeline error to its HTTP reply by kind.
func FromError(c *fiber.Ctx, err error) error {
	kind := model.ErrKind(err)
	switch kind {
	case model.KindValidation:
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return Error(c, fiber.StatusBadRequest, kind, verr.Error(), verr.Fields)
		}
		return ValidationError(c, err.Error(), nil)
	case model.KindAsset:
		return Error(c, fiber.StatusBadRequest, kind, err.Error(), nil)
	case model.KindCapacity:
		return Capacity(c, err.Error())
	case model.KindNotFound:
		return NotFound(c, err.Error())
	default:
		return Error(c, fiber.StatusInternalServerError, kind, err.Error(), nil)
	}
}
