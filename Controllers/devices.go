package Controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Barista/Models"
)

// DeviceSubscriber puts a device on the push topic of a coffeeshop.
type DeviceSubscriber interface {
	Subscribe(ctx context.Context, token, shopID string) error
}

type DeviceController struct {
	Subscriber DeviceSubscriber
	Log        *logrus.Logger
}

func NewDeviceController(subscriber DeviceSubscriber, log *logrus.Logger) *DeviceController {
	return &DeviceController{Subscriber: subscriber, Log: log}
}

// RegisterToken subscribes the caller's device to "tasks ready" pushes.
func (d *DeviceController) RegisterToken(ctx *fiber.Ctx) error {
	if d.Subscriber == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Push notifications are disabled"})
	}
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	var req Models.DeviceTokenRequest
	if ok, err := parseAndValidate(ctx, &req); !ok {
		return err
	}

	if err := d.Subscriber.Subscribe(ctx.UserContext(), req.Value, shopID); err != nil {
		d.Log.WithError(err).WithField("coffeeshop_id", shopID).Warn("cannot register device token")
		return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{"code": "unavailable", "error": "Failed to register device"})
	}
	return ctx.JSON(fiber.Map{"message": "Token registered successfully"})
}
