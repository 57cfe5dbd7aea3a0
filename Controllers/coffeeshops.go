package Controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Barista/Models"
	"Barista/Store"
)

type CoffeeshopController struct {
	Store Store.Store
	Log   *logrus.Logger
}

func NewCoffeeshopController(store Store.Store, log *logrus.Logger) *CoffeeshopController {
	return &CoffeeshopController{Store: store, Log: log}
}

func (c *CoffeeshopController) List(ctx *fiber.Ctx) error {
	shops, err := c.Store.ListCoffeeshops(ctx.UserContext())
	if err != nil {
		c.Log.WithError(err).Error("cannot list coffeeshops")
		return internalError(ctx, "Failed to retrieve coffeeshops")
	}
	return ctx.JSON(shops)
}

func (c *CoffeeshopController) Create(ctx *fiber.Ctx) error {
	var shop Models.Coffeeshop
	if ok, err := parseAndValidate(ctx, &shop); !ok {
		return err
	}
	shop.ID = ""
	if err := c.Store.CreateCoffeeshop(ctx.UserContext(), &shop); err != nil {
		c.Log.WithError(err).Error("cannot create coffeeshop")
		return internalError(ctx, "Failed to create coffeeshop")
	}
	return ctx.Status(fiber.StatusCreated).JSON(shop)
}
