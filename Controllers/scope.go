package Controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Barista/Models"
	"Barista/Store"
	"Barista/middleware"
)

// shopScope resolves which coffeeshop a request acts on. Superadmins pick
// one with ?coffeeshop_id=, everyone else is bound to their own.
func shopScope(ctx *fiber.Ctx) (string, bool) {
	profile, _ := middleware.CurrentProfile(ctx)
	if profile.Role == Models.RoleSuperadmin {
		shopID := ctx.Query("coffeeshop_id")
		return shopID, shopID != ""
	}
	shopID := profile.ShopID()
	return shopID, shopID != ""
}

func missingScope(ctx *fiber.Ctx) error {
	return invalidArgument(ctx, "coffeeshop_id is required")
}

func shopNotFound(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"code": "not-found", "error": "Coffeeshop not found"})
}

// KnownShop rejects a ?coffeeshop_id= that names no coffeeshop. Tenant
// data written under an unknown id would never be materialized.
func KnownShop(store Store.Store, log *logrus.Logger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		profile, _ := middleware.CurrentProfile(ctx)
		shopID := ctx.Query("coffeeshop_id")
		if profile.Role != Models.RoleSuperadmin || shopID == "" {
			return ctx.Next()
		}
		_, err := store.GetCoffeeshop(ctx.UserContext(), shopID)
		if errors.Is(err, Store.ErrNotFound) {
			return shopNotFound(ctx)
		}
		if err != nil {
			log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot load coffeeshop")
			return internalError(ctx, "Failed to retrieve coffeeshop")
		}
		return ctx.Next()
	}
}
