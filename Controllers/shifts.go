package Controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Barista/Config"
	"Barista/Models"
	"Barista/Store"
	"Barista/middleware"
)

// ShiftController records staff attendance against the coffeeshop location.
type ShiftController struct {
	Store    Store.Store
	Location *time.Location
	Radius   float64
	Log      *logrus.Logger
	now      func() time.Time
}

func NewShiftController(store Store.Store, loc *time.Location, radius float64, log *logrus.Logger) *ShiftController {
	if radius <= 0 {
		radius = Config.DefaultShiftRadius
	}
	return &ShiftController{Store: store, Location: loc, Radius: radius, Log: log, now: time.Now}
}

func (c *ShiftController) CheckIn(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	var req Models.CheckInRequest
	if ok, err := parseAndValidate(ctx, &req); !ok {
		return err
	}

	profile, _ := middleware.CurrentProfile(ctx)
	shopLocation, err := c.shopLocation(ctx, profile, shopID)
	if errors.Is(err, Store.ErrNotFound) {
		return shopNotFound(ctx)
	}
	if err != nil {
		c.Log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot load coffeeshop")
		return internalError(ctx, "Failed to retrieve coffeeshop")
	}

	now := c.now()
	shift := Models.Shift{
		UserID:   profile.ID,
		Date:     Models.DateIn(now, c.Location),
		Location: req.Point(),
		CheckIn:  now,
	}
	// coffeeshops created without a location accept any position
	if !shopLocation.IsZero() {
		shift.Distance = shift.Location.DistanceTo(shopLocation)
		if shift.Distance > c.Radius {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
				"code":  "failed-precondition",
				"error": fmt.Sprintf("Check-in is %.0f m away from the coffeeshop", shift.Distance),
			})
		}
	}

	err = c.Store.CreateShift(ctx.UserContext(), shopID, &shift)
	if errors.Is(err, Store.ErrShiftOpen) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":  "failed-precondition",
			"error": "Check out of the current shift first",
		})
	}
	if err != nil {
		c.Log.WithError(err).WithField("uid", profile.ID).Error("cannot create shift")
		return internalError(ctx, "Failed to check in")
	}
	return ctx.Status(fiber.StatusCreated).JSON(shift)
}

func (c *ShiftController) CheckOut(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	profile, _ := middleware.CurrentProfile(ctx)

	shift, err := c.Store.OpenShift(ctx.UserContext(), shopID, profile.ID)
	if errors.Is(err, Store.ErrNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"code": "not-found", "error": "No open shift"})
	}
	if err != nil {
		c.Log.WithError(err).WithField("uid", profile.ID).Error("cannot load open shift")
		return internalError(ctx, "Failed to retrieve shift")
	}

	out := c.now()
	shift.CheckOut = &out
	if err := c.Store.CloseShift(ctx.UserContext(), shopID, shift); err != nil {
		c.Log.WithError(err).WithField("shift_id", shift.ID).Error("cannot close shift")
		return internalError(ctx, "Failed to check out")
	}
	return ctx.JSON(shift)
}

// List returns the shifts between from and to (inclusive), today by default.
func (c *ShiftController) List(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	today := Models.DateIn(c.now(), c.Location)
	from, to := ctx.Query("from", today), ctx.Query("to", today)
	for _, d := range []string{from, to} {
		if _, err := Models.ParseDate(d, c.Location); err != nil {
			return invalidArgument(ctx, err.Error())
		}
	}

	shifts, err := c.Store.ListShifts(ctx.UserContext(), shopID, from, to)
	if err != nil {
		c.Log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot list shifts")
		return internalError(ctx, "Failed to retrieve shifts")
	}
	return ctx.JSON(shifts)
}

// shopLocation prefers the copy kept on the profile and reads the
// coffeeshop only when the profile has none.
func (c *ShiftController) shopLocation(ctx *fiber.Ctx, profile Models.UserProfile, shopID string) (Models.GeoPoint, error) {
	if profile.CoffeeshopLocation != nil && profile.ShopID() == shopID {
		return *profile.CoffeeshopLocation, nil
	}
	shop, err := c.Store.GetCoffeeshop(ctx.UserContext(), shopID)
	if err != nil {
		return Models.GeoPoint{}, err
	}
	return shop.Location, nil
}
