package Controllers

import (
	"github.com/gofiber/fiber/v2"

	"Barista/CronJobs"
	"Barista/Models"
)

type FanoutController struct {
	Materializer *CronJobs.Materializer
}

func NewFanoutController(m *CronJobs.Materializer) *FanoutController {
	return &FanoutController{Materializer: m}
}

// Run triggers a fan-out for ?date= (default today). Safe to repeat.
func (c *FanoutController) Run(ctx *fiber.Ctx) error {
	if date := ctx.Query("date"); date != "" {
		day, err := Models.ParseDate(date, c.Materializer.Location())
		if err != nil {
			return invalidArgument(ctx, err.Error())
		}
		return c.respond(ctx, c.Materializer.RunFor(ctx.UserContext(), day))
	}
	return c.respond(ctx, c.Materializer.Run(ctx.UserContext()))
}

func (c *FanoutController) respond(ctx *fiber.Ctx, report CronJobs.Report) error {
	if report.Error != "" {
		return ctx.Status(fiber.StatusBadGateway).JSON(report)
	}
	return ctx.JSON(report)
}
