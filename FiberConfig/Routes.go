package FiberConfig

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"Barista/Auth"
	"Barista/Config"
	"Barista/Controllers"
	"Barista/CronJobs"
	"Barista/Models"
	"Barista/Store"
	"Barista/middleware"
)

// Dependencies are the services the HTTP layer is built from.
type Dependencies struct {
	Config       Config.AppConfig
	Store        Store.Store
	Provider     Auth.Provider
	Local        *Auth.LocalProvider
	Materializer *CronJobs.Materializer
	Devices      Controllers.DeviceSubscriber
	Log          *logrus.Logger
}

func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             10 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Log),
	})

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.CORSOrigin,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: deps.Config.CORSOrigin != "*",
	}))
	app.Use(middleware.LoggingMiddleware(middleware.DefaultLogConfig(deps.Log)))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Static("/uploads", deps.Config.UploadDir, fiber.Static{Compress: true, CacheDuration: 10 * time.Second})

	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	authn := middleware.NewAuthenticator(deps.Provider, deps.Store, deps.Log)

	accounts := Controllers.NewAccountController(deps.Store, deps.Provider, deps.Local, deps.Log)
	coffeeshops := Controllers.NewCoffeeshopController(deps.Store, deps.Log)
	tasks := Controllers.NewTaskController(deps.Store, deps.Log)
	results := Controllers.NewTaskResultController(deps.Store, deps.Materializer.Location(), deps.Config.UploadDir, deps.Log)
	fanout := Controllers.NewFanoutController(deps.Materializer)
	devices := Controllers.NewDeviceController(deps.Devices, deps.Log)
	shifts := Controllers.NewShiftController(deps.Store, deps.Materializer.Location(), deps.Config.ShiftRadiusMeters, deps.Log)
	knownShop := Controllers.KnownShop(deps.Store, deps.Log)

	api := app.Group("/api")

	api.Post("/login", accounts.Login)
	api.Post("/logout", accounts.Logout)
	api.Get("/me", authn.Verify(Models.RoleStaff), accounts.Me)
	api.Post("/me/device-token", authn.Verify(Models.RoleStaff), knownShop, devices.RegisterToken)

	api.Get("/users", authn.Verify(Models.RoleAdmin), knownShop, accounts.ListUsers)
	api.Post("/users", authn.Verify(Models.RoleSuperadmin), accounts.CreateUser)

	shops := api.Group("/coffeeshops", authn.Verify(Models.RoleSuperadmin))
	shops.Get("/", coffeeshops.List)
	shops.Post("/", coffeeshops.Create)

	taskRoutes := api.Group("/tasks", authn.Verify(Models.RoleAdmin), knownShop)
	taskRoutes.Get("/", tasks.List)
	taskRoutes.Post("/", tasks.Create)
	taskRoutes.Put("/:id", tasks.Update)

	// export before :id routes
	resultRoutes := api.Group("/results", authn.Verify(Models.RoleStaff), knownShop)
	resultRoutes.Get("/", results.List)
	resultRoutes.Get("/export", authn.Verify(Models.RoleAdmin), results.Export)
	resultRoutes.Patch("/:id/status", results.UpdateStatus)
	resultRoutes.Post("/:id/photo", results.UploadPhoto)

	shiftRoutes := api.Group("/shifts", authn.Verify(Models.RoleStaff), knownShop)
	shiftRoutes.Get("/", authn.Verify(Models.RoleAdmin), shifts.List)
	shiftRoutes.Post("/check-in", shifts.CheckIn)
	shiftRoutes.Post("/check-out", shifts.CheckOut)

	api.Post("/fanout", authn.Verify(Models.RoleSuperadmin), fanout.Run)
}

func errorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
			return c.Status(code).JSON(fiber.Map{"code": "internal", "error": "Internal server error"})
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
