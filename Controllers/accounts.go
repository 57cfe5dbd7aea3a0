package Controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Barista/Auth"
	"Barista/Models"
	"Barista/Store"
	"Barista/middleware"
)

// AccountController creates logins with their profiles and serves the
// caller's own profile.
type AccountController struct {
	Store    Store.Store
	Provider Auth.Provider
	Local    *Auth.LocalProvider
	Log      *logrus.Logger
}

func NewAccountController(store Store.Store, provider Auth.Provider, local *Auth.LocalProvider, log *logrus.Logger) *AccountController {
	return &AccountController{Store: store, Provider: provider, Local: local, Log: log}
}

// CreateUser creates a login and its profile. The route is guarded for
// superadmins; validation runs before anything is created and a failed
// profile write removes the login again.
func (a *AccountController) CreateUser(ctx *fiber.Ctx) error {
	var req Models.CreateUserRequest
	if ok, err := parseAndValidate(ctx, &req); !ok {
		return err
	}

	role := Models.ParseRole(req.Role)
	profile := Models.UserProfile{
		Name:  strings.TrimSpace(req.Name),
		Role:  role,
		Login: strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if role != Models.RoleSuperadmin {
		shopID := strings.TrimSpace(req.CoffeeshopID)
		shop, err := a.Store.GetCoffeeshop(ctx.UserContext(), shopID)
		if errors.Is(err, Store.ErrNotFound) {
			return invalidArgument(ctx, "coffeeshop_id does not name an existing coffeeshop")
		}
		if err != nil {
			a.Log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot load coffeeshop")
			return internalError(ctx, "Failed to retrieve coffeeshop")
		}
		profile.CoffeeshopID = &shop.ID
		if !shop.Location.IsZero() {
			loc := shop.Location
			profile.CoffeeshopLocation = &loc
		}
	}

	uid, err := a.Provider.CreateAccount(ctx.UserContext(), profile.Login, req.Password, profile.Name)
	if errors.Is(err, Auth.ErrEmailTaken) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":  "already-exists",
			"error": "A user with this email already exists",
		})
	}
	if err != nil {
		a.Log.WithError(err).Error("cannot create account")
		return internalError(ctx, "Failed to create account")
	}

	profile.ID = uid
	if err := a.Store.SaveProfile(ctx.UserContext(), profile); err != nil {
		a.Log.WithError(err).WithField("uid", uid).Error("cannot save profile, removing account")
		if derr := a.Provider.DeleteAccount(ctx.UserContext(), uid); derr != nil {
			a.Log.WithError(derr).WithField("uid", uid).Error("cannot remove orphaned account")
		}
		return internalError(ctx, "Failed to create user profile")
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"uid": uid})
}

// ListUsers lists the profiles of one coffeeshop. Superadmins see every
// profile unless they pass ?coffeeshop_id=.
func (a *AccountController) ListUsers(ctx *fiber.Ctx) error {
	profile, _ := middleware.CurrentProfile(ctx)
	shopID := profile.ShopID()
	if profile.Role == Models.RoleSuperadmin {
		shopID = ctx.Query("coffeeshop_id")
	} else if shopID == "" {
		return missingScope(ctx)
	}

	profiles, err := a.Store.ListProfiles(ctx.UserContext(), shopID)
	if err != nil {
		a.Log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot list profiles")
		return internalError(ctx, "Failed to retrieve users")
	}
	return ctx.JSON(profiles)
}

// Me returns the caller's profile.
func (a *AccountController) Me(ctx *fiber.Ctx) error {
	profile, _ := middleware.CurrentProfile(ctx)
	return ctx.JSON(profile)
}

// Login issues a session cookie. Only available with the local provider.
func (a *AccountController) Login(ctx *fiber.Ctx) error {
	if a.Local == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Login is handled by Firebase Authentication"})
	}

	var req Models.LoginRequest
	if ok, err := parseAndValidate(ctx, &req); !ok {
		return err
	}

	token, expires, err := a.Local.Login(ctx.UserContext(), req.Email, req.Password)
	if errors.Is(err, Auth.ErrInvalidCredentials) {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"code":  "unauthenticated",
			"error": "Invalid email or password",
		})
	}
	if err != nil {
		a.Log.WithError(err).Error("login failed")
		return internalError(ctx, "Failed to log in")
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return ctx.JSON(fiber.Map{"token": token, "expires_at": expires.Format(time.RFC3339)})
}

func (a *AccountController) Logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return ctx.JSON(fiber.Map{"message": "Logged out"})
}
