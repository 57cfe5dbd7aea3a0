package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Barista/Auth"
	"Barista/Models"
)

const profileKey = "profile"

// ProfileReader loads the stored profile of an authenticated uid.
type ProfileReader interface {
	GetProfile(ctx context.Context, uid string) (Models.UserProfile, error)
}

// Authenticator resolves the caller of a request into a profile.
type Authenticator struct {
	Provider Auth.Provider
	Profiles ProfileReader
	Log      *logrus.Logger
}

func NewAuthenticator(provider Auth.Provider, profiles ProfileReader, log *logrus.Logger) *Authenticator {
	return &Authenticator{Provider: provider, Profiles: profiles, Log: log}
}

// Verify rejects requests without a valid token (401) and callers whose
// stored role is below required (403).
func (a *Authenticator) Verify(required Models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":  "unauthenticated",
				"error": "Not Logged In.",
			})
		}

		uid, err := a.Provider.VerifyToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":  "unauthenticated",
				"error": "Invalid or expired token",
			})
		}

		profile := a.loadProfile(c.UserContext(), uid)
		c.Locals(profileKey, profile)

		if profile.Role.Level() < required.Level() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"code":  "permission-denied",
				"error": "Insufficient permissions to access this resource",
			})
		}
		return c.Next()
	}
}

// loadProfile never fails: a missing or unreadable profile degrades the
// caller to the lowest role instead of breaking the request.
func (a *Authenticator) loadProfile(ctx context.Context, uid string) Models.UserProfile {
	profile, err := a.Profiles.GetProfile(ctx, uid)
	if err != nil {
		if a.Log != nil {
			a.Log.WithError(err).WithField("uid", uid).Warn("profile lookup failed, using fallback role")
		}
		return Models.FallbackProfile(uid)
	}
	if !profile.Role.Valid() {
		profile.Role = Models.RoleStaff
	}
	return profile
}

// CurrentProfile returns the profile stored by Verify.
func CurrentProfile(c *fiber.Ctx) (Models.UserProfile, bool) {
	profile, ok := c.Locals(profileKey).(Models.UserProfile)
	return profile, ok
}

// bearerToken reads the Authorization header, falling back to the jwt cookie
// set by the local login.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Cookies("jwt")
}
