package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pinwallet/pinwallet/internal/identity"
)

const (
	bearerPrefix      = "bearer "
	identityLocalsKey = "identity"
)

// Bearer verifies the Authorization bearer token with the identity verifier and
// stores the resulting identity for downstream handlers.
func Bearer(verifier identity.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len(bearerPrefix) || !strings.EqualFold(authz[:len(bearerPrefix)], bearerPrefix) {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}
		token := strings.TrimSpace(authz[len(bearerPrefix):])
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}

		id, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrExpiredToken):
				return fiber.NewError(http.StatusUnauthorized, "Token expired")
			case errors.Is(err, identity.ErrInvalidToken):
				return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
			default:
				return fiber.NewError(http.StatusInternalServerError, err.Error())
			}
		}

		c.Locals(identityLocalsKey, id)
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by Bearer.
func CurrentIdentity(c *fiber.Ctx) (identity.Identity, bool) {
	id, ok := c.Locals(identityLocalsKey).(identity.Identity)
	return id, ok
}
