package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pinwallet/pinwallet/internal/account"
)

// RegisterAccountRoutes wires the account and PIN endpoints. idempotent guards
// the state-changing routes only; verify-pin is a check and is never replayed,
// so every attempt reaches pinLimiter and the hash comparison. Either handler
// may be nil.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, idempotent, pinLimiter fiber.Handler) {
	r.Post("/register", chain(h.Register, idempotent)...)
	r.Post("/create-pin", chain(h.CreatePin, idempotent)...)
	r.Post("/verify-pin", chain(h.VerifyPin, pinLimiter)...)
	r.Get("/me", h.Me)
}

// chain prepends the non-nil middlewares to handler.
func chain(handler fiber.Handler, middlewares ...fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(middlewares)+1)
	for _, m := range middlewares {
		if m != nil {
			handlers = append(handlers, m)
		}
	}
	return append(handlers, handler)
}
