package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func verifyStatus(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/verify-pin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestPinAttemptLimit(t *testing.T) {
	cache := newTestCache(t)
	app := fiber.New()
	app.Use(Bearer(staticVerifier))
	app.Post("/verify-pin", PinAttemptLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		if status := verifyStatus(t, app, "tok-u1"); status != fiber.StatusOK {
			t.Fatalf("attempt %d: expected %d got %d", i+1, fiber.StatusOK, status)
		}
	}
	if status := verifyStatus(t, app, "tok-u1"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, status)
	}
	// Other accounts keep their own budget.
	if status := verifyStatus(t, app, "tok-u2"); status != fiber.StatusOK {
		t.Fatalf("expected %d for another account, got %d", fiber.StatusOK, status)
	}
}

func TestPinAttemptLimitDisabled(t *testing.T) {
	app := fiber.New()
	app.Use(Bearer(staticVerifier))
	app.Post("/verify-pin", PinAttemptLimit(nil, 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 3; i++ {
		if status := verifyStatus(t, app, "tok-u1"); status != fiber.StatusOK {
			t.Fatalf("expected limiter to be a no-op, got %d", status)
		}
	}
}

func TestPinAttemptLimitWindowAlwaysExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(Bearer(staticVerifier))
	app.Post("/verify-pin", PinAttemptLimit(cache, 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	verifyStatus(t, app, "tok-u1")
	if ttl := mr.TTL(pinAttemptPrefix + "u1"); ttl <= 0 || ttl > pinAttemptWindow {
		t.Fatalf("expected counter to carry a TTL within the window, got %v", ttl)
	}
	if status := verifyStatus(t, app, "tok-u1"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, status)
	}
	if ttl := mr.TTL(pinAttemptPrefix + "u1"); ttl <= 0 {
		t.Fatalf("expected TTL to survive increments, got %v", ttl)
	}

	mr.FastForward(pinAttemptWindow + time.Second)
	if status := verifyStatus(t, app, "tok-u1"); status != fiber.StatusOK {
		t.Fatalf("expected a fresh window after expiry, got %d", status)
	}
}
