package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	pinAttemptPrefix = "rl:verify-pin:"
	pinAttemptWindow = time.Minute
)

// PinAttemptLimit caps PIN verification attempts per account per minute using
// Redis counters. It is a no-op without Redis or when maxPerMin is not positive.
func PinAttemptLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		subject := c.IP()
		if id, ok := CurrentIdentity(c); ok && id.UID != "" {
			subject = id.UID
		}

		ctx := c.UserContext()
		key := pinAttemptPrefix + subject
		// SET NX EX creates the window with its TTL; INCR keeps the TTL.
		var incr *redis.IntCmd
		_, err := cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, key, 0, pinAttemptWindow)
			incr = pipe.Incr(ctx, key)
			return nil
		})
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if incr.Val() > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many PIN attempts, try again later")
		}
		return c.Next()
	}
}
