package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/pinwallet/pinwallet/internal/httpx"
)

func TestAuditLogsEachRequestOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler()})
	app.Use(RequestID())
	app.Use(Audit(logger))
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("store unavailable") })
	app.Get("/gone", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "User not found") })

	cases := []struct {
		path   string
		status int
		level  string
	}{
		{"/boom", fiber.StatusInternalServerError, "ERROR"},
		{"/gone", fiber.StatusNotFound, "WARN"},
	}
	for _, tc := range cases {
		buf.Reset()
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tc.path, nil))
		if err != nil {
			t.Fatalf("%s: app.Test: %v", tc.path, err)
		}
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.path, tc.status, resp.StatusCode)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("%s: expected one log line, got %d: %s", tc.path, len(lines), buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("%s: decode log: %v", tc.path, err)
		}
		if entry["level"] != tc.level || entry["status"] != float64(tc.status) || entry["request_id"] == "" {
			t.Fatalf("%s: unexpected log entry %v", tc.path, entry)
		}
	}
}
