package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pinwallet/pinwallet/internal/identity"
	"github.com/pinwallet/pinwallet/internal/middleware"
	"github.com/pinwallet/pinwallet/internal/validate"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service   *Service
	validator *validate.Validator
	timeout   time.Duration
}

// NewHandler builds an account HTTP handler. timeout bounds each store round
// trip; zero disables it.
func NewHandler(service *Service, validator *validate.Validator, timeout time.Duration) *Handler {
	return &Handler{service: service, validator: validator, timeout: timeout}
}

type userResponse struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Balance int64  `json:"balance"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register creates the caller's account.
func (h *Handler) Register(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	var req RegisterRequest
	if err := h.decode(c, validate.Register, &req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.context(c)
	defer cancel()

	account, err := h.service.Register(ctx, id, req.Name)
	if err != nil {
		return errorResponse(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user": userResponse{
			UID:     account.UID,
			Name:    account.Name,
			Email:   account.Email,
			Balance: account.Balance,
		},
		"message": "User registered successfully",
	})
}

// CreatePin sets the caller's PIN.
func (h *Handler) CreatePin(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	var req PinRequest
	if err := h.decode(c, validate.Pin, &req); err != nil {
		return errorResponse(ErrInvalidPin)
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.service.CreatePin(ctx, id, req.Pin); err != nil {
		return errorResponse(err)
	}
	return c.Status(http.StatusCreated).JSON(messageResponse{Message: "PIN created successfully"})
}

// VerifyPin checks the caller's PIN.
func (h *Handler) VerifyPin(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	var req PinRequest
	if err := h.decode(c, validate.Pin, &req); err != nil {
		return errorResponse(ErrInvalidPin)
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.service.VerifyPin(ctx, id, req.Pin); err != nil {
		return errorResponse(err)
	}
	return c.Status(http.StatusOK).JSON(messageResponse{Message: "PIN verified successfully"})
}

// Me returns the caller's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}

	ctx, cancel := h.context(c)
	defer cancel()

	profile, err := h.service.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return errorResponse(err)
		}
		return fiber.NewError(http.StatusInternalServerError, "Failed to fetch user profile")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": profile})
}

func (h *Handler) decode(c *fiber.Ctx, schema string, out any) error {
	body := c.Body()
	if h.validator != nil {
		if err := h.validator.Validate(schema, body); err != nil {
			return err
		}
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (h *Handler) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func errorResponse(err error) error {
	switch {
	case errors.Is(err, ErrNameRequired):
		return fiber.NewError(http.StatusBadRequest, "Name is required")
	case errors.Is(err, ErrInvalidPin):
		return fiber.NewError(http.StatusBadRequest, "PIN must be a 4-digit number")
	case errors.Is(err, ErrAccountExists):
		return fiber.NewError(http.StatusConflict, "User already exists")
	case errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "User not found")
	case errors.Is(err, ErrPinAlreadySet):
		return fiber.NewError(http.StatusConflict, "PIN already set")
	case errors.Is(err, ErrPinNotSet):
		return fiber.NewError(http.StatusConflict, "PIN not set")
	case errors.Is(err, ErrIncorrectPin):
		return fiber.NewError(http.StatusUnauthorized, "Incorrect PIN")
	case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrExpiredToken):
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
