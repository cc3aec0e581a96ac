package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pinwallet/pinwallet/internal/identity"
	"github.com/pinwallet/pinwallet/internal/metrics"
	"github.com/pinwallet/pinwallet/internal/notification"
)

// Service enforces the account and PIN lifecycle:
//
//	[no account] --Register--> hasPin=false --CreatePin--> hasPin=true
//
// There is no transition back to hasPin=false and no deletion.
type Service struct {
	repo     Repository
	hasher   Hasher
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates an account service. notifier and logger may be nil.
func NewService(repo Repository, hasher Hasher, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the caller's account with a zero balance and no PIN.
func (s *Service) Register(ctx context.Context, id identity.Identity, name string) (Account, error) {
	if id.UID == "" {
		return Account{}, identity.ErrInvalidToken
	}
	req := RegisterRequest{Name: name}
	if err := req.Validate(); err != nil {
		return Account{}, err
	}

	account := Account{
		UID:       id.UID,
		Name:      strings.TrimSpace(name),
		Email:     id.Email,
		Balance:   0,
		HasPin:    false,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}

	metrics.AccountEvents.WithLabelValues("registered").Inc()
	s.log(ctx, slog.LevelInfo, "account.registered", slog.String("uid", account.UID))
	s.notify(ctx, notification.Message{
		Kind:        notification.KindAccountRegistered,
		Destination: account.UID,
		Body:        fmt.Sprintf("Welcome %s, your account is ready", account.Name),
	})
	return account, nil
}

// CreatePin sets the account's write-once PIN.
func (s *Service) CreatePin(ctx context.Context, id identity.Identity, pin string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}
	account, err := s.repo.Get(ctx, id.UID)
	if err != nil {
		return err
	}
	if account.HasPin {
		return ErrPinAlreadySet
	}

	hash, err := s.hasher.Hash(pin)
	if err != nil {
		return err
	}
	if err := s.repo.SetPin(ctx, id.UID, hash, s.now()); err != nil {
		return err
	}

	metrics.AccountEvents.WithLabelValues("pin_created").Inc()
	s.log(ctx, slog.LevelInfo, "account.pin_created", slog.String("uid", id.UID))
	s.notify(ctx, notification.Message{
		Kind:        notification.KindPinCreated,
		Destination: id.UID,
		Body:        "Your app PIN was created",
	})
	return nil
}

// VerifyPin checks pin against the stored hash. A mismatch yields ErrIncorrectPin.
func (s *Service) VerifyPin(ctx context.Context, id identity.Identity, pin string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}
	account, err := s.repo.Get(ctx, id.UID)
	if err != nil {
		return err
	}
	if !account.HasPin || len(account.PinHash) == 0 {
		metrics.PinVerifications.WithLabelValues(metrics.OutcomeNotSet).Inc()
		return ErrPinNotSet
	}

	if err := s.hasher.Compare(account.PinHash, pin); err != nil {
		if errors.Is(err, ErrIncorrectPin) {
			metrics.PinVerifications.WithLabelValues(metrics.OutcomeMismatch).Inc()
			s.log(ctx, slog.LevelWarn, "account.pin_mismatch", slog.String("uid", id.UID))
		}
		return err
	}

	metrics.PinVerifications.WithLabelValues(metrics.OutcomeMatch).Inc()
	return nil
}

// GetProfile returns the caller's profile. emailVerified comes from the
// identity token rather than the stored account.
func (s *Service) GetProfile(ctx context.Context, id identity.Identity) (Profile, error) {
	account, err := s.repo.Get(ctx, id.UID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		UID:           account.UID,
		Name:          account.Name,
		Email:         account.Email,
		Balance:       account.Balance,
		HasPin:        account.HasPin,
		EmailVerified: id.EmailVerified,
		CreatedAt:     account.CreatedAt,
	}, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log(ctx, slog.LevelWarn, "notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, level, msg, attrs...)
}
