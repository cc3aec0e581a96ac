package account

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/pinwallet/pinwallet/internal/identity"
	"github.com/pinwallet/pinwallet/internal/logging"
	"github.com/pinwallet/pinwallet/internal/notification"
)

var alice = identity.Identity{UID: "u1", Email: "a@x.com", EmailVerified: true}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func newRedisRepo(t *testing.T) Repository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRepository(client)
}

// forEachRepo runs fn against every repository that does not need an external server.
func forEachRepo(t *testing.T, fn func(t *testing.T, repo Repository, svc *Service)) {
	repos := map[string]func(t *testing.T) Repository{
		"memory": func(*testing.T) Repository { return NewMemoryRepository() },
		"redis":  newRedisRepo,
	}
	for name, build := range repos {
		t.Run(name, func(t *testing.T) {
			repo := build(t)
			svc := NewService(repo, NewBcryptHasher(bcrypt.MinCost), nil, logging.Discard())
			fn(t, repo, svc)
		})
	}
}

func TestRegister(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, svc *Service) {
		ctx := context.Background()
		account, err := svc.Register(ctx, alice, "  Alice ")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if account.Name != "Alice" || account.Email != alice.Email || account.Balance != 0 || account.HasPin {
			t.Fatalf("unexpected account %+v", account)
		}

		stored, err := repo.Get(ctx, alice.UID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.PinHash != nil || stored.PinCreatedAt != nil || stored.CreatedAt.IsZero() {
			t.Fatalf("unexpected stored account %+v", stored)
		}
	})
}

func TestRegisterTwiceKeepsFirstAccount(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, svc *Service) {
		ctx := context.Background()
		if _, err := svc.Register(ctx, alice, "Alice"); err != nil {
			t.Fatalf("register: %v", err)
		}
		_, err := svc.Register(ctx, identity.Identity{UID: alice.UID, Email: "other@x.com"}, "Mallory")
		if !errors.Is(err, ErrAccountExists) {
			t.Fatalf("expected ErrAccountExists, got %v", err)
		}
		stored, err := repo.Get(ctx, alice.UID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.Name != "Alice" || stored.Email != alice.Email {
			t.Fatalf("account was overwritten: %+v", stored)
		}
	})
}

func TestRegisterRequiresName(t *testing.T) {
	svc := NewService(NewMemoryRepository(), NewBcryptHasher(bcrypt.MinCost), nil, nil)
	for _, name := range []string{"", "   "} {
		if _, err := svc.Register(context.Background(), alice, name); !errors.Is(err, ErrNameRequired) {
			t.Fatalf("name %q: expected ErrNameRequired, got %v", name, err)
		}
	}
}

func TestInvalidPinRejectedInAnyState(t *testing.T) {
	invalid := []string{"", "12a4", "123", "123456", "１２３４", " 1234"}

	forEachRepo(t, func(t *testing.T, repo Repository, svc *Service) {
		ctx := context.Background()
		check := func(state string) {
			for _, pin := range invalid {
				if err := svc.CreatePin(ctx, alice, pin); !errors.Is(err, ErrInvalidPin) {
					t.Fatalf("%s: create %q: expected ErrInvalidPin, got %v", state, pin, err)
				}
				if err := svc.VerifyPin(ctx, alice, pin); !errors.Is(err, ErrInvalidPin) {
					t.Fatalf("%s: verify %q: expected ErrInvalidPin, got %v", state, pin, err)
				}
			}
		}

		check("no account")
		if _, err := svc.Register(ctx, alice, "Alice"); err != nil {
			t.Fatalf("register: %v", err)
		}
		check("no pin")
		if err := svc.CreatePin(ctx, alice, "1234"); err != nil {
			t.Fatalf("create pin: %v", err)
		}
		check("pin set")
	})
}

func TestCreatePinIsWriteOnce(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, svc *Service) {
		ctx := context.Background()
		if _, err := svc.Register(ctx, alice, "Alice"); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := svc.CreatePin(ctx, alice, "1234"); err != nil {
			t.Fatalf("create pin: %v", err)
		}
		first, err := repo.Get(ctx, alice.UID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !first.HasPin || len(first.PinHash) == 0 || first.PinCreatedAt == nil {
			t.Fatalf("expected pin to be recorded, got %+v", first)
		}
		if bytes.Equal(first.PinHash, []byte("1234")) {
			t.Fatal("pin stored in plaintext")
		}

		if err := svc.CreatePin(ctx, alice, "9999"); !errors.Is(err, ErrPinAlreadySet) {
			t.Fatalf("expected ErrPinAlreadySet, got %v", err)
		}
		second, err := repo.Get(ctx, alice.UID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !bytes.Equal(first.PinHash, second.PinHash) {
			t.Fatal("pin hash changed after second create")
		}
	})
}

func TestPinOperationsWithoutAccount(t *testing.T) {
	forEachRepo(t, func(t *testing.T, _ Repository, svc *Service) {
		ctx := context.Background()
		if err := svc.CreatePin(ctx, alice, "1234"); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("create: expected ErrAccountNotFound, got %v", err)
		}
		if err := svc.VerifyPin(ctx, alice, "1234"); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("verify: expected ErrAccountNotFound, got %v", err)
		}
		if _, err := svc.GetProfile(ctx, alice); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("profile: expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestVerifyPin(t *testing.T) {
	forEachRepo(t, func(t *testing.T, _ Repository, svc *Service) {
		ctx := context.Background()
		if _, err := svc.Register(ctx, alice, "Alice"); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := svc.VerifyPin(ctx, alice, "1234"); !errors.Is(err, ErrPinNotSet) {
			t.Fatalf("expected ErrPinNotSet before creation, got %v", err)
		}
		if err := svc.CreatePin(ctx, alice, "1234"); err != nil {
			t.Fatalf("create pin: %v", err)
		}
		if err := svc.VerifyPin(ctx, alice, "1234"); err != nil {
			t.Fatalf("expected matching pin to verify, got %v", err)
		}
		if err := svc.VerifyPin(ctx, alice, "0000"); !errors.Is(err, ErrIncorrectPin) {
			t.Fatalf("expected ErrIncorrectPin, got %v", err)
		}
	})
}

func TestProfileNeverCarriesHash(t *testing.T) {
	forEachRepo(t, func(t *testing.T, _ Repository, svc *Service) {
		ctx := context.Background()
		if _, err := svc.Register(ctx, alice, "Alice"); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := svc.CreatePin(ctx, alice, "1234"); err != nil {
			t.Fatalf("create pin: %v", err)
		}

		profile, err := svc.GetProfile(ctx, alice)
		if err != nil {
			t.Fatalf("profile: %v", err)
		}
		want := Profile{UID: "u1", Name: "Alice", Email: "a@x.com", Balance: 0, HasPin: true, EmailVerified: true}
		profile.CreatedAt = want.CreatedAt
		if profile != want {
			t.Fatalf("expected %+v got %+v", want, profile)
		}
	})
}

func TestAliceJourney(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(NewMemoryRepository(), NewBcryptHasher(bcrypt.MinCost), notifier, logging.Discard())
	ctx := context.Background()

	if _, err := svc.Register(ctx, alice, "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	profile, err := svc.GetProfile(ctx, alice)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.HasPin || profile.Balance != 0 || !profile.EmailVerified {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if err := svc.CreatePin(ctx, alice, "1234"); err != nil {
		t.Fatalf("create pin: %v", err)
	}
	if err := svc.VerifyPin(ctx, alice, "1234"); err != nil {
		t.Fatalf("verify pin: %v", err)
	}
	if err := svc.VerifyPin(ctx, alice, "0000"); !errors.Is(err, ErrIncorrectPin) {
		t.Fatalf("expected ErrIncorrectPin, got %v", err)
	}
	if profile, err = svc.GetProfile(ctx, alice); err != nil || !profile.HasPin {
		t.Fatalf("expected hasPin after creation, got %+v (%v)", profile, err)
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifier.sent))
	}
	if notifier.sent[0].Kind != notification.KindAccountRegistered || notifier.sent[1].Kind != notification.KindPinCreated {
		t.Fatalf("unexpected notifications %+v", notifier.sent)
	}
}

func TestConcurrentCreatePinStoresOneHash(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository, svc *Service) {
		ctx := context.Background()
		if _, err := svc.Register(ctx, alice, "Alice"); err != nil {
			t.Fatalf("register: %v", err)
		}

		pins := []string{"1111", "2222", "3333", "4444", "5555"}
		errs := make([]error, len(pins))
		var wg sync.WaitGroup
		for i, pin := range pins {
			wg.Add(1)
			go func(i int, pin string) {
				defer wg.Done()
				errs[i] = svc.CreatePin(ctx, alice, pin)
			}(i, pin)
		}
		wg.Wait()

		var winner string
		for i, err := range errs {
			switch {
			case err == nil:
				if winner != "" {
					t.Fatalf("both %s and %s were accepted", winner, pins[i])
				}
				winner = pins[i]
			case errors.Is(err, ErrPinAlreadySet):
			default:
				t.Fatalf("unexpected error for %s: %v", pins[i], err)
			}
		}
		if winner == "" {
			t.Fatal("no PIN was accepted")
		}
		if err := svc.VerifyPin(ctx, alice, winner); err != nil {
			t.Fatalf("winning pin %s does not verify: %v", winner, err)
		}
	})
}
