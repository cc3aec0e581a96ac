package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	accountKeyPrefix = "account:v1:"
	maxWatchRetries  = 3
)

// accountDocument is the JSON shape of an account stored in Redis.
type accountDocument struct {
	UID          string     `json:"uid"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Balance      int64      `json:"balance"`
	HasPin       bool       `json:"hasPin"`
	PinHash      string     `json:"pinHash,omitempty"`
	PinCreatedAt *time.Time `json:"pinCreatedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// RedisRepository stores each account as a JSON document under its own key.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository builds a Redis-backed account repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func accountKey(uid string) string {
	return accountKeyPrefix + uid
}

// Create writes the document with SETNX so only the first registration wins.
func (r *RedisRepository) Create(ctx context.Context, account Account) error {
	payload, err := json.Marshal(toDocument(account))
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	created, err := r.client.SetNX(ctx, accountKey(account.UID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	if !created {
		return ErrAccountExists
	}
	return nil
}

// Get loads and decodes the account document.
func (r *RedisRepository) Get(ctx context.Context, uid string) (Account, error) {
	raw, err := r.client.Get(ctx, accountKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	return decodeDocument(raw)
}

// SetPin updates the document inside WATCH/MULTI so a concurrent PIN creation
// aborts the transaction instead of overwriting the first hash.
func (r *RedisRepository) SetPin(ctx context.Context, uid string, hash []byte, createdAt time.Time) error {
	key := accountKey(uid)
	update := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("load account: %w", err)
		}
		var doc accountDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode account: %w", err)
		}
		if doc.HasPin {
			return ErrPinAlreadySet
		}

		at := createdAt.UTC()
		doc.HasPin = true
		doc.PinHash = string(hash)
		doc.PinCreatedAt = &at
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode account: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := r.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	// Every attempt lost to a concurrent write; the winner most likely set the PIN.
	account, err := r.Get(ctx, uid)
	if err != nil {
		return err
	}
	if account.HasPin {
		return ErrPinAlreadySet
	}
	return fmt.Errorf("update account pin: %w", redis.TxFailedErr)
}

func toDocument(a Account) accountDocument {
	doc := accountDocument{
		UID:          a.UID,
		Name:         a.Name,
		Email:        a.Email,
		Balance:      a.Balance,
		HasPin:       a.HasPin,
		PinCreatedAt: a.PinCreatedAt,
		CreatedAt:    a.CreatedAt.UTC(),
	}
	if len(a.PinHash) > 0 {
		doc.PinHash = string(a.PinHash)
	}
	return doc
}

func decodeDocument(raw []byte) (Account, error) {
	var doc accountDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Account{}, fmt.Errorf("decode account: %w", err)
	}
	account := Account{
		UID:          doc.UID,
		Name:         doc.Name,
		Email:        doc.Email,
		Balance:      doc.Balance,
		HasPin:       doc.HasPin,
		PinCreatedAt: doc.PinCreatedAt,
		CreatedAt:    doc.CreatedAt,
	}
	if doc.PinHash != "" {
		account.PinHash = []byte(doc.PinHash)
	}
	return account, nil
}
