// Package listdb stores per-user shopping lists as JSON documents in
// Redis, one document per user keyed by email.
package listdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ptracker-app/ptracker/internal/models"
)

const keyPrefix = "ptracker:list:"

// ListDB is the Redis-backed document store for shopping lists.
type ListDB struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(addr, password string, db int) (*ListDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &ListDB{client: client}, nil
}

// LoadList fetches the user's saved document. The boolean reports whether
// a document exists.
func (db *ListDB) LoadList(ctx context.Context, email string) (*models.ShoppingList, bool, error) {
	raw, err := db.client.Get(ctx, keyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	list := &models.ShoppingList{}
	if err := json.Unmarshal([]byte(raw), list); err != nil {
		return nil, false, fmt.Errorf("decoding stored list: %w", err)
	}

	return list, true, nil
}

// SaveList overwrites the user's document with the given list.
func (db *ListDB) SaveList(ctx context.Context, email string, list *models.ShoppingList) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding list: %w", err)
	}

	return db.client.Set(ctx, keyPrefix+email, raw, 0).Err()
}

// Ping verifies the Redis connection is alive.
func (db *ListDB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (db *ListDB) Close() error {
	if db.client != nil {
		return db.client.Close()
	}
	return nil
}
