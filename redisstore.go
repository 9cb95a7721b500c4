package main

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// documentKey is the Redis key holding the whole persisted document.
const documentKey = "zombies:document"

// RedisBackend persists the document under a single Redis key. Selected with
// STORE_BACKEND=redis.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a RedisBackend over the given client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Load fetches and decodes the document, or returns (nil, nil) when the key
// is absent.
func (b *RedisBackend) Load(ctx context.Context) (*Document, error) {
	data, err := b.client.Get(ctx, documentKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save encodes and stores the document.
func (b *RedisBackend) Save(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, documentKey, data, 0).Err()
}
