package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Namespace is prepended to every key, letting several stores share one database.
	Namespace string
}

// Store keeps blobs as plain redis strings without expiry.
type Store struct {
	client    *r.Client
	namespace string
}

func New(opts Options) *Store {
	client := r.NewClient(&r.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &Store{client: client, namespace: opts.Namespace}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	return val, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", whereami.WhereAmI(), err)
	}
	return nil
}
