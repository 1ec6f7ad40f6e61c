package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestMigrateAndRoundTripBlob(t *testing.T) {
	databaseURL := os.Getenv("TCPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TCPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	if err := Migrate(databaseURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Migrate(databaseURL); err != nil {
		t.Fatalf("second migrate should be a no-op, got %v", err)
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	key := fmt.Sprintf("pos-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv_blobs WHERE key = $1`, key)
	})

	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, key, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, key, []byte(`[{"id":"2"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `[{"id": "2"}]` {
		t.Fatalf("expected latest value, got %s", got)
	}
}
