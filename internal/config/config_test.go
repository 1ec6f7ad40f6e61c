package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDoesNotInjectAuthSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("USD_KHR_RATE", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("expected memory backend, got %s", cfg.StoreBackend)
	}
	if !cfg.ExchangeRate.Equal(decimal.NewFromInt(4100)) {
		t.Fatalf("expected rate 4100, got %s", cfg.ExchangeRate)
	}
	if cfg.AdminUsername != "admin" || cfg.AdminDisplayName != "Store Manager" {
		t.Fatalf("unexpected admin defaults %s/%s", cfg.AdminUsername, cfg.AdminDisplayName)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("expected no brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadPicksBackendFromDSN(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/pos")

	if cfg := Load(); cfg.StoreBackend != BackendPostgres {
		t.Fatalf("expected postgres backend, got %s", cfg.StoreBackend)
	}
}

func TestLoadRejectsBadRate(t *testing.T) {
	t.Setenv("USD_KHR_RATE", "zero")
	if cfg := Load(); !cfg.ExchangeRate.Equal(decimal.NewFromInt(4100)) {
		t.Fatalf("expected fallback rate, got %s", cfg.ExchangeRate)
	}
	t.Setenv("USD_KHR_RATE", "4000.5")
	if cfg := Load(); !cfg.ExchangeRate.Equal(decimal.RequireFromString("4000.5")) {
		t.Fatalf("expected 4000.5, got %s", cfg.ExchangeRate)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}
