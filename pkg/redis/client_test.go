package redis

import (
	"testing"

	"github.com/vosmiarka/warehouse-backend/pkg/config"
)

func TestOptionsFromConfigURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://:secret@localhost:6380/2",
		PoolSize: 15,
	})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("addr = %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("db = %d", opts.DB)
	}
	if opts.Password != "secret" {
		t.Fatalf("password = %q", opts.Password)
	}
	if opts.PoolSize != 15 {
		t.Fatalf("pool size = %d", opts.PoolSize)
	}
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "127.0.0.1:6379", DB: 1})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "127.0.0.1:6379" || opts.DB != 1 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestOptionsFromConfigMissing(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address provided")
	}
}

func TestIdempotencyKeyNamespacing(t *testing.T) {
	c := &Client{}
	got := c.IdempotencyKey("POST|/api/v1/sales", "abc123")
	want := "wh:idempotency:POST|/api/v1/sales:abc123"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}
