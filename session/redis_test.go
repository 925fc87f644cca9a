package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisPersisterTest(t *testing.T) (*RedisPersister, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisPersister(rdb, "mpc:"), mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestRedisPersisterKeysAndReload(t *testing.T) {
	p, mr, done := newRedisPersisterTest(t)
	defer done()
	ctx := context.Background()

	store := NewStore(p, quietLogger())
	if err := store.Set(ctx, Credential{Token: "xyz", Username: "carol"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	if got, _ := mr.Get("mpc:token"); got != "xyz" {
		t.Fatalf("expected token key xyz, got %q", got)
	}
	if got, _ := mr.Get("mpc:username"); got != "carol" {
		t.Fatalf("expected username key carol, got %q", got)
	}

	fresh := NewStore(p, quietLogger())
	if got := fresh.Load(ctx); got.Token != "xyz" || got.Username != "carol" {
		t.Fatalf("unexpected reload %+v", got)
	}

	if err := fresh.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := fresh.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if mr.Exists("mpc:token") || mr.Exists("mpc:username") {
		t.Fatal("expected keys removed")
	}
}

func TestRedisPersisterUnavailable(t *testing.T) {
	p, mr, done := newRedisPersisterTest(t)
	defer done()
	mr.Close()

	_, err := p.Load(context.Background())
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}

	store := NewStore(p, quietLogger())
	if got := store.Load(context.Background()); !got.IsZero() {
		t.Fatalf("expected unauthenticated start, got %+v", got)
	}
}
