package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStoreClaimCompleteReplay(t *testing.T) {
	store, _ := newRedisStoreForTest(t, time.Hour)
	ctx := context.Background()

	fp := NewFingerprint("POST", "/api/payment/debit", []byte(`{"amount":25}`), "u1")
	claim, err := store.TryClaim(ctx, "K1", fp)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if claim.State != StateNew {
		t.Fatalf("expected new, got %s", claim.State)
	}

	claim, err = store.TryClaim(ctx, "K1", fp)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claim.State != StateConflict {
		t.Fatalf("expected conflict while processing, got %s", claim.State)
	}
	if claim.Fingerprint != fp.Hash {
		t.Fatalf("expected stored fingerprint on conflict, got %q", claim.Fingerprint)
	}

	if err := store.Complete(ctx, "K1", CachedResponse{Status: 201, Body: []byte(`{"id":1}`)}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	other := NewFingerprint("POST", "/api/payment/debit", []byte(`{"amount":999}`), "u1")
	claim, err = store.TryClaim(ctx, "K1", other)
	if err != nil {
		t.Fatalf("replay claim: %v", err)
	}
	if claim.State != StateReplay {
		t.Fatalf("expected replay, got %s", claim.State)
	}
	if claim.Response == nil || claim.Response.Status != 201 || string(claim.Response.Body) != `{"id":1}` {
		t.Fatalf("unexpected cached response: %+v", claim.Response)
	}
}

func TestRedisStoreTTLFreesKey(t *testing.T) {
	store, mr := newRedisStoreForTest(t, time.Minute)
	ctx := context.Background()
	fp := NewFingerprint("POST", "/api/order", []byte(`{}`), "u1")

	if claim, err := store.TryClaim(ctx, "K2", fp); err != nil || claim.State != StateNew {
		t.Fatalf("first claim: state=%v err=%v", claim.State, err)
	}
	if err := store.Complete(ctx, "K2", CachedResponse{Status: 200, Body: []byte(`{}`)}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	claim, err := store.TryClaim(ctx, "K2", fp)
	if err != nil {
		t.Fatalf("claim after expiry: %v", err)
	}
	if claim.State != StateNew {
		t.Fatalf("expected fresh claim after TTL, got %s", claim.State)
	}
}

func TestRedisStoreCompleteDoesNotExtendTTL(t *testing.T) {
	store, mr := newRedisStoreForTest(t, time.Minute)
	ctx := context.Background()
	fp := NewFingerprint("POST", "/api/order", []byte(`{}`), "u1")

	if _, err := store.TryClaim(ctx, "K3", fp); err != nil {
		t.Fatalf("claim: %v", err)
	}
	mr.FastForward(30 * time.Second)
	if err := store.Complete(ctx, "K3", CachedResponse{Status: 200, Body: []byte(`{}`)}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// expiresAt stays createdAt + TTL, not completedAt + TTL.
	mr.FastForward(31 * time.Second)
	claim, err := store.TryClaim(ctx, "K3", fp)
	if err != nil {
		t.Fatalf("claim after original TTL: %v", err)
	}
	if claim.State != StateNew {
		t.Fatalf("expected key released at original expiry, got %s", claim.State)
	}
}

func TestRedisStoreReplaysEmptyBody(t *testing.T) {
	store, _ := newRedisStoreForTest(t, time.Minute)
	ctx := context.Background()
	fp := NewFingerprint("DELETE", "/api/order/7", nil, "u1")

	if claim, err := store.TryClaim(ctx, "K4", fp); err != nil || claim.State != StateNew {
		t.Fatalf("claim: state=%v err=%v", claim.State, err)
	}
	if err := store.Complete(ctx, "K4", CachedResponse{Status: 204, Body: nil}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	claim, err := store.TryClaim(ctx, "K4", fp)
	if err != nil {
		t.Fatalf("replay claim: %v", err)
	}
	if claim.State != StateReplay {
		t.Fatalf("expected replay for empty-bodied outcome, got %s", claim.State)
	}
	if claim.Response.Status != 204 || len(claim.Response.Body) != 0 {
		t.Fatalf("empty body must replay empty, got %+v", claim.Response)
	}
}

func TestRedisStoreCompleteRequiresClaim(t *testing.T) {
	store, _ := newRedisStoreForTest(t, time.Minute)
	if err := store.Complete(context.Background(), "missing", CachedResponse{Status: 200, Body: []byte(`{}`)}); err == nil {
		t.Fatal("expected error completing an unclaimed key")
	}
}

func TestRedisStoreSweepIsNoop(t *testing.T) {
	store, _ := newRedisStoreForTest(t, time.Minute)
	removed, err := store.SweepExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removals from the no-op sweep, got %d", removed)
	}
}

func newRedisStoreForTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "idem", ttl), mr
}
