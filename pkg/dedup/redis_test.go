package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisDedup(t *testing.T) (*RedisDeduplicator, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, time.Minute, time.Second, 10*time.Millisecond, nil), client
}

func TestRedisOwnerPublishesAndReleases(t *testing.T) {
	d, client := newRedisDedup(t)
	ctx := context.Background()

	payload, shared, err := d.Execute(ctx, "fp1", func(context.Context) ([]byte, error) {
		return []byte(`{"ok":true}`), nil
	})
	if err != nil || shared {
		t.Fatalf("Execute() = shared %v, err %v; want owner path", shared, err)
	}
	if string(payload) != `{"ok":true}` {
		t.Errorf("payload = %q", payload)
	}

	// Result cached, lock released.
	if data, err := client.Get(ctx, resultPrefix+"fp1").Bytes(); err != nil || string(data) != `{"ok":true}` {
		t.Errorf("result not published: %q, %v", data, err)
	}
	if n, _ := client.Exists(ctx, lockPrefix+"fp1").Result(); n != 0 {
		t.Error("owner lock not released")
	}
}

func TestRedisJoinerReceivesOwnerResult(t *testing.T) {
	d, _ := newRedisDedup(t)
	ctx := context.Background()

	release := make(chan struct{})
	ownerStarted := make(chan struct{})

	var wg sync.WaitGroup
	var ownerPayload, joinerPayload []byte
	var joinerShared bool
	var ownerErr, joinerErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		ownerPayload, _, ownerErr = d.Execute(ctx, "fp2", func(context.Context) ([]byte, error) {
			close(ownerStarted)
			<-release
			return []byte(`"owner result"`), nil
		})
	}()

	<-ownerStarted
	wg.Add(1)
	go func() {
		defer wg.Done()
		joinerPayload, joinerShared, joinerErr = d.Execute(ctx, "fp2", func(context.Context) ([]byte, error) {
			t.Error("joiner must not execute while the owner holds the lock")
			return nil, nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if ownerErr != nil || joinerErr != nil {
		t.Fatalf("errors: owner %v, joiner %v", ownerErr, joinerErr)
	}
	if !joinerShared {
		t.Error("joiner should report a shared result")
	}
	if string(joinerPayload) != string(ownerPayload) {
		t.Errorf("joiner payload %q != owner payload %q", joinerPayload, ownerPayload)
	}
}

func TestRedisJoinerFallsThroughAfterOwnerFailure(t *testing.T) {
	d, _ := newRedisDedup(t)
	ctx := context.Background()

	wantErr := errors.New("upstream exploded")
	_, _, err := d.Execute(ctx, "fp3", func(context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("owner error = %v, want %v", err, wantErr)
	}

	// Lock released, no result: the next caller owns and executes.
	ran := false
	payload, shared, err := d.Execute(ctx, "fp3", func(context.Context) ([]byte, error) {
		ran = true
		return []byte(`"second try"`), nil
	})
	if err != nil || shared || !ran {
		t.Errorf("second caller: payload %q shared %v err %v ran %v", payload, shared, err, ran)
	}
}

func TestRedisJoinerTimesOutAndRuns(t *testing.T) {
	d, client := newRedisDedup(t)
	d.waitTimeout = 50 * time.Millisecond
	ctx := context.Background()

	// A foreign owner holds the lock and never publishes.
	if err := client.Set(ctx, lockPrefix+"fp4", "foreign-token", time.Minute).Err(); err != nil {
		t.Fatal(err)
	}

	ran := false
	_, shared, err := d.Execute(ctx, "fp4", func(context.Context) ([]byte, error) {
		ran = true
		return []byte(`"fallthrough"`), nil
	})
	if err != nil || shared || !ran {
		t.Errorf("timeout fall-through: shared %v err %v ran %v", shared, err, ran)
	}
}

func TestRedisBypassesOnBackendFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	d := NewRedis(client, time.Minute, time.Second, 10*time.Millisecond, nil)

	mr.Close() // coordination backend gone

	ran := false
	payload, shared, err := d.Execute(context.Background(), "fp5", func(context.Context) ([]byte, error) {
		ran = true
		return []byte(`"direct"`), nil
	})
	if err != nil || shared || !ran {
		t.Errorf("backend failure must fail open: payload %q shared %v err %v", payload, shared, err)
	}
}
