package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ipcheck-tools/internal/domain/ipdistance"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	return NewStore(0, WithClock(clock.Now)), clock
}

func TestStore_CreateAndGet(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	sess, err := s.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID == "" {
		t.Fatal("expected generated id")
	}
	if !sess.CreatedAt.Equal(clock.Now()) || !sess.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Errorf("unexpected timestamps: %+v", sess)
	}

	got, err := s.Get(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != sess.ID || got.FirstIP != "" {
		t.Errorf("unexpected session: %+v", got)
	}

	other, _ := s.Create(ctx)
	if other.ID == sess.ID {
		t.Error("expected distinct ids")
	}
}

func TestStore_GetUnknown(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ipdistance.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_LazyExpiry(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()
	sess, _ := s.Create(ctx)

	clock.Advance(59 * time.Minute)
	if _, err := s.Get(ctx, sess.ID); err != nil {
		t.Fatalf("expected session at +59m, got %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := s.Get(ctx, sess.ID); !errors.Is(err, ipdistance.ErrSessionNotFound) {
		t.Fatalf("expected not found at +61m, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expired session should be purged on access, len=%d", s.Len())
	}
}

func TestStore_Update(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()
	sess, _ := s.Create(ctx)

	t.Run("MergesFields", func(t *testing.T) {
		updated, err := s.Update(ctx, sess.ID, func(cur *ipdistance.Session) error {
			cur.FirstIP = "1.1.1.1"
			cur.FirstIPInfo = &ipdistance.GeoRecord{IP: "1.1.1.1", City: "Sydney"}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if updated.FirstIP != "1.1.1.1" || !updated.ExpiresAt.Equal(sess.ExpiresAt) {
			t.Errorf("unexpected update result: %+v", updated)
		}
		got, _ := s.Get(ctx, sess.ID)
		if got.FirstIPInfo == nil || got.FirstIPInfo.City != "Sydney" {
			t.Errorf("update not persisted: %+v", got)
		}
	})

	t.Run("ApplyErrorLeavesRecord", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := s.Update(ctx, sess.ID, func(cur *ipdistance.Session) error {
			cur.SecondIP = "2.2.2.2"
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected apply error, got %v", err)
		}
		got, _ := s.Get(ctx, sess.ID)
		if got.SecondIP != "" {
			t.Errorf("failed update must not be persisted: %+v", got)
		}
	})

	t.Run("CannotChangeID", func(t *testing.T) {
		updated, err := s.Update(ctx, sess.ID, func(cur *ipdistance.Session) error {
			cur.ID = "other"
			return nil
		})
		if err != nil || updated.ID != sess.ID {
			t.Errorf("id must stay fixed, got %q err=%v", updated.ID, err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		clock.Advance(61 * time.Minute)
		_, err := s.Update(ctx, sess.ID, func(cur *ipdistance.Session) error { return nil })
		if !errors.Is(err, ipdistance.ErrSessionNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestStore_UpdateIsSerializedPerSession(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	sess, _ := s.Create(ctx)
	errTaken := errors.New("taken")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Update(ctx, sess.ID, func(cur *ipdistance.Session) error {
				if cur.SecondIP != "" {
					return errTaken
				}
				cur.SecondIP = "10.0.0." + string(rune('a'+n))
				return nil
			})
			if err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}
