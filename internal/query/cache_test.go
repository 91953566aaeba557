package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func counter(n *atomic.Int32, v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		n.Add(1)
		return v, nil
	}
}

func TestFetchCachesValue(t *testing.T) {
	c := NewCache()
	key := ProjectKey("alice", 1)
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		got, err := Fetch(context.Background(), c, key, counter(&calls, "v1"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != "v1" {
			t.Errorf("Expected v1, got %q", got)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 fetch, got %d", calls.Load())
	}

	if _, err := Fetch(context.Background(), c, key, counter(&calls, "v2"), Force()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected a forced fetch, got %d calls", calls.Load())
	}
	if v, state := c.Peek(key); v != "v2" || state != Fresh {
		t.Errorf("Expected fresh v2, got %v (%s)", v, state)
	}
}

func TestFetchSharesInFlightCall(t *testing.T) {
	c := NewCache()
	key := UserProjectsKey("alice", "alice")
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(context.Context) ([]int, error) {
		calls.Add(1)
		<-release
		return []int{1, 2}, nil
	}

	var wg sync.WaitGroup
	results := make([][]int, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), c, key, fetch)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected a single shared fetch, got %d", calls.Load())
	}
	for i, r := range results {
		if len(r) != 2 {
			t.Errorf("Expected reader %d to see the shared result, got %v", i, r)
		}
	}
}

func TestFetchFailureLeavesCacheUntouched(t *testing.T) {
	c := NewCache()
	key := ProjectKey("alice", 7)
	c.Set(key, "old")

	boom := errors.New("boom")
	_, err := Fetch(context.Background(), c, key, func(context.Context) (string, error) {
		return "", boom
	}, Force())
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}

	if v, state := c.Peek(key); v != "old" || state != Fresh {
		t.Errorf("Expected fresh old value to survive, got %v (%s)", v, state)
	}

	c.Invalidate(key)
	_, _ = Fetch(context.Background(), c, key, func(context.Context) (string, error) {
		return "", boom
	})
	if v, state := c.Peek(key); v != "old" || state != Stale {
		t.Errorf("Expected stale old value to survive, got %v (%s)", v, state)
	}
}

func TestInvalidateDuringFetch(t *testing.T) {
	c := NewCache()
	key := ProjectKey("alice", 3)
	release := make(chan struct{})
	started := make(chan struct{})

	var running, peak atomic.Int32
	track := func(v string, wait <-chan struct{}) func(context.Context) (string, error) {
		return func(context.Context) (string, error) {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if wait != nil {
				<-wait
			}
			return v, nil
		}
	}

	done := make(chan string)
	go func() {
		first := track("before", release)
		v, _ := Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) {
			close(started)
			return first(ctx)
		})
		done <- v
	}()

	<-started
	c.Invalidate(key)

	// A reader after the invalidation waits for the older flight, then
	// fetches on its own.
	after := make(chan string)
	go func() {
		v, err := Fetch(context.Background(), c, key, track("after", nil))
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		after <- v
	}()

	time.Sleep(50 * time.Millisecond)
	select {
	case v := <-after:
		t.Fatalf("Expected the reader to wait for the older fetch, got %q", v)
	default:
	}

	close(release)
	if v := <-done; v != "before" {
		t.Errorf("Expected the first reader to get its own result, got %q", v)
	}
	if v := <-after; v != "after" {
		t.Errorf("Expected the later reader to get a refetched value, got %q", v)
	}
	if p := peak.Load(); p != 1 {
		t.Errorf("Expected at most one fetch in flight, got %d", p)
	}

	if v, state := c.Peek(key); v != "after" || state != Fresh {
		t.Errorf("Expected the superseded result to be discarded, got %v (%s)", v, state)
	}
}

func TestInvalidateBeforeCompletionForcesRefetch(t *testing.T) {
	c := NewCache()
	key := ProjectKey("alice", 4)
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), c, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "before", nil
		})
	}()

	<-started
	c.Invalidate(key)
	close(release)
	<-done

	if _, state := c.Peek(key); state == Fresh {
		t.Error("Expected no fresh value after an invalidation raced the fetch")
	}

	var calls atomic.Int32
	if _, err := Fetch(context.Background(), c, key, counter(&calls, "after")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected the next read to fetch again, got %d calls", calls.Load())
	}
}

func TestFetchCallerCancellation(t *testing.T) {
	c := NewCache()
	key := ProjectKey("alice", 9)
	release := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() {
		_, err := Fetch(ctx, c, key, func(fctx context.Context) (string, error) {
			defer close(finished)
			<-release
			if fctx.Err() != nil {
				return "", fctx.Err()
			}
			return "v", nil
		})
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	close(release)
	<-finished

	deadline := time.Now().Add(time.Second)
	for {
		v, state := c.Peek(key)
		if v == "v" && state == Fresh {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected the detached fetch to complete and store, got %v (%s)", v, state)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMaxAge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewCache(WithClock(clock), WithPublicMaxAge(30*time.Second))

	public := PublicProjectsKey()
	private := UserProjectsKey("alice", "alice")
	c.Set(public, "p")
	c.Set(private, "u")

	now = now.Add(29 * time.Second)
	if _, state := c.Peek(public); state != Fresh {
		t.Errorf("Expected public entry to be fresh, got %s", state)
	}

	now = now.Add(time.Second)
	if _, state := c.Peek(public); state != Stale {
		t.Errorf("Expected public entry to age out, got %s", state)
	}
	if _, state := c.Peek(private); state != Fresh {
		t.Errorf("Expected entries without max age to stay fresh, got %s", state)
	}
}

func TestPublicEntriesNeverFreshByDefault(t *testing.T) {
	c := NewCache()
	key := PublicProjectKey(4)

	var calls atomic.Int32
	for i := 0; i < 2; i++ {
		if _, err := Fetch(context.Background(), c, key, counter(&calls, "p")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("Expected every public read to fetch, got %d calls", calls.Load())
	}
	if v, state := c.Peek(key); v != "p" || state != Stale {
		t.Errorf("Expected the stored public value to be stale, got %v (%s)", v, state)
	}

	private := ProjectKey("alice", 4)
	c.Set(private, "u")
	if _, state := c.Peek(private); state != Fresh {
		t.Errorf("Expected owner entries to stay fresh, got %s", state)
	}
}

func TestRemoveBlocksInFlightRepopulation(t *testing.T) {
	c := NewCache()
	key := ProjectKey("alice", 5)
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), c, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "zombie", nil
		})
	}()

	<-started
	c.Remove(key)
	close(release)
	<-done

	if v, state := c.Peek(key); state != Missing {
		t.Errorf("Expected removed key to stay missing, got %v (%s)", v, state)
	}
}

func TestKeysAreScopedByPrincipal(t *testing.T) {
	c := NewCache()
	c.Set(ProjectKey("alice", 1), "alice's view")

	if _, state := c.Peek(ProjectKey("bob", 1)); state != Missing {
		t.Errorf("Expected another principal's key to miss, got %s", state)
	}

	tests := []struct {
		key  Key
		want string
	}{
		{ProjectKey("alice", 1), "project@alice:1"},
		{UserProjectsKey("alice", "bob"), "userProjects@alice:bob"},
		{PublicProjectKey(2), "publicProject:2"},
		{PublicProjectsKey(), "publicProjects"},
		{CurrentUserProfileKey("alice"), "currentUserProfile@alice"},
		{CallerAdminKey("alice"), "callerAdmin@alice"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
		if tt.key.Kind.Public() != (tt.key.Principal == "") {
			t.Errorf("Expected only public keys to lack a principal: %v", tt.key)
		}
	}
}
