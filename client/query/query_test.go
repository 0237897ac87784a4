package query

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/storage/cache"
)

func TestKey(t *testing.T) {
	k1 := NewKey("/students", apiclient.Params{"search": "pa", "page": 1})
	k2 := NewKey("students", apiclient.Params{"page": 1, "search": "pa"})
	assert.Equal(t, Key("students?page=1&search=pa"), k1)
	assert.Equal(t, k1, k2)
	assert.Equal(t, Key("students"), NewKey("students", nil))

	assert.Equal(t, "students", k1.Resource())
	assert.True(t, k1.Matches("students"))
	assert.False(t, k1.Matches("staff"))

	active := NewKey("academic-years/active", nil)
	assert.True(t, active.Matches("academic-years"))
	assert.False(t, active.Matches("academic"))
	assert.False(t, NewKey("academic-years", nil).Matches("academic-years/active"))
}

func counter(n *int32, val string, err error) Fetcher[string] {
	return func(ctx context.Context) (string, error) {
		atomic.AddInt32(n, 1)
		return val, err
	}
}

func TestTriState(t *testing.T) {
	ctx := context.Background()
	c := New()
	key := NewKey("students", nil)

	assert.Equal(t, StatusIdle, Peek[string](c, key).Status)

	release := make(chan struct{})
	done := make(chan State[string])
	go func() {
		done <- Fetch(ctx, c, key, func(ctx context.Context) (string, error) {
			<-release
			return "", errors.New("boom")
		})
	}()
	require.Eventually(t, func() bool { return Peek[string](c, key).IsLoading() }, time.Second, time.Millisecond)
	close(release)

	st := <-done
	assert.True(t, st.IsError())
	assert.EqualError(t, st.Err, "boom")

	var calls int32
	st = Refetch(ctx, c, key, counter(&calls, "paul", nil))
	assert.True(t, st.IsSuccess())
	assert.Equal(t, "paul", st.Data)
	assert.NoError(t, st.Err)

	// an error keeps the last data
	st = Refetch(ctx, c, key, counter(&calls, "", errors.New("offline")))
	assert.True(t, st.IsError())
	assert.Equal(t, "paul", st.Data)
}

func TestFetchDeduplicatesInFlight(t *testing.T) {
	ctx := context.Background()
	c := New()
	key := NewKey("staff", nil)

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "list", nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]State[string], n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Fetch(ctx, c, key, fetch)
		}(i)
	}
	require.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		e := c.entries[key]
		return e != nil && e.fetching == n
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, st := range results {
		assert.Equal(t, "list", st.Data)
	}
}

func TestMutateInvalidates(t *testing.T) {
	ctx := context.Background()
	c := New()
	list := NewKey("students", apiclient.Params{"page": 1})
	other := NewKey("staff", nil)

	var calls, otherCalls int32
	Fetch(ctx, c, list, counter(&calls, "v1", nil))
	Fetch(ctx, c, list, counter(&calls, "v1", nil))
	Fetch(ctx, c, other, counter(&otherCalls, "s", nil))
	assert.Equal(t, int32(1), calls)

	_, err := Mutate(ctx, c, func(ctx context.Context) (string, error) { return "", errors.New("invalid") }, "students")
	require.Error(t, err)
	assert.False(t, Peek[string](c, list).Stale)

	created, err := Mutate(ctx, c, func(ctx context.Context) (string, error) { return "new", nil }, "students")
	require.NoError(t, err)
	assert.Equal(t, "new", created)
	assert.True(t, Peek[string](c, list).Stale)

	st := Fetch(ctx, c, list, counter(&calls, "v2", nil))
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, "v2", st.Data)
	assert.False(t, st.Stale)

	Fetch(ctx, c, other, counter(&otherCalls, "s", nil))
	assert.Equal(t, int32(1), otherCalls)
}

func TestInvalidatedWhileInFlightStaysStale(t *testing.T) {
	ctx := context.Background()
	c := New()
	key := NewKey("attendance", nil)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan State[string])
	go func() {
		done <- Fetch(ctx, c, key, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "before mutation", nil
		})
	}()
	<-started
	c.Invalidate(ctx, "attendance")
	close(release)

	st := <-done
	assert.Equal(t, "before mutation", st.Data)
	assert.True(t, st.Stale)

	var calls int32
	st = Fetch(ctx, c, key, counter(&calls, "after mutation", nil))
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, "after mutation", st.Data)
}

func TestStaleAfter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	c := New(WithStaleAfter(time.Minute))
	c.now = func() time.Time { return now }
	key := NewKey("users", nil)

	var calls int32
	Fetch(ctx, c, key, counter(&calls, "a", nil))
	now = now.Add(30 * time.Second)
	Fetch(ctx, c, key, counter(&calls, "a", nil))
	assert.Equal(t, int32(1), calls)

	now = now.Add(30 * time.Second)
	assert.True(t, Peek[string](c, key).Stale)
	Fetch(ctx, c, key, counter(&calls, "b", nil))
	assert.Equal(t, int32(2), calls)
}

func TestSetData(t *testing.T) {
	ctx := context.Background()
	c := New()
	key := NewKey("academic-years/active", nil)
	SetData(ctx, c, key, "2024-2025")

	var calls int32
	st := Fetch(ctx, c, key, counter(&calls, "unused", nil))
	assert.Zero(t, calls)
	assert.Equal(t, "2024-2025", st.Data)
}

func TestSharedStore(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	a := New(WithSharedStore(store), WithStaleAfter(time.Minute))
	b := New(WithSharedStore(store), WithStaleAfter(time.Minute))
	key := NewKey("roles", nil)

	var calls int32
	Fetch(ctx, a, key, func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"admin:", "teacher:"}, nil
	})
	st := Fetch(ctx, b, key, func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, []string{"admin:", "teacher:"}, st.Data)

	a.Invalidate(ctx, "roles")
	assert.Equal(t, 0, store.Len())
}

func TestPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New()
	key := NewKey("notifications/unread-count", nil)

	var n int32
	updates := make(chan State[int], 10)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		Poll(ctx, c, key, 5*time.Millisecond, func(ctx context.Context) (int, error) {
			return int(atomic.AddInt32(&n, 1)), nil
		}, func(st State[int]) {
			updates <- st
		})
	}()

	assert.Equal(t, 1, (<-updates).Data)
	assert.Equal(t, 2, (<-updates).Data)
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Poll did not stop on cancel")
	}
}
