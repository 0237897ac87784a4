// Package query caches API reads by key, de-duplicates in-flight fetches and
// invalidates cached reads when mutations succeed.
package query

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/core"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "idle"
	}
}

// State is the result of a query. Data holds the last successful result, even after an error.
type State[T any] struct {
	Status    Status
	Data      T
	Err       error
	Fetching  bool // a fetch is in flight
	Stale     bool
	UpdatedAt time.Time
}

func (s State[T]) IsLoading() bool { return s.Status == StatusLoading }
func (s State[T]) IsError() bool   { return s.Status == StatusError }
func (s State[T]) IsSuccess() bool { return s.Status == StatusSuccess }

// Key identifies a cached read: a resource path plus its serialized params.
type Key string

// NewKey builds the key of resource with params; equal params give equal keys.
func NewKey(resource string, params apiclient.Params) Key {
	resource = strings.Trim(resource, "/")
	if q := params.Encode(); q != "" {
		return Key(resource + "?" + q)
	}
	return Key(resource)
}

func (k Key) Resource() string {
	return strings.SplitN(string(k), "?", 2)[0]
}

// Matches reports whether k belongs to resource or one of its sub-resources.
func (k Key) Matches(resource string) bool {
	resource = strings.Trim(resource, "/")
	r := k.Resource()
	return r == resource || strings.HasPrefix(r, resource+"/")
}

type entry struct {
	hasData   bool
	data      interface{}
	err       error
	updatedAt time.Time
	fetching  int
	epoch     uint64 // bumped by invalidation
	stale     bool
}

// Fetcher loads the data of a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

type (
	Cache struct {
		mu         sync.RWMutex
		entries    map[Key]*entry
		group      singleflight.Group
		staleAfter time.Duration
		shared     core.Cache
		now        func() time.Time
	}

	Option func(c *Cache)
)

// WithStaleAfter sets the age after which cached data is refetched on read; 0 never expires.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Cache) { c.staleAfter = d }
}

// WithSharedStore backs the cache with a byte store (e.g. redis) shared between processes.
func WithSharedStore(store core.Cache) Option {
	return func(c *Cache) { c.shared = store }
}

func New(opts ...Option) *Cache {
	c := &Cache{entries: make(map[Key]*entry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const sharedPrefix = "query:"

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = new(entry)
		c.entries[key] = e
	}
	return e
}

func (c *Cache) expired(e *entry) bool {
	return c.staleAfter > 0 && c.now().Sub(e.updatedAt) >= c.staleAfter
}

func stateOf[T any](c *Cache, e *entry) State[T] {
	var st State[T]
	if e == nil {
		return st
	}
	if e.hasData {
		if v, ok := e.data.(T); ok {
			st.Data = v
		}
	}
	st.Fetching = e.fetching > 0
	st.Stale = e.stale || (e.hasData && c.expired(e))
	st.UpdatedAt = e.updatedAt
	switch {
	case e.err != nil:
		st.Status, st.Err = StatusError, e.err
	case e.hasData:
		st.Status = StatusSuccess
	case e.fetching > 0:
		st.Status = StatusLoading
	}
	return st
}

// Peek returns the cached state of key without fetching.
func Peek[T any](c *Cache, key Key) State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return stateOf[T](c, c.entries[key])
}

// Fetch returns the cached data of key, fetching it when missing, invalidated or expired.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn Fetcher[T]) State[T] {
	c.mu.RLock()
	e := c.entries[key]
	fresh := e != nil && e.hasData && e.err == nil && !e.stale && !c.expired(e)
	c.mu.RUnlock()
	if fresh {
		return Peek[T](c, key)
	}
	if c.loadShared(ctx, key, decodeInto[T]) {
		return Peek[T](c, key)
	}
	return Refetch(ctx, c, key, fn)
}

// Refetch always fetches key (sharing any fetch already in flight) and replaces its entry.
func Refetch[T any](ctx context.Context, c *Cache, key Key, fn Fetcher[T]) State[T] {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.fetching++
	epoch := e.epoch
	c.mu.Unlock()

	ch := c.group.DoChan(string(key), func() (interface{}, error) {
		return fn(ctx)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}

	c.mu.Lock()
	e = c.entryLocked(key)
	e.fetching--
	if res.Err != nil {
		e.err = res.Err
	} else {
		e.hasData, e.data, e.err = true, res.Val, nil
		e.updatedAt = c.now()
		// invalidated while in flight: the result may predate the mutation
		e.stale = e.epoch != epoch
	}
	st := stateOf[T](c, e)
	c.mu.Unlock()

	if res.Err == nil && !res.Shared {
		c.saveShared(ctx, key, res.Val)
	}
	return st
}

// SetData replaces the cached data of key, as if it had just been fetched.
func SetData[T any](ctx context.Context, c *Cache, key Key, data T) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.hasData, e.data, e.err, e.stale = true, data, nil, false
	e.updatedAt = c.now()
	c.mu.Unlock()
	c.saveShared(ctx, key, data)
}

// Invalidate marks the entries of resources (and their sub-resources) stale; the next Fetch refetches them.
func (c *Cache) Invalidate(ctx context.Context, resources ...string) {
	c.mu.Lock()
	for key, e := range c.entries {
		for _, r := range resources {
			if key.Matches(r) {
				e.stale = true
				e.epoch++
				break
			}
		}
	}
	c.mu.Unlock()

	if c.shared != nil {
		for _, r := range resources {
			_ = c.shared.DeletePrefix(ctx, sharedPrefix+strings.Trim(r, "/"))
		}
	}
}

// Clear drops every entry, e.g. on sign-out.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()
}

// Mutate runs fn and invalidates resources when it succeeds.
func Mutate[T any](ctx context.Context, c *Cache, fn func(ctx context.Context) (T, error), resources ...string) (T, error) {
	res, err := fn(ctx)
	if err != nil {
		return res, err
	}
	c.Invalidate(ctx, resources...)
	return res, nil
}

func decodeInto[T any](data []byte) (interface{}, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

func (c *Cache) loadShared(ctx context.Context, key Key, decode func([]byte) (interface{}, error)) bool {
	if c.shared == nil {
		return false
	}
	data, err := c.shared.Get(ctx, sharedPrefix+string(key))
	if err != nil {
		return false
	}
	v, err := decode(data)
	if err != nil {
		return false
	}
	c.mu.Lock()
	e := c.entryLocked(key)
	e.hasData, e.data, e.err, e.stale = true, v, nil, false
	e.updatedAt = c.now()
	c.mu.Unlock()
	return true
}

func (c *Cache) saveShared(ctx context.Context, key Key, v interface{}) {
	if c.shared == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.shared.Set(ctx, sharedPrefix+string(key), data, c.staleAfter)
}
