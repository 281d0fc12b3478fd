package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/picture-gallery/internal/logger"
	"github.com/samvad-hq/picture-gallery/internal/storage"
	"golang.org/x/sync/singleflight"
)

// Package query is a keyed cache for asynchronous reads: it serves fresh data
// from memory (or a persistent store), deduplicates concurrent fetches per
// key and reports loading/error/data state.

const storeKeyPrefix = "query:"

// Func fetches the value for one key.
type Func[T any] func(ctx context.Context) (T, error)

// Client owns every cached query of the process.
type Client struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	fetching map[string]struct{}
	group    singleflight.Group

	store    storage.Store
	defaults Options
	log      logger.Logger
	now      func() time.Time

	// fetches run on ctx, never on a caller's context; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

type entry struct {
	key       Key
	value     any
	updatedAt time.Time
	gcTime    time.Duration
	invalid   bool
}

type persisted struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

type resolved struct {
	value any
	at    time.Time
}

// New builds a query client. store may be nil for a memory-only cache; opts
// become the defaults for every query.
func New(store storage.Store, log logger.Logger, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		entries:  make(map[string]*entry),
		fetching: make(map[string]struct{}),
		store:    store,
		defaults: defaultOptions().apply(opts),
		log:      logger.Ensure(log),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close cancels fetches still in flight.
func (c *Client) Close() {
	if c == nil || c.cancel == nil {
		return
	}
	c.cancel()
}

// Run resolves key using fn, honouring the client defaults overridden by opts.
//
// Disabled queries return cached data if any and never call fn. Fresh cached
// data is returned without calling fn. Otherwise the caller starts, or joins,
// the single in-flight fetch for key and waits for it until it resolves, ctx
// ends, or the Wait budget elapses; in the last case the fetch continues and
// populates the cache for later callers. If ctx ends first, cached data is
// still returned when there is some.
func Run[T any](ctx context.Context, c *Client, key Key, fn Func[T], opts ...Option) State[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	o := c.defaults.apply(opts)
	hash := key.Hash()

	cached, hasCached := load[T](ctx, c, key, hash, o.GCTime)

	if !o.Enabled {
		if hasCached {
			return State[T]{Data: cached.data, Status: StatusSuccess, UpdatedAt: cached.updatedAt}
		}
		return State[T]{Status: StatusIdle}
	}

	if hasCached && c.isFresh(cached.updatedAt, cached.invalid, o) {
		return State[T]{Data: cached.data, Status: StatusSuccess, UpdatedAt: cached.updatedAt}
	}

	ch := c.fetch(key, hash, o.GCTime, func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	})

	var timeout <-chan time.Time
	if o.Wait > 0 {
		timer := time.NewTimer(o.Wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return State[T]{Status: StatusError, Error: res.Err}
		}
		r, _ := res.Val.(resolved)
		v, ok := r.value.(T)
		if !ok {
			return State[T]{Status: StatusError, Error: fmt.Errorf("query %s resolved to %T", hash, r.value)}
		}
		return State[T]{Data: v, Status: StatusSuccess, UpdatedAt: r.at}
	case <-timeout:
		return inFlightState(cached, hasCached)
	case <-ctx.Done():
		if hasCached {
			return inFlightState(cached, hasCached)
		}
		return State[T]{Status: StatusError, Error: ctx.Err()}
	}
}

// Peek reports the current state of key without fetching. A key with nothing
// cached and nothing in flight is idle.
func Peek[T any](c *Client, key Key) State[T] {
	hash := key.Hash()
	fetching := c.isFetching(hash)

	if e, ok := c.lookup(hash); ok {
		if v, ok := e.value.(T); ok {
			return State[T]{Data: v, Status: StatusSuccess, IsFetching: fetching, UpdatedAt: e.updatedAt}
		}
	}
	if fetching {
		return State[T]{Status: StatusPending, IsLoading: true, IsFetching: true}
	}
	return State[T]{Status: StatusIdle}
}

// Invalidate marks every cached key starting with prefix as stale so the next
// Run refetches, and drops matching persisted copies, including ones this
// client never loaded. It returns the number of keys invalidated.
func (c *Client) Invalidate(ctx context.Context, prefix Key) int {
	invalidated := make(map[string]struct{})

	c.mu.Lock()
	for hash, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.invalid = true
			invalidated[hash] = struct{}{}
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		deleted, err := c.store.DeletePrefix(ctx, storeKeyPrefix+prefixStem(prefix))
		if err != nil {
			c.log.WarnObj("query store delete failed", "query_error", map[string]any{
				"prefix": prefix.Hash(),
				"error":  err.Error(),
			})
		}
		for _, k := range deleted {
			invalidated[strings.TrimPrefix(k, storeKeyPrefix)] = struct{}{}
		}
	}

	c.log.DebugObj("queries invalidated", "query_meta", map[string]any{
		"prefix": prefix.Hash(),
		"count":  len(invalidated),
	})
	return len(invalidated)
}

// prefixStem is the hash of prefix without its closing bracket. Hashes of keys
// under prefix start with it and continue with "]" or ",".
func prefixStem(prefix Key) string {
	return strings.TrimSuffix(prefix.Hash(), "]")
}

type cachedValue[T any] struct {
	data      T
	updatedAt time.Time
	invalid   bool
}

// load returns the cached value for key from memory, falling back to the
// persistent store.
func load[T any](ctx context.Context, c *Client, key Key, hash string, gcTime time.Duration) (cachedValue[T], bool) {
	if e, ok := c.lookup(hash); ok {
		v, ok := e.value.(T)
		if !ok {
			c.log.WarnObj("query cache type mismatch", "query_error", map[string]any{
				"key":    hash,
				"cached": fmt.Sprintf("%T", e.value),
			})
			return cachedValue[T]{}, false
		}
		return cachedValue[T]{data: v, updatedAt: e.updatedAt, invalid: e.invalid}, true
	}

	if c.store == nil {
		return cachedValue[T]{}, false
	}

	raw, found, err := c.store.Get(ctx, storeKeyPrefix+hash)
	if err != nil {
		c.log.WarnObj("query store read failed", "query_error", map[string]any{
			"key":   hash,
			"error": err.Error(),
		})
		return cachedValue[T]{}, false
	}
	if !found {
		return cachedValue[T]{}, false
	}

	var p persisted
	var v T
	err = json.Unmarshal(raw, &p)
	if err == nil {
		err = json.Unmarshal(p.Data, &v)
	}
	if err != nil {
		c.log.WarnObj("query store decode failed", "query_error", map[string]any{
			"key":   hash,
			"error": err.Error(),
		})
		return cachedValue[T]{}, false
	}
	if c.now().Sub(p.UpdatedAt) >= gcTime {
		return cachedValue[T]{}, false
	}

	c.remember(key, hash, v, p.UpdatedAt, gcTime, false)
	return cachedValue[T]{data: v, updatedAt: p.UpdatedAt}, true
}

func (c *Client) lookup(hash string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[hash]
	if !ok {
		return entry{}, false
	}
	if c.now().Sub(e.updatedAt) >= e.gcTime {
		delete(c.entries, hash)
		return entry{}, false
	}
	return *e, true
}

// remember stores v unless a newer resolution for hash is already cached.
// Fresh fetches pass overwrite so the most recently resolved response wins.
func (c *Client) remember(key Key, hash string, v any, at time.Time, gcTime time.Duration, overwrite bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[hash]; ok && !overwrite && !existing.updatedAt.Before(at) {
		return
	}
	c.entries[hash] = &entry{
		key:       append(Key(nil), key...),
		value:     v,
		updatedAt: at,
		gcTime:    gcTime,
	}
}

func (c *Client) persist(hash string, v any, at time.Time, ttl time.Duration) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err == nil {
		data, err = json.Marshal(persisted{UpdatedAt: at, Data: data})
	}
	if err == nil {
		err = c.store.Put(c.ctx, storeKeyPrefix+hash, data, ttl)
	}
	if err != nil {
		c.log.WarnObj("query store write failed", "query_error", map[string]any{
			"key":   hash,
			"error": err.Error(),
		})
	}
}

func (c *Client) isFresh(updatedAt time.Time, invalid bool, o Options) bool {
	if invalid || o.AlwaysRefetch || o.StaleTime <= 0 {
		return false
	}
	return c.now().Sub(updatedAt) < o.StaleTime
}

func (c *Client) fetch(key Key, hash string, gcTime time.Duration, fn func(context.Context) (any, error)) <-chan singleflight.Result {
	return c.group.DoChan(hash, func() (any, error) {
		c.setFetching(hash, true)
		defer c.setFetching(hash, false)

		start := c.now()
		v, err := fn(c.ctx)
		if err != nil {
			c.log.WarnObj("query fetch failed", "query_error", map[string]any{
				"key":   hash,
				"error": err.Error(),
			})
			return nil, err
		}

		at := c.now()
		c.remember(key, hash, v, at, gcTime, true)
		c.persist(hash, v, at, gcTime)
		c.log.DebugObj("query resolved", "query_meta", map[string]any{
			"key":        hash,
			"elapsed_ms": at.Sub(start).Milliseconds(),
		})
		return resolved{value: v, at: at}, nil
	})
}

func (c *Client) setFetching(hash string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.fetching[hash] = struct{}{}
	} else {
		delete(c.fetching, hash)
	}
}

func (c *Client) isFetching(hash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.fetching[hash]
	return ok
}

func inFlightState[T any](cached cachedValue[T], hasCached bool) State[T] {
	if hasCached {
		return State[T]{Data: cached.data, Status: StatusSuccess, IsFetching: true, UpdatedAt: cached.updatedAt}
	}
	return State[T]{Status: StatusPending, IsLoading: true, IsFetching: true}
}
