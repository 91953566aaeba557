package query

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/debemdeboas/microsites/internal/cache"
)

var queryLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	queryLogger = l
}

// State is the freshness of a cache entry as seen by Peek.
type State int

const (
	Missing State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	}
	return "missing"
}

// entry is one cached value. gen counts invalidations of the key, and a
// fetch only stores its result when the generation it started under is
// still current.
type entry struct {
	value     any
	present   bool
	stale     bool
	fetchedAt time.Time
	gen       uint64
}

type Cache struct {
	entries *cache.Cache[Key, entry]
	flights singleflight.Group
	maxAge  map[Kind]time.Duration
	now     func() time.Time
}

type CacheOption func(*Cache)

// WithMaxAge bounds how long entries of kind stay fresh. Zero means entries
// only go stale through invalidation.
func WithMaxAge(kind Kind, d time.Duration) CacheOption {
	return func(c *Cache) {
		c.maxAge[kind] = d
	}
}

// WithPublicMaxAge applies d to every public kind. Public entries are never
// fresh unless d is positive, so each read goes back to the remote while
// concurrent reads still share one fetch.
func WithPublicMaxAge(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.maxAge[KindPublicProject] = d
		c.maxAge[KindPublicProjects] = d
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: cache.NewCache[Key, entry](),
		maxAge:  make(map[Kind]time.Duration),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type fetchOptions struct {
	force bool
}

type FetchOption func(*fetchOptions)

// Force skips a fresh cached value and fetches again.
func Force() FetchOption {
	return func(o *fetchOptions) {
		o.force = true
	}
}

// flightResult carries the generation a shared fetch started under.
type flightResult struct {
	value any
	gen   uint64
}

// Fetch returns the cached value of key or loads it with fetch. At most one
// fetch per key is in flight and concurrent callers share it. A caller that
// arrives after an invalidation waits for the older fetch to end without
// using its result, then fetches again. The shared call is detached from
// the cancellation of any single caller, so a caller that gives up only
// stops waiting. A failed fetch leaves the cache untouched.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error), opts ...FetchOption) (T, error) {
	var zero T
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}
	detached := context.WithoutCancel(ctx)

	for {
		e, _ := c.entries.Get(key)
		if !o.force && c.fresh(key.Kind, e) {
			if v, ok := e.value.(T); ok {
				queryLogger.Trace().Stringer("key", key).Msg("Cache hit")
				return v, nil
			}
		}
		want := e.gen

		ch := c.flights.DoChan(key.String(), func() (any, error) {
			cur, _ := c.entries.Get(key)
			gen := cur.gen
			queryLogger.Debug().Stringer("key", key).Uint64("gen", gen).Msg("Fetching")
			v, err := fetch(detached)
			if err != nil {
				queryLogger.Debug().Err(err).Stringer("key", key).Msg("Fetch failed")
				return flightResult{gen: gen}, err
			}
			c.store(key, gen, v)
			return flightResult{value: v, gen: gen}, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			r, _ := res.Val.(flightResult)
			if r.gen < want {
				queryLogger.Debug().Stringer("key", key).Uint64("gen", want).Msg("Waited out a superseded fetch")
				continue
			}
			if res.Err != nil {
				return zero, res.Err
			}
			v, _ := r.value.(T)
			return v, nil
		}
	}
}

func (c *Cache) fresh(kind Kind, e entry) bool {
	if !e.present || e.stale {
		return false
	}
	age := c.maxAge[kind]
	if age <= 0 && kind.Public() {
		return false
	}
	if age > 0 && c.now().Sub(e.fetchedAt) >= age {
		return false
	}
	return true
}

func (c *Cache) store(key Key, gen uint64, v any) {
	c.entries.Update(key, func(cur entry, _ bool) entry {
		if cur.gen != gen {
			// Invalidated while in flight; the result may predate the mutation.
			queryLogger.Debug().Stringer("key", key).Msg("Discarding result of superseded fetch")
			return cur
		}
		return entry{value: v, present: true, fetchedAt: c.now(), gen: gen}
	})
}

// Set stores v under key as a fresh value.
func (c *Cache) Set(key Key, v any) {
	c.entries.Update(key, func(cur entry, _ bool) entry {
		return entry{value: v, present: true, fetchedAt: c.now(), gen: cur.gen}
	})
}

// Invalidate marks keys stale. Fetches already in flight for them will not
// store their results, and the next read of each key fetches again.
func (c *Cache) Invalidate(keys ...Key) {
	for _, key := range keys {
		c.entries.Update(key, func(cur entry, _ bool) entry {
			cur.stale = true
			cur.gen++
			return cur
		})
		queryLogger.Trace().Stringer("key", key).Msg("Invalidated")
	}
}

// Remove drops the values of keys. The generation survives so that an
// in-flight fetch cannot bring a removed value back.
func (c *Cache) Remove(keys ...Key) {
	for _, key := range keys {
		c.entries.Update(key, func(cur entry, _ bool) entry {
			return entry{gen: cur.gen + 1}
		})
		queryLogger.Trace().Stringer("key", key).Msg("Removed")
	}
}

// Peek reports the cached value of key without fetching.
func (c *Cache) Peek(key Key) (any, State) {
	e, ok := c.entries.Get(key)
	if !ok || !e.present {
		return nil, Missing
	}
	if c.fresh(key.Kind, e) {
		return e.value, Fresh
	}
	return e.value, Stale
}
