// Package sessioncache keeps the caller's view of who is logged in, resolved
// through the edge relay.
package sessioncache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"session-relay/internal/domain"

	"golang.org/x/sync/singleflight"
)

// Status is the resolution state of the cached identity.
type Status int

const (
	StatusUnresolved Status = iota
	StatusAnonymous
	StatusResolved
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusResolved:
		return "resolved"
	default:
		return "unresolved"
	}
}

// CachedIdentity is a snapshot of the cache. Identity is set only when
// Status is StatusResolved.
type CachedIdentity struct {
	Status   Status
	Identity *domain.Identity
}

// Relay is the subset of the relay client the cache depends on.
type Relay interface {
	Login(ctx context.Context, email, password string) error
	UserDetails(ctx context.Context) (*domain.Identity, error)
	Logout(ctx context.Context) error
}

const (
	resolveKey            = "userdetails"
	defaultResolveTimeout = 10 * time.Second
)

// Cache coalesces identity lookups so that any number of concurrent
// triggers produce one upstream request.
type Cache struct {
	relay   Relay
	logger  *slog.Logger
	timeout time.Duration

	group singleflight.Group

	mu    sync.Mutex
	seq   uint64
	state CachedIdentity

	notifyMu    sync.Mutex
	subscribers map[int]func(CachedIdentity)
	nextSubID   int
}

// Option customises a Cache.
type Option func(*Cache)

// WithResolveTimeout bounds each upstream lookup.
func WithResolveTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for resolution failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a cache in the Unresolved state.
func New(relay Relay, opts ...Option) *Cache {
	c := &Cache{
		relay:       relay,
		logger:      slog.Default(),
		timeout:     defaultResolveTimeout,
		subscribers: make(map[int]func(CachedIdentity)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the latest snapshot.
func (c *Cache) Current() CachedIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called after every state change. The returned
// function removes the subscription.
func (c *Cache) Subscribe(fn func(CachedIdentity)) func() {
	c.notifyMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.notifyMu.Lock()
			delete(c.subscribers, id)
			c.notifyMu.Unlock()
		})
	}
}

// Resolve asks the relay who the caller is. Callers arriving while a lookup is
// in flight share its result. If a login supersedes the lookup, callers wait
// for the newer one. If ctx ends first, the current snapshot is returned and
// the lookup keeps running for the others.
func (c *Cache) Resolve(ctx context.Context) CachedIdentity {
	for {
		ch := c.group.DoChan(resolveKey, func() (any, error) {
			return c.resolve(context.WithoutCancel(ctx)), nil
		})

		select {
		case res := <-ch:
			out := res.Val.(flightResult)
			if !out.superseded || out.state.Status != StatusUnresolved {
				return out.state
			}
			// a newer lookup is running; join it
		case <-ctx.Done():
			return c.Current()
		}
	}
}

// flightResult is what one upstream lookup hands to its waiters. A superseded
// flight carries the state at the time it finished, not its own answer.
type flightResult struct {
	state      CachedIdentity
	superseded bool
}

func (c *Cache) resolve(ctx context.Context) flightResult {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state = CachedIdentity{Status: StatusUnresolved}
	c.mu.Unlock()
	c.notify()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	next := CachedIdentity{Status: StatusAnonymous}
	identity, err := c.relay.UserDetails(ctx)
	switch {
	case err == nil && identity != nil:
		next = CachedIdentity{Status: StatusResolved, Identity: identity}
	case err == nil, domain.IsUnauthenticated(err):
		c.logger.DebugContext(ctx, "no active session")
	default:
		c.logger.WarnContext(ctx, "identity resolution failed", "error", err)
	}

	c.mu.Lock()
	if seq != c.seq {
		current := c.state
		c.mu.Unlock()
		return flightResult{state: current, superseded: true}
	}
	c.state = next
	c.mu.Unlock()
	c.notify()

	return flightResult{state: next}
}

// Login authenticates through the relay and then resolves the identity
// afresh. The login response itself is not used as identity.
func (c *Cache) Login(ctx context.Context, email, password string) (CachedIdentity, error) {
	if err := c.relay.Login(ctx, email, password); err != nil {
		return c.Current(), err
	}
	c.invalidate()
	return c.Resolve(ctx), nil
}

// Logout ends the session through the relay. The cache becomes Anonymous
// whether or not the relay could be reached.
func (c *Cache) Logout(ctx context.Context) {
	if err := c.relay.Logout(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.DebugContext(ctx, "logout request cancelled")
		} else {
			c.logger.WarnContext(ctx, "logout request failed", "error", err)
		}
	}

	c.mu.Lock()
	c.seq++
	c.state = CachedIdentity{Status: StatusAnonymous}
	c.group.Forget(resolveKey)
	c.mu.Unlock()
	c.notify()
}

// invalidate discards any in-flight lookup so the next Resolve starts anew.
func (c *Cache) invalidate() {
	c.mu.Lock()
	c.seq++
	c.group.Forget(resolveKey)
	c.mu.Unlock()
}

func (c *Cache) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	snapshot := c.Current()
	for _, fn := range c.subscribers {
		fn(snapshot)
	}
}
