// Package guard decides whether a view may be shown for the cached identity.
package guard

import (
	"context"
	"strings"

	"session-relay/internal/client/sessioncache"
	"session-relay/internal/domain"
)

// Decision is the outcome of a guard check.
type Decision int

const (
	// Pending means the identity is still being resolved. Neither allow nor
	// redirect yet.
	Pending Decision = iota
	Allow
	Redirect
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "pending"
	}
}

// DefaultRedirect is where unauthenticated callers are sent.
const DefaultRedirect = "/login"

// Result carries the decision and, for Redirect, where to go.
type Result struct {
	Decision   Decision
	RedirectTo string
}

// Policy is the access rule for one view.
type Policy struct {
	RequiredRole domain.Role
	RedirectTo   string
}

// Check applies p to the cached identity.
func (p Policy) Check(cached sessioncache.CachedIdentity) Result {
	switch cached.Status {
	case sessioncache.StatusUnresolved:
		return Result{Decision: Pending}
	case sessioncache.StatusResolved:
		if cached.Identity != nil && cached.Identity.Role.AtLeast(p.RequiredRole) {
			return Result{Decision: Allow}
		}
	}

	target := p.RedirectTo
	if target == "" {
		target = DefaultRedirect
	}
	return Result{Decision: Redirect, RedirectTo: target}
}

// Check is Policy.Check with the default redirect target.
func Check(required domain.Role, cached sessioncache.CachedIdentity) Result {
	return Policy{RequiredRole: required}.Check(cached)
}

// Await blocks until the cache leaves Unresolved and then decides once.
// It returns ctx.Err() if ctx ends first.
func Await(ctx context.Context, cache *sessioncache.Cache, p Policy) (Result, error) {
	settled := make(chan sessioncache.CachedIdentity, 1)
	unsubscribe := cache.Subscribe(func(ci sessioncache.CachedIdentity) {
		if ci.Status == sessioncache.StatusUnresolved {
			return
		}
		select {
		case settled <- ci:
		default:
		}
	})
	defer unsubscribe()

	if current := cache.Current(); current.Status != sessioncache.StatusUnresolved {
		return p.Check(current), nil
	}

	select {
	case ci := <-settled:
		return p.Check(ci), nil
	case <-ctx.Done():
		return Result{Decision: Pending}, ctx.Err()
	}
}

// Guard maps view paths to policies. Paths without a policy are public.
type Guard struct {
	exact    map[string]Policy
	prefixes []prefixPolicy
}

type prefixPolicy struct {
	prefix string
	policy Policy
}

// New returns an empty guard.
func New() *Guard {
	return &Guard{exact: make(map[string]Policy)}
}

// NewDefault returns the guard for the library front end. Administrator views
// send everyone else home; member views send anonymous callers to login.
func NewDefault() *Guard {
	admin := Policy{RequiredRole: domain.RoleAdministrator, RedirectTo: "/"}
	member := Policy{RequiredRole: domain.RoleRegular, RedirectTo: DefaultRedirect}

	g := New()
	g.Protect("/admin", admin)
	g.ProtectPrefix("/admin/", admin)
	g.Protect("/reservations", admin)
	g.Protect("/dashboard", member)
	g.Protect("/my-account", member)
	g.Protect("/my-reservations", member)
	g.Protect("/reservations/my-reservations", member)
	return g
}

// Protect sets the policy for an exact path.
func (g *Guard) Protect(path string, p Policy) {
	g.exact[normalize(path)] = p
}

// ProtectPrefix sets the policy for every path under prefix. Longer prefixes
// win.
func (g *Guard) ProtectPrefix(prefix string, p Policy) {
	g.prefixes = append(g.prefixes, prefixPolicy{prefix: prefix, policy: p})
}

// PolicyFor returns the policy for path and whether one exists.
func (g *Guard) PolicyFor(path string) (Policy, bool) {
	path = normalize(path)
	if p, ok := g.exact[path]; ok {
		return p, true
	}

	var (
		best  Policy
		found bool
		depth int
	)
	for _, pp := range g.prefixes {
		if strings.HasPrefix(path, pp.prefix) && len(pp.prefix) > depth {
			best, found, depth = pp.policy, true, len(pp.prefix)
		}
	}
	return best, found
}

// Check decides access to path for the cached identity.
func (g *Guard) Check(path string, cached sessioncache.CachedIdentity) Result {
	p, ok := g.PolicyFor(path)
	if !ok {
		return Result{Decision: Allow}
	}
	return p.Check(cached)
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}
