package logos

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultLimit caps the lookups issued by one pass.
const DefaultLimit = 40

// Lookup resolves the icon URL of a token. An empty URL means "no logo".
type Lookup interface {
	Logo(ctx context.Context, chain, address string) (string, error)
}

// ChainSupporter is implemented by lookups that can only serve some chains.
// Items on other chains are never selected, so they take no slot of the
// per-pass cap.
type ChainSupporter interface {
	Supports(chain string) bool
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, chain, address string) (string, error)

// Logo calls f.
func (f LookupFunc) Logo(ctx context.Context, chain, address string) (string, error) {
	return f(ctx, chain, address)
}

type resolverSettings struct {
	limit int
	log   *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*resolverSettings)

// WithLimit sets the per-pass lookup cap.
func WithLimit(n int) ResolverOption {
	return func(s *resolverSettings) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger used for skipped lookups.
func WithLogger(l *zap.Logger) ResolverOption {
	return func(s *resolverSettings) {
		if l != nil {
			s.log = l
		}
	}
}

// Resolver fills a Cache with the logos of a list of items.
// At most one pass of a Resolver is live at a time.
type Resolver[T any] struct {
	cache   *Cache
	lookup  Lookup
	address func(T) string
	chain   func(T) string
	// supports is nil when every chain is accepted.
	supports func(string) bool
	limit    int
	log      *zap.Logger

	mu      sync.Mutex
	current *Pass
	closed  bool
}

// NewResolver returns a Resolver reading item addresses and chains through
// the given accessors.
func NewResolver[T any](cache *Cache, lookup Lookup, address, chain func(T) string, opts ...ResolverOption) *Resolver[T] {
	s := resolverSettings{limit: DefaultLimit, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	r := &Resolver[T]{
		cache:   cache,
		lookup:  lookup,
		address: address,
		chain:   chain,
		limit:   s.limit,
		log:     s.log,
	}
	if cs, ok := lookup.(ChainSupporter); ok {
		r.supports = cs.Supports
	}
	return r
}

type candidate struct {
	key     string
	address string
	chain   string
}

// Refresh cancels the running pass and starts a new one over items.
// Candidates are chosen now, in item order: items without an address, without
// a chain, or on a chain the lookup does not support are skipped, as are addresses already resolved, in flight, or seen
// earlier in items. The pass then looks them up one at a time in the
// background. ctx bounds the lookups themselves.
func (r *Resolver[T]) Refresh(ctx context.Context, items []T) *Pass {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.Cancel()
	}
	if r.closed {
		p := newPass(0)
		p.Cancel()
		close(p.done)
		return p
	}

	cands := r.candidates(items)
	p := newPass(len(cands))
	r.current = p
	go r.run(ctx, p, cands)
	return p
}

// Close cancels the running pass and makes later Refresh calls no-ops.
func (r *Resolver[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.current != nil {
		r.current.Cancel()
	}
}

func (r *Resolver[T]) candidates(items []T) []candidate {
	seen := make(map[string]struct{})
	var out []candidate
	for _, it := range items {
		address := r.address(it)
		key := Key(address)
		if key == "" {
			continue
		}
		chain := strings.TrimSpace(r.chain(it))
		if chain == "" {
			continue
		}
		if r.supports != nil && !r.supports(chain) {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		if r.cache.skip(key) {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate{key: key, address: address, chain: chain})
		if len(out) >= r.limit {
			break
		}
	}
	return out
}

func (r *Resolver[T]) run(ctx context.Context, p *Pass, cands []candidate) {
	defer close(p.done)
	for _, c := range cands {
		if p.Cancelled() || ctx.Err() != nil {
			return
		}
		// another pass may have claimed or resolved it since selection
		if !r.cache.claim(c.key) {
			continue
		}
		p.issued.Add(1)
		url, err := r.lookup.Logo(ctx, c.chain, c.address)
		url = strings.TrimSpace(url)
		switch {
		case err != nil:
			r.log.Debug("logo lookup failed", zap.String("address", c.address), zap.String("chain", c.chain), zap.Error(err))
		case url != "" && !p.Cancelled():
			if r.cache.PutIfAbsent(c.key, url) {
				p.resolved.Add(1)
			}
		}
		r.cache.release(c.key)
	}
}

// Pass is one background resolution run.
type Pass struct {
	candidates int
	issued     atomic.Int32
	resolved   atomic.Int32
	cancelled  atomic.Bool
	done       chan struct{}
}

func newPass(candidates int) *Pass {
	return &Pass{candidates: candidates, done: make(chan struct{})}
}

// Cancel stops the pass from issuing more lookups. A lookup already issued
// runs to completion but its result is discarded.
func (p *Pass) Cancel() { p.cancelled.Store(true) }

// Cancelled reports whether Cancel was called.
func (p *Pass) Cancelled() bool { return p.cancelled.Load() }

// Done is closed when the pass has stopped.
func (p *Pass) Done() <-chan struct{} { return p.done }

// Wait blocks until the pass stops or ctx is done.
func (p *Pass) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Candidates returns the number of addresses selected at pass start.
func (p *Pass) Candidates() int { return p.candidates }

// Issued returns the number of lookups started so far.
func (p *Pass) Issued() int { return int(p.issued.Load()) }

// Resolved returns the number of logos this pass added to the cache.
func (p *Pass) Resolved() int { return int(p.resolved.Load()) }
