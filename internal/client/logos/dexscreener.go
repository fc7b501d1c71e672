package logos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults of the DexScreener lookup.
const (
	DefaultDexScreenerURL = "https://api.dexscreener.com"
	DefaultDocumentTTL    = 5 * time.Minute
	defaultFetchTimeout   = 10 * time.Second
)

// pairEntry is the part of a /tokens/v1 entry the lookup reads.
type pairEntry struct {
	BaseToken struct {
		Address string `json:"address"`
	} `json:"baseToken"`
	Info struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

type document struct {
	entries []pairEntry
	fetched time.Time
}

// DexScreener looks token icons up in the DexScreener token API.
// Documents are kept in memory for a while and concurrent fetches of the
// same document share one request.
type DexScreener struct {
	base   string
	client *http.Client
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger

	mu    sync.Mutex
	docs  map[string]document
	group singleflight.Group
}

// DexOption configures a DexScreener.
type DexOption func(*DexScreener)

// WithHTTPClient sets the http.Client used for fetches.
func WithHTTPClient(c *http.Client) DexOption {
	return func(d *DexScreener) {
		if c != nil {
			d.client = c
		}
	}
}

// WithDocumentTTL sets how long fetched documents are reused.
func WithDocumentTTL(ttl time.Duration) DexOption {
	return func(d *DexScreener) { d.ttl = ttl }
}

// WithClock sets the time source of the document cache.
func WithClock(now func() time.Time) DexOption {
	return func(d *DexScreener) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDexLogger sets the logger.
func WithDexLogger(l *zap.Logger) DexOption {
	return func(d *DexScreener) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDexScreener returns a lookup against baseURL (DefaultDexScreenerURL when empty).
func NewDexScreener(baseURL string, opts ...DexOption) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	d := &DexScreener{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: defaultFetchTimeout},
		ttl:    DefaultDocumentTTL,
		now:    time.Now,
		log:    zap.NewNop(),
		docs:   make(map[string]document),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Supports reports whether chain maps to a DexScreener chain slug.
func (d *DexScreener) Supports(chain string) bool {
	_, ok := ChainSlug(chain)
	return ok
}

// Logo returns the icon URL of address on chain. An unmapped chain returns
// no logo without a request. The entry whose base token matches address
// (case-insensitively) wins, otherwise the first entry is used.
func (d *DexScreener) Logo(ctx context.Context, chain, address string) (string, error) {
	slug, ok := ChainSlug(chain)
	if !ok {
		return "", nil
	}
	entries, err := d.entries(ctx, slug, address)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	picked := entries[0]
	for _, e := range entries {
		if strings.EqualFold(e.BaseToken.Address, address) {
			picked = e
			break
		}
	}
	return strings.TrimSpace(picked.Info.ImageURL), nil
}

func (d *DexScreener) entries(ctx context.Context, slug, address string) ([]pairEntry, error) {
	key := slug + "/" + address
	if doc, ok := d.cached(key); ok {
		return doc.entries, nil
	}

	v, err, _ := d.group.Do(key, func() (any, error) {
		if doc, ok := d.cached(key); ok {
			return doc.entries, nil
		}
		// the fetch outlives a single caller's cancellation; other waiters share it
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFetchTimeout)
		defer cancel()
		entries, err := d.fetch(fctx, slug, address)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.docs[key] = document{entries: entries, fetched: d.now()}
		d.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]pairEntry), nil
}

func (d *DexScreener) cached(key string) (document, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[key]
	if !ok {
		return document{}, false
	}
	if d.now().Sub(doc.fetched) >= d.ttl {
		delete(d.docs, key)
		return document{}, false
	}
	return doc, true
}

func (d *DexScreener) fetch(ctx context.Context, slug, address string) ([]pairEntry, error) {
	key := slug + "/" + address
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.base+"/tokens/v1/"+slug+"/"+url.PathEscape(address), nil)
	if err != nil {
		return nil, fmt.Errorf("build dexscreener request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dexscreener response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener %s: %s", key, resp.Status)
	}

	var entries []pairEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		// a non-array document means no logo
		d.log.Debug("unexpected dexscreener document", zap.String("key", key), zap.Error(err))
		return []pairEntry{}, nil
	}
	return entries, nil
}
