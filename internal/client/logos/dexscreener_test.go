package logos

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dexServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32, *[]string) {
	t.Helper()
	var (
		hits  atomic.Int32
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, &paths
}

func TestDexScreener_PrefersMatchingAddress(t *testing.T) {
	srv, _, paths := dexServer(t, `[
		{"baseToken":{"address":"0xother"},"info":{"imageUrl":"https://img/other.png"}},
		{"baseToken":{"address":"0xABCDEF"},"info":{"imageUrl":"  https://img/match.png "}}
	]`)
	d := NewDexScreener(srv.URL)

	url, err := d.Logo(context.Background(), "ETH", "0xabcdef")
	require.NoError(t, err)
	assert.Equal(t, "https://img/match.png", url)
	assert.Equal(t, []string{"/tokens/v1/ethereum/0xabcdef"}, *paths)
}

func TestDexScreener_FallsBackToFirstEntry(t *testing.T) {
	srv, _, _ := dexServer(t, `[{"baseToken":{"address":"So1aaa"},"info":{"imageUrl":"https://img/first.png"}}]`)
	url, err := NewDexScreener(srv.URL).Logo(context.Background(), "sol", "So1zzz")
	require.NoError(t, err)
	assert.Equal(t, "https://img/first.png", url)
}

func TestDexScreener_NoLogo(t *testing.T) {
	cases := map[string]string{
		"empty array":  `[]`,
		"not an array": `{"pairs":[]}`,
		"blank image":  `[{"baseToken":{"address":"0x1"},"info":{"imageUrl":"   "}}]`,
		"no info":      `[{"baseToken":{"address":"0x1"}}]`,
		"null":         `null`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _, _ := dexServer(t, body)
			url, err := NewDexScreener(srv.URL).Logo(context.Background(), "bsc", "0x1")
			require.NoError(t, err)
			assert.Empty(t, url)
		})
	}
}

func TestDexScreener_UnmappedChainMakesNoRequest(t *testing.T) {
	srv, hits, _ := dexServer(t, `[]`)
	url, err := NewDexScreener(srv.URL).Logo(context.Background(), "tron", "T123")
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Zero(t, hits.Load())
}

func TestDexScreener_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewDexScreener(srv.URL).Logo(context.Background(), "eth", "0x1")
	assert.Error(t, err)
}

func TestDexScreener_CachesDocuments(t *testing.T) {
	srv, hits, _ := dexServer(t, `[{"baseToken":{"address":"0x1"},"info":{"imageUrl":"https://img/1.png"}}]`)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d := NewDexScreener(srv.URL, WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		_, err := d.Logo(context.Background(), "eth", "0x1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	now = now.Add(DefaultDocumentTTL)
	_, err := d.Logo(context.Background(), "ethereum", "0x1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDexScreener_CollapsesConcurrentFetches(t *testing.T) {
	var hits atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(entered)
		}
		<-release
		_, _ = w.Write([]byte(`[{"baseToken":{"address":"0x1"},"info":{"imageUrl":"https://img/1.png"}}]`))
	}))
	defer srv.Close()
	d := NewDexScreener(srv.URL)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = d.Logo(context.Background(), "eth", "0x1")
		}(i)
	}
	<-entered
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, r := range results {
		assert.Equal(t, "https://img/1.png", r)
	}
}

func TestChainSlugAndDexURL(t *testing.T) {
	slug, ok := ChainSlug(" MATIC ")
	assert.True(t, ok)
	assert.Equal(t, "polygon", slug)
	_, ok = ChainSlug("tron")
	assert.False(t, ok)

	assert.Equal(t, "https://dexscreener.com/solana/So1abc", DexURL("sol", "So1abc"))
	assert.Equal(t, "https://dexscreener.com/search?q=T123", DexURL("", "T123"))
}

func TestDexScreener_AsResolverLookup(t *testing.T) {
	srv, _, _ := dexServer(t, `[{"baseToken":{"address":"0x1"},"info":{"imageUrl":"https://img/1.png"}}]`)
	cache := NewCache()
	r := NewResolver(cache, NewDexScreener(srv.URL), coinCA, coinChain)

	wait(t, r.Refresh(context.Background(), []coin{{ca: "0x1", chain: "eth"}, {ca: "T1", chain: "tron"}}))
	url, ok := cache.Get("0x1")
	require.True(t, ok)
	assert.Equal(t, "https://img/1.png", url)
	_, ok = cache.Get("t1")
	assert.False(t, ok)
}

func TestDexScreener_Supports(t *testing.T) {
	d := NewDexScreener("")
	assert.True(t, d.Supports("SOL"))
	assert.False(t, d.Supports("tron"))
}

func TestDexScreener_UnmappedChainsDoNotStarveResolver(t *testing.T) {
	srv, hits, _ := dexServer(t, `[{"baseToken":{"address":"x"},"info":{"imageUrl":"https://img/x.png"}}]`)
	var items []coin
	for i := 0; i < 40; i++ {
		items = append(items, coin{ca: fmt.Sprintf("T%03d", i), chain: "tron"})
	}
	items = append(items, coins(10)...)

	cache := NewCache()
	r := NewResolver(cache, NewDexScreener(srv.URL), coinCA, coinChain)
	p := r.Refresh(context.Background(), items)
	wait(t, p)

	assert.Equal(t, 10, p.Candidates())
	assert.Equal(t, int32(10), hits.Load())
	assert.Equal(t, 10, cache.Len())
}

func TestDexScreener_EscapesAddress(t *testing.T) {
	var (
		mu       sync.Mutex
		rawPaths []string
		queries  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		rawPaths = append(rawPaths, r.URL.EscapedPath())
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		_, _ = w.Write([]byte(`[{"baseToken":{"address":"abc?chainId=x#frag"},"info":{"imageUrl":"https://img/odd.png"}}]`))
	}))
	defer srv.Close()
	d := NewDexScreener(srv.URL)

	url, err := d.Logo(context.Background(), "eth", "abc?chainId=x#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://img/odd.png", url)
	assert.Equal(t, []string{"/tokens/v1/ethereum/abc%3FchainId=x%23frag"}, rawPaths)
	assert.Equal(t, []string{""}, queries)

	_, err = d.Logo(context.Background(), "eth", "abc?chainId=x#frag")
	require.NoError(t, err)
	assert.Len(t, rawPaths, 1, "document cached under the raw address")
}
