package logos

import (
	"net/url"
	"strings"
)

// chainSlugs maps the journal's chain codes to DexScreener chain ids.
var chainSlugs = map[string]string{
	"eth":       "ethereum",
	"ethereum":  "ethereum",
	"bsc":       "bsc",
	"sol":       "solana",
	"solana":    "solana",
	"base":      "base",
	"arb":       "arbitrum",
	"arbitrum":  "arbitrum",
	"polygon":   "polygon",
	"matic":     "polygon",
	"avax":      "avalanche",
	"avalanche": "avalanche",
	"op":        "optimism",
	"optimism":  "optimism",
	"fantom":    "fantom",
	"ftm":       "fantom",
	"cronos":    "cronos",
	"linea":     "linea",
	"blast":     "blast",
}

// ChainSlug returns the DexScreener chain id for a chain code.
func ChainSlug(chain string) (string, bool) {
	slug, ok := chainSlugs[strings.ToLower(strings.TrimSpace(chain))]
	return slug, ok
}

// DexURL returns the dexscreener.com page of a token, falling back to a
// search when the chain is unknown.
func DexURL(chain, address string) string {
	slug, ok := ChainSlug(chain)
	if !ok {
		return "https://dexscreener.com/search?q=" + url.QueryEscape(address)
	}
	return "https://dexscreener.com/" + slug + "/" + address
}
