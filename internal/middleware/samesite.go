// Package middleware provides HTTP middlewares for origin checks and logging.
package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// SameOrigin is a middleware that rejects cross-origin browser calls.
//
// Browsers attach an Origin header to cross-site requests; when it is present
// its host must match the request host. Requests without an Origin header
// (server-to-server calls, curl) are let through. The /healthz endpoint is
// excluded so load balancers can probe it from anywhere.
func SameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := url.Parse(origin)
		if err != nil || !strings.EqualFold(u.Host, r.Host) {
			http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
