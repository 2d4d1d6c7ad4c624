package auth

import (
	"net/http"
	"strings"
)

// Policy names the request paths that require a valid token. Most routes in
// this service are open; tokens gate only what is listed.
type Policy struct {
	ProtectedPaths    map[string]struct{}
	ProtectedPrefixes []string
}

// NewDefaultPolicy builds a policy protecting the given paths and prefixes.
func NewDefaultPolicy(paths []string, prefixes []string) Policy {
	set := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		set[path] = struct{}{}
	}
	return Policy{ProtectedPaths: set, ProtectedPrefixes: prefixes}
}

// RequiresAuth returns true when the request must carry a valid token.
func (p Policy) RequiresAuth(r *http.Request) bool {
	if r == nil {
		return false
	}
	if _, ok := p.ProtectedPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ProtectedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}
