package auth

import (
	"net/http"
	"strings"
)

// Policy decides which request paths bypass user authentication.
type Policy struct {
	exempt         map[string]struct{}
	exemptPrefixes []string
}

// NewPolicy constructs a policy from exact exempt paths and prefixes.
// Exempt routes either need no auth (health, metrics) or carry their own
// (device key on /iot/, query token on the stream).
func NewPolicy(exact []string, prefixes []string) Policy {
	policy := Policy{exempt: make(map[string]struct{}, len(exact))}
	for _, path := range exact {
		policy.exempt[path] = struct{}{}
	}
	policy.exemptPrefixes = append(policy.exemptPrefixes, prefixes...)
	return policy
}

// IsExempt reports whether the request bypasses user auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return false
	}
	if _, ok := p.exempt[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.exemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// Middleware validates user bearer tokens and attaches the identity.
type Middleware struct {
	Secret []byte
	Policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// Wrap applies bearer-token auth to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := ParseJWT(ExtractBearer(r), m.Secret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := WithIdentity(r.Context(), Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Name:   claims.Name,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractBearer returns the bearer token from the Authorization header,
// empty when absent or malformed.
func ExtractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
