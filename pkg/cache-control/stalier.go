package cachecontrol

import (
	"fmt"
	"net/http"
	"regexp"
)

// HeaderName is the request header carrying the caching policy.
const HeaderName = "X-Stalier-Cache-Control"

var policyPattern = regexp.MustCompile(`s-maxage=([0-9]+)(\s*,\s*(stale-while-revalidate=([0-9]+)))?`)

// Policy is the caching policy requested by a client, in seconds.
type Policy struct {
	MaxAge               int
	StaleWhileRevalidate int
}

func (p Policy) String() string {
	return fmt.Sprintf("s-maxage=%d, stale-while-revalidate=%d", p.MaxAge, p.StaleWhileRevalidate)
}

// ParsePolicy extracts the policy from a header value.
// The value must contain "s-maxage=N", optionally followed by ", stale-while-revalidate=M".
// Anything around the match is ignored. A missing stale-while-revalidate is zero.
func ParsePolicy(value string) (Policy, bool) {
	matches := policyPattern.FindStringSubmatch(value)
	if matches == nil {
		return Policy{}, false
	}
	policy := Policy{MaxAge: deltaSeconds(matches[1])}
	if matches[4] != "" {
		policy.StaleWhileRevalidate = deltaSeconds(matches[4])
	}
	return policy, true
}

// RequestPolicy returns the policy of the request.
// present tells whether the header was set at all, ok whether it could be parsed.
func RequestPolicy(r *http.Request) (policy Policy, present bool, ok bool) {
	value := r.Header.Get(HeaderName)
	if value == "" {
		return Policy{}, false, false
	}
	policy, ok = ParsePolicy(value)
	return policy, true, ok
}
