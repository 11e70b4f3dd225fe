// Package requestrules sets the caching policy of requests from configuration,
// for clients that cannot send the policy header themselves.
package requestrules

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	cachecontrol "github.com/always-cache/stalier/pkg/cache-control"
)

type Rules []Rule

type Rule struct {
	Prefix string `yaml:"prefix"`
	Path   string `yaml:"path"`
	// Method to match, GET if empty
	Method string `yaml:"method" validate:"omitempty,oneof=GET POST"`
	// Policy used if the request has none
	Default string `yaml:"default"`
	// Policy used regardless of what the request has
	Override string            `yaml:"override"`
	Query    map[string]string `yaml:"query"`
	Headers  map[string]string `yaml:"headers"`
}

// Apply sets the policy header of the request according to the first matching rule.
func (r Rules) Apply(req *http.Request) {
	if rule := r.find(req); rule != nil {
		applyRuleToRequest(*rule, req)
	}
}

// Handler applies the rules before calling next.
func (r Rules) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Apply(req)
		next.ServeHTTP(w, req)
	})
}

func applyRuleToRequest(rule Rule, req *http.Request) {
	if rule.Override != "" {
		log.Trace().Msg("Overriding cache policy")
		req.Header.Set(cachecontrol.HeaderName, rule.Override)
	} else if rule.Default != "" && req.Header.Get(cachecontrol.HeaderName) == "" {
		log.Trace().Msg("Applying default cache policy")
		req.Header.Set(cachecontrol.HeaderName, rule.Default)
	}
	for name, value := range rule.Headers {
		log.Trace().Msgf("Setting header %s", name)
		req.Header.Set(name, value)
	}
}

func (r Rules) find(req *http.Request) *Rule {
	log.Trace().Msgf("Finding rule for request %s:%s", req.Method, req.URL.Path)
rulesLoop:
	for _, rule := range r {
		if rule.Method == "" && req.Method != http.MethodGet {
			continue
		}
		if rule.Method != "" && rule.Method != req.Method {
			continue
		}
		if rule.Path != "" && rule.Path != req.URL.Path {
			continue
		}
		if rule.Prefix != "" && !strings.HasPrefix(req.URL.Path, rule.Prefix) {
			continue
		}
		if len(rule.Query) > 0 {
			qry := req.URL.Query()
			for name, value := range rule.Query {
				if value == "" && !qry.Has(name) {
					continue rulesLoop
				} else if value != "" && qry.Get(name) != value {
					continue rulesLoop
				}
			}
		}
		return &rule
	}
	return nil
}
