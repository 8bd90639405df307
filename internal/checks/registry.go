package checks

import (
	"fmt"
	"sort"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// Predicate evaluates one resource fact and returns zero or more findings.
// Predicates must be pure: no I/O and no mutation of the fact.
type Predicate func(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error)

// Check is a registered rule.
type Check struct {
	Service finding.Service
	Name    string
	// ResourceType narrows the check to facts of one type within the service. Empty matches all.
	ResourceType string
	Pillar       finding.Pillar
	// Severity is the default severity. Predicates may raise a different one per finding.
	Severity  finding.Severity
	Title     string
	Predicate Predicate
}

// Applies reports whether the check evaluates fact.
func (c Check) Applies(fact finding.ResourceFact) bool {
	if c.Service != fact.Service {
		return false
	}
	return c.ResourceType == "" || c.ResourceType == fact.Type
}

// Filter narrows the checks returned by Registry.All. Empty sets match everything.
type Filter struct {
	Services map[finding.Service]bool
	Pillars  map[finding.Pillar]bool
}

// Match reports whether c is within the filter.
func (f Filter) Match(c Check) bool {
	if len(f.Services) > 0 && !f.Services[c.Service] {
		return false
	}
	if len(f.Pillars) > 0 && !f.Pillars[c.Pillar] {
		return false
	}
	return true
}

type checkKey struct {
	service finding.Service
	name    string
}

// Registry maps (service, check name) to a check. It is populated once at start-up
// and only read afterwards, so one registry may be shared by concurrent scans.
type Registry struct {
	checks []Check
	index  map[checkKey]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[checkKey]int)}
}

// Register adds a check. Duplicate (service, name) pairs and incomplete checks
// are configuration errors.
func (r *Registry) Register(c Check) error {
	switch {
	case c.Service == "":
		return &finding.ConfigError{Field: "check " + c.Name, Reason: "service is required"}
	case c.Name == "":
		return &finding.ConfigError{Field: fmt.Sprintf("check in %s", c.Service), Reason: "name is required"}
	case !c.Pillar.Valid():
		return &finding.ConfigError{Field: "check " + c.Name, Reason: fmt.Sprintf("unknown pillar %q", c.Pillar)}
	case !c.Severity.Valid():
		return &finding.ConfigError{Field: "check " + c.Name, Reason: fmt.Sprintf("unknown severity %q", c.Severity)}
	case c.Predicate == nil:
		return &finding.ConfigError{Field: "check " + c.Name, Reason: "predicate is required"}
	}

	key := checkKey{service: c.Service, name: c.Name}
	if _, dup := r.index[key]; dup {
		return &finding.ConfigError{
			Field:  fmt.Sprintf("check %s/%s", c.Service, c.Name),
			Reason: "registered more than once",
		}
	}
	r.index[key] = len(r.checks)
	r.checks = append(r.checks, c)
	return nil
}

// MustRegister registers every check and panics on the first error.
// Intended for the builtin pack, whose contents are fixed at compile time.
func (r *Registry) MustRegister(checks ...Check) {
	for _, c := range checks {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the check registered under (service, name).
func (r *Registry) Lookup(service finding.Service, name string) (Check, bool) {
	i, ok := r.index[checkKey{service: service, name: name}]
	if !ok {
		return Check{}, false
	}
	return r.checks[i], true
}

// All returns the checks matching f, sorted by service then name.
func (r *Registry) All(f Filter) []Check {
	out := make([]Check, 0, len(r.checks))
	for _, c := range r.checks {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Service != out[j].Service {
			return out[i].Service < out[j].Service
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	return len(r.checks)
}
