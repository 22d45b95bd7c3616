package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deploylint/deploylint/internal/types"
)

// Registry holds rules in registration order, which is also the order of
// every Rule Set drawn from it.
type Registry struct {
	rules []Rule
	index map[string]int // lower(ID) -> position
}

func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry holding the built-in rules.
func Default() *Registry { return defaultRegistry }

func init() {
	for _, r := range []Rule{
		configurationFound,
		debugDisabled,
		allowedHostsNonEmpty,
		databaseHostNotLocal,
		staticRootDefined,
		csrfTrustedOrigins,
		staticFileMiddleware,
		productionServer,
		secretKeyNotHardcoded,
	} {
		if err := defaultRegistry.Register(r); err != nil {
			panic(err)
		}
	}
}

// Register appends r. IDs are unique case-insensitively.
func (g *Registry) Register(r Rule) error {
	id := normID(r.ID)
	if id == "" {
		return fmt.Errorf("rule has no ID")
	}
	if r.Check == nil {
		return fmt.Errorf("rule %s has no check", r.ID)
	}
	if _, dup := g.index[id]; dup {
		return fmt.Errorf("rule %s already registered", r.ID)
	}
	g.rules = append(g.rules, r)
	g.index[id] = len(g.rules) - 1
	return nil
}

// All returns every registered rule in registration order.
func (g *Registry) All() []Rule {
	return append([]Rule(nil), g.rules...)
}

// Get returns a rule by ID.
func (g *Registry) Get(id string) (Rule, bool) {
	i, ok := g.index[normID(id)]
	if !ok {
		return Rule{}, false
	}
	return g.rules[i], true
}

// IDs returns the registered rule IDs, sorted.
func (g *Registry) IDs() []string {
	out := make([]string, 0, len(g.rules))
	for _, r := range g.rules {
		out = append(out, r.ID)
	}
	sort.Strings(out)
	return out
}

// Filter narrows a Rule Set. When Enable is non-empty only those rules run;
// Disable always removes.
type Filter struct {
	Enable  []string
	Disable []string
}

// Validate reports IDs in the filter that name no registered rule.
func (g *Registry) Validate(f Filter) error {
	var unknown []string
	for _, id := range append(append([]string{}, f.Enable...), f.Disable...) {
		if _, ok := g.Get(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown rule(s): %s (see `deploylint rules`)", strings.Join(unknown, ", "))
	}
	return nil
}

// Set returns the ordered Rule Set for fw after applying f.
func (g *Registry) Set(fw types.Framework, f Filter) []Rule {
	enable := idSet(f.Enable)
	disable := idSet(f.Disable)
	var out []Rule
	for _, r := range g.rules {
		id := normID(r.ID)
		if !r.AppliesTo(fw) || disable[id] {
			continue
		}
		if len(enable) > 0 && !enable[id] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func idSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		if n := normID(id); n != "" {
			m[n] = true
		}
	}
	return m
}

func normID(id string) string { return strings.ToLower(strings.TrimSpace(id)) }
