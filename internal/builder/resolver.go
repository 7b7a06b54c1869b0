package builder

import (
	"log"
	"regexp"
	"sort"
	"strings"

	"invscout/internal/domain"
)

// Overrides adjusts the base rule set of a service for one source version.
// Most releases override nothing and inherit the base behavior; absence of
// a registered entry means pure inheritance.
type Overrides struct {
	// Replace swaps the implementation of a base rule by name. Order and
	// name are preserved.
	Replace map[string]RuleFunc
	// Append adds rules after the base set.
	Append []Rule
}

// Registry resolves a service and requested source version to a builder.
type Registry struct {
	bases    map[string]func() *ServiceBuilder
	variants map[string]map[string]Overrides
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bases:    make(map[string]func() *ServiceBuilder),
		variants: make(map[string]map[string]Overrides),
	}
}

// Register installs the version-agnostic base builder of a service.
func (r *Registry) Register(key string, base func() *ServiceBuilder) {
	r.bases[key] = base
}

// RegisterVersion installs rule overrides for one major.minor version.
func (r *Registry) RegisterVersion(key, version string, o Overrides) {
	if r.variants[key] == nil {
		r.variants[key] = make(map[string]Overrides)
	}
	r.variants[key][normalizeVersion(version)] = o
}

// Resolve returns the builder for a service and requested source version.
// Version matching is on major.minor; the patch component is ignored. An
// unknown or absent version falls back to the base builder. An unknown
// service is an error.
func (r *Registry) Resolve(key, fromVersion string) (*ServiceBuilder, error) {
	base, ok := r.bases[key]
	if !ok {
		return nil, &domain.UnknownServiceError{Service: key}
	}
	b := base()

	if fromVersion == "" {
		return b, nil
	}
	version := normalizeVersion(fromVersion)
	o, ok := r.variants[key][version]
	if !ok {
		log.Printf("Resolver: no %s builder variant for version %s, using base", key, version)
		return b, nil
	}

	for i, rule := range b.Rules {
		if apply, ok := o.Replace[rule.Name]; ok {
			b.Rules[i] = Rule{Name: rule.Name, Apply: apply}
		}
	}
	b.Rules = append(b.Rules, o.Append...)
	return b, nil
}

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)(\.\d+)?$`)

// NormalizeVersion validates a major.minor[.patch] version string and
// reduces it to major.minor. Invalid input yields the empty string, which
// callers treat as "no version requested".
func NormalizeVersion(v string) string {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return ""
	}
	return m[1] + "." + m[2]
}

func normalizeVersion(v string) string {
	if n := NormalizeVersion(v); n != "" {
		return n
	}
	return v
}

// DefaultRegistry wires every known service with its base rule set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.ZooKeeper.Key, NewZookeeperBuilder)
	r.Register(domain.KafkaBroker.Key, NewKafkaBrokerBuilder)
	r.Register(domain.SchemaRegistry.Key, NewSchemaRegistryBuilder)
	r.Register(domain.KafkaRest.Key, NewKafkaRestBuilder)
	r.Register(domain.Ksql.Key, NewKsqlBuilder)
	r.Register(domain.KafkaConnect.Key, NewKafkaConnectBuilder)
	r.Register(domain.KafkaReplicator.Key, NewReplicatorBuilder)
	r.Register(domain.ControlCenter.Key, NewControlCenterBuilder)
	return r
}

// Order sorts builders so every builder runs after the builders owning the
// groups it declares in Requires. Ties keep the given order.
func Order(builders []*ServiceBuilder) []*ServiceBuilder {
	byGroup := make(map[string]int, len(builders))
	for i, b := range builders {
		byGroup[b.Service.Group] = i
	}

	depth := make([]int, len(builders))
	var walk func(i int, seen map[int]bool) int
	walk = func(i int, seen map[int]bool) int {
		if depth[i] != 0 {
			return depth[i]
		}
		if seen[i] {
			// Dependency cycle; keep declaration order rather than loop.
			return 1
		}
		seen[i] = true
		d := 1
		for _, group := range builders[i].Requires {
			if j, ok := byGroup[group]; ok {
				if dj := walk(j, seen) + 1; dj > d {
					d = dj
				}
			}
		}
		depth[i] = d
		return d
	}
	for i := range builders {
		walk(i, make(map[int]bool))
	}

	ordered := make([]*ServiceBuilder, len(builders))
	copy(ordered, builders)
	sort.SliceStable(ordered, func(a, b int) bool {
		return depth[byGroup[ordered[a].Service.Group]] < depth[byGroup[ordered[b].Service.Group]]
	})
	return ordered
}
