// Package builder implements the property discovery and mapping engine:
// per-service rule sets that translate raw on-host configuration into
// normalized inventory properties, with mapped-key bookkeeping and a
// custom-property diff for everything the rules did not consume.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"invscout/internal/domain"
)

// Collector fetches raw facts from the fleet. Remote execution details live
// behind this interface; failures on individual hosts must not poison the
// whole result.
type Collector interface {
	// ServiceHosts maps service key to the hosts running that service.
	ServiceHosts(ctx context.Context) (map[string][]string, error)
	// Collect fetches every configuration variant of a service from each
	// host. Hosts that fail are omitted from the table.
	Collect(ctx context.Context, svc domain.Service, hosts []string) (domain.HostProperties, error)
	// UserGroup fetches the daemon account facts of a service unit.
	UserGroup(ctx context.Context, svc domain.Service, host string) (domain.DaemonFacts, error)
	// RuntimeArgs fetches the derived JVM runtime argument string.
	RuntimeArgs(ctx context.Context, svc domain.Service, host string) (string, error)
}

// AliasResolver lists certificate aliases inside a keystore or truststore.
// A missing or unreadable store yields an empty list, never an error the
// caller must abort on.
type AliasResolver interface {
	ListAliases(ctx context.Context, hosts []string, storePath, storePass string) ([]string, error)
}

// InventoryReader is the read view rules use to derive properties from
// sections already written by other services' builders.
type InventoryReader interface {
	GroupVar(group, key string) (any, bool)
}

// Deps bundles the collaborators a builder needs for one run.
type Deps struct {
	Collector Collector
	Aliases   AliasResolver
	Inventory *domain.Inventory
}

// RuleFunc maps one raw configuration variant to a scoped set of normalized
// properties. A rule missing its optional key returns a broadcast update
// with no vars; it fails only on malformed mandatory data.
type RuleFunc func(rc *RuleContext, view *PropertyView) (domain.Update, error)

// Rule is a named extraction step. Declaration order within a builder is
// execution order.
type Rule struct {
	Name  string
	Apply RuleFunc
}

// RuleContext carries per-run state into rules.
type RuleContext struct {
	Ctx       context.Context
	Service   domain.Service
	Hosts     []string
	Aliases   AliasResolver
	Inventory InventoryReader

	views  map[string]*PropertyView
	mapped map[string]bool
}

// Variant returns a mapped-key-tracking view over a named configuration
// variant of the canonical host. All views share one mapped set.
func (rc *RuleContext) Variant(name string) *PropertyView {
	if view, ok := rc.views[name]; ok {
		return view
	}
	// Unknown variant: empty view so rules can probe without nil checks.
	view := &PropertyView{props: domain.Properties{}, mapped: rc.mapped}
	rc.views[name] = view
	return view
}

// Result is a builder's proposed contribution, applied to the inventory by
// the run's single merge stage.
type Result struct {
	Updates     []domain.Update
	HostUpdates []domain.HostUpdate
}

func (r *Result) add(u domain.Update) {
	if len(u.Vars) > 0 {
		r.Updates = append(r.Updates, u)
	}
}

// ServiceBuilder holds the ordered rule set of one service type.
type ServiceBuilder struct {
	Service domain.Service
	Rules   []Rule
	// Requires names inventory groups this builder reads; the run driver
	// orders builders so those groups are populated first.
	Requires []string
	// PerHost runs once against the full host table, after the rules, and
	// emits overrides for values that legitimately differ across hosts.
	// Keys it reads must be marked through the rule context so they stay
	// out of the custom-property diff.
	PerHost func(rc *RuleContext, table domain.HostProperties) []domain.HostUpdate
	// Skip lists raw keys that must never surface as custom properties.
	Skip map[string]bool
	// CanonicalVariant drives rule evaluation; DefaultVariant when empty.
	CanonicalVariant string
	// CustomGroupKey maps a variant name to the inventory key its custom
	// properties are published under. nil selects the default naming.
	CustomGroupKey func(variant string) string
}

func (b *ServiceBuilder) canonicalVariant() string {
	if b.CanonicalVariant == "" {
		return domain.DefaultVariant
	}
	return b.CanonicalVariant
}

func (b *ServiceBuilder) customKey(variant string) string {
	if b.CustomGroupKey != nil {
		return b.CustomGroupKey(variant)
	}
	if variant == domain.DefaultVariant {
		return b.Service.Group + "_custom_properties"
	}
	base := strings.ReplaceAll(strings.TrimSuffix(variant, ".config"), ".", "_")
	return fmt.Sprintf("%s_%s_custom_properties", b.Service.Group, base)
}

// Build discovers and normalizes one service's configuration. The returned
// result is data only; nothing is written to the shared inventory here.
func (b *ServiceBuilder) Build(ctx context.Context, deps Deps) (*Result, error) {
	hosts := deps.Inventory.Hosts(b.Service.Group)
	if len(hosts) == 0 {
		return nil, &domain.NoHostsFoundError{Service: b.Service.Key}
	}

	table, err := deps.Collector.Collect(ctx, b.Service, hosts)
	if err != nil {
		return nil, fmt.Errorf("collect %s properties: %w", b.Service.Key, err)
	}

	// The canonical host is the first host the collector actually reached;
	// rules run once against its properties, assuming configuration
	// homogeneity. Per-host deviations surface later as custom overrides.
	canonical := ""
	for _, host := range hosts {
		if _, ok := table[host]; ok {
			canonical = host
			break
		}
	}
	if canonical == "" {
		return nil, &domain.NoHostsFoundError{Service: b.Service.Key}
	}

	result := &Result{}
	b.buildDaemonProperties(ctx, deps, canonical, result)

	rc := &RuleContext{
		Ctx:       ctx,
		Service:   b.Service,
		Hosts:     hosts,
		Aliases:   deps.Aliases,
		Inventory: deps.Inventory,
		views:     make(map[string]*PropertyView),
		mapped:    make(map[string]bool),
	}
	for name, props := range table[canonical] {
		rc.views[name] = &PropertyView{props: props, mapped: rc.mapped}
	}

	view := rc.Variant(b.canonicalVariant())
	for _, rule := range b.Rules {
		update, err := rule.Apply(rc, view)
		if err != nil {
			var malformed *domain.MalformedPropertyError
			if errors.As(err, &malformed) {
				log.Printf("Builder %s: rule %s skipped: %v", b.Service.Key, rule.Name, malformed)
				continue
			}
			log.Printf("Builder %s: rule %s failed: %v", b.Service.Key, rule.Name, err)
			continue
		}
		result.add(update)
	}

	if b.PerHost != nil {
		result.HostUpdates = append(result.HostUpdates, b.PerHost(rc, table)...)
	}
	b.buildCustomProperties(table, rc.mapped, result)
	b.buildRuntimeProperties(ctx, deps, canonical, result)

	return result, nil
}

// buildDaemonProperties emits the service account properties. This path
// always runs, independent of the rule set.
func (b *ServiceBuilder) buildDaemonProperties(ctx context.Context, deps Deps, host string, result *Result) {
	facts, err := deps.Collector.UserGroup(ctx, b.Service, host)
	if err != nil {
		log.Printf("Builder %s: could not get daemon facts: %v", b.Service.Key, err)
		return
	}
	result.add(domain.Update{Scope: domain.ScopeAll, Vars: map[string]any{
		b.Service.Group + "_user":    facts.User,
		b.Service.Group + "_group":   facts.Group,
		b.Service.Group + "_log_dir": facts.LogDir,
	}})
}

// buildCustomProperties diffs every host's variants against the mapped and
// skip sets. Survivors pass through verbatim as per-host overrides, which
// both preserves unmodeled keys and makes host-level drift visible without
// corrupting the group-wide values.
func (b *ServiceBuilder) buildCustomProperties(table domain.HostProperties, mapped map[string]bool, result *Result) {
	for host, variants := range table {
		overrides := make(map[string]map[string]string)
		for variant, props := range variants {
			key := b.customKey(variant)
			custom := overrides[key]
			for raw, value := range props {
				if mapped[raw] || b.Skip[raw] {
					continue
				}
				if custom == nil {
					custom = make(map[string]string)
					overrides[key] = custom
				}
				custom[raw] = value
			}
		}
		for key, custom := range overrides {
			result.HostUpdates = append(result.HostUpdates, domain.HostUpdate{
				Group: b.Service.Group,
				Host:  host,
				Vars:  map[string]any{key: custom},
			})
		}
	}
}

// buildRuntimeProperties emits process-argument derived properties. Runs
// after all rules.
func (b *ServiceBuilder) buildRuntimeProperties(ctx context.Context, deps Deps, host string, result *Result) {
	args, err := deps.Collector.RuntimeArgs(ctx, b.Service, host)
	if err != nil {
		log.Printf("Builder %s: could not get runtime args: %v", b.Service.Key, err)
		return
	}
	if args == "" {
		return
	}
	result.add(domain.Update{
		Scope: b.Service.Group,
		Vars:  map[string]any{b.Service.Group + "_custom_java_args": args},
	})
}

// emptyUpdate is what a rule returns when its governing key is absent and
// it has nothing to say.
func emptyUpdate() domain.Update {
	return domain.Update{Scope: domain.ScopeAll}
}
