package domain

import "sync"

// ScopeAll is the broadcast target scope: an update aimed at every group
// that exists in the inventory at merge time.
const ScopeAll = "all"

// Update is a group-scoped set of normalized properties proposed by a
// builder. Builders return updates as data; the inventory applies them
// under a single lock.
type Update struct {
	Scope string
	Vars  map[string]any
}

// HostUpdate is a per-host override inside a group, used for custom
// properties and host-level drift.
type HostUpdate struct {
	Group string
	Host  string
	Vars  map[string]any
}

// GroupData is the exported shape of one inventory group.
type GroupData struct {
	Hosts map[string]map[string]any `yaml:"hosts,omitempty" json:"hosts,omitempty"`
	Vars  map[string]any            `yaml:"vars,omitempty" json:"vars,omitempty"`
}

// Inventory is the normalized discovery target: group vars plus a per-host
// override layer. All mutation happens under one mutex; merges are shallow
// unions with last-write-wins per key, so applying the same update twice is
// idempotent.
type Inventory struct {
	mu       sync.Mutex
	order    []string
	vars     map[string]map[string]any
	members  map[string][]string
	hostVars map[string]map[string]map[string]any
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		vars:     make(map[string]map[string]any),
		members:  make(map[string][]string),
		hostVars: make(map[string]map[string]map[string]any),
	}
}

// AddGroup creates a group if it does not exist yet.
func (inv *Inventory) AddGroup(name string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.addGroupLocked(name)
}

func (inv *Inventory) addGroupLocked(name string) {
	if _, ok := inv.vars[name]; ok {
		return
	}
	inv.order = append(inv.order, name)
	inv.vars[name] = make(map[string]any)
	inv.hostVars[name] = make(map[string]map[string]any)
}

// AddHost registers a host in a group, creating the group when needed.
// Repeated additions are ignored.
func (inv *Inventory) AddHost(group, host string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.addGroupLocked(group)
	for _, h := range inv.members[group] {
		if h == host {
			return
		}
	}
	inv.members[group] = append(inv.members[group], host)
}

// Hosts returns the hosts of a group in registration order.
func (inv *Inventory) Hosts(group string) []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	hosts := make([]string, len(inv.members[group]))
	copy(hosts, inv.members[group])
	return hosts
}

// Groups returns all group names in creation order.
func (inv *Inventory) Groups() []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	groups := make([]string, len(inv.order))
	copy(groups, inv.order)
	return groups
}

// Apply merges a group update. A broadcast update is expanded into every
// group existing at merge time; groups created later do not receive it.
// Updates aimed at unknown specific groups create the group.
func (inv *Inventory) Apply(u Update) {
	if len(u.Vars) == 0 {
		return
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if u.Scope == ScopeAll {
		for _, group := range inv.order {
			merge(inv.vars[group], u.Vars)
		}
		return
	}
	inv.addGroupLocked(u.Scope)
	merge(inv.vars[u.Scope], u.Vars)
}

// ApplyHost merges per-host overrides into a group.
func (inv *Inventory) ApplyHost(u HostUpdate) {
	if len(u.Vars) == 0 {
		return
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.addGroupLocked(u.Group)
	hosts := inv.hostVars[u.Group]
	if hosts[u.Host] == nil {
		hosts[u.Host] = make(map[string]any)
	}
	merge(hosts[u.Host], u.Vars)
}

// GroupVar reads one normalized property of a group. Used by rules that
// derive state from sections written by other services' builders.
func (inv *Inventory) GroupVar(group, key string) (any, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	vars, ok := inv.vars[group]
	if !ok {
		return nil, false
	}
	v, ok := vars[key]
	return v, ok
}

// Snapshot renders a deep copy of the inventory for serialization.
func (inv *Inventory) Snapshot() map[string]GroupData {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make(map[string]GroupData, len(inv.order))
	for _, group := range inv.order {
		data := GroupData{Vars: copyVars(inv.vars[group])}
		if len(inv.members[group]) > 0 {
			data.Hosts = make(map[string]map[string]any, len(inv.members[group]))
			for _, host := range inv.members[group] {
				data.Hosts[host] = copyVars(inv.hostVars[group][host])
			}
		}
		out[group] = data
	}
	return out
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

func copyVars(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
