package builder

import "invscout/internal/domain"

// PropertyView wraps one raw configuration variant and records every key a
// rule touches. The mapped set feeds the custom-property diff, so a rule
// that inspects a key and emits nothing still keeps that key out of the
// custom overrides.
type PropertyView struct {
	props  domain.Properties
	mapped map[string]bool
}

// NewPropertyView builds a view with a fresh mapped set. Used directly only
// in tests; the engine wires views that share one set per builder run.
func NewPropertyView(props domain.Properties) *PropertyView {
	return &PropertyView{props: props, mapped: make(map[string]bool)}
}

// Get reads a raw value and marks its key as mapped whether or not the key
// exists.
func (v *PropertyView) Get(key string) (string, bool) {
	v.mapped[key] = true
	value, ok := v.props[key]
	return value, ok
}

// Has reports and marks a key without reading it.
func (v *PropertyView) Has(key string) bool {
	v.mapped[key] = true
	_, ok := v.props[key]
	return ok
}

// Mark records keys a rule accounts for without reading, for example sibling
// spellings of a value the rule consumed under another name.
func (v *PropertyView) Mark(keys ...string) {
	for _, key := range keys {
		v.mapped[key] = true
	}
}

// Mapped exposes the accumulated mapped set.
func (v *PropertyView) Mapped() map[string]bool {
	return v.mapped
}
