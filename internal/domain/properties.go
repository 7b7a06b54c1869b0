package domain

import "strings"

// DefaultVariant names the canonical configuration surface of a service
// instance. Services started with flag-addressed config files (for example
// --consumer.config) expose additional named variants next to it.
const DefaultVariant = "default"

// Properties is one raw configuration surface: key to string value, exactly
// as found in the service's own properties file.
type Properties map[string]string

// VariantSet holds every configuration variant one host exposes for a
// service, keyed by variant name.
type VariantSet map[string]Properties

// HostProperties maps host to its variants for one service. It is built once
// per discovery run and read-only afterwards.
type HostProperties map[string]VariantSet

// Default returns the canonical variant for a host, nil when absent.
func (hp HostProperties) Default(host string) Properties {
	return hp.Variant(host, DefaultVariant)
}

// Variant returns a named variant for a host, nil when absent.
func (hp HostProperties) Variant(host, name string) Properties {
	variants, ok := hp[host]
	if !ok {
		return nil
	}
	return variants[name]
}

// ParseProperties parses java-properties text into a Properties map.
// Comment lines start with '#', values split on the first '=' and
// surrounding double quotes are stripped.
func ParseProperties(content string) Properties {
	props := make(Properties)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		props[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), "\"")
	}
	return props
}
