// Package codec serializes the discovered inventory.
package codec

import (
	"io"

	"invscout/internal/domain"
)

// Exporter writes a discovered inventory to a sink.
type Exporter interface {
	Export(inv *domain.Inventory, w io.Writer) error
	Format() string
}

// ForFormat selects an exporter by format name. Unknown names fall back to
// the Ansible YAML shape.
func ForFormat(format string) Exporter {
	switch format {
	case "json":
		return NewJSONCodec()
	default:
		return NewAnsibleCodec()
	}
}
