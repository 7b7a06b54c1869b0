package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"invscout/internal/domain"
)

// JSONCodec renders the inventory as a flat group map, for consumers that
// do not speak the Ansible shape.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier.
func (c *JSONCodec) Format() string {
	return "json"
}

// Export writes the inventory as indented JSON.
func (c *JSONCodec) Export(inv *domain.Inventory, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(inv.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode JSON inventory: %w", err)
	}
	return nil
}
