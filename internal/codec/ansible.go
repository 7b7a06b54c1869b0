package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"invscout/internal/domain"
)

// AnsibleCodec renders the inventory in the Ansible YAML shape:
// all.children.<group>.{hosts,vars}, with per-host vars carrying custom
// properties and host-level drift.
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec.
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier.
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

type ansibleInventory struct {
	All ansibleAll `yaml:"all"`
}

type ansibleAll struct {
	Children map[string]domain.GroupData `yaml:"children,omitempty"`
}

// Export writes the inventory as Ansible YAML.
func (c *AnsibleCodec) Export(inv *domain.Inventory, w io.Writer) error {
	doc := ansibleInventory{All: ansibleAll{Children: inv.Snapshot()}}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}
	return nil
}
