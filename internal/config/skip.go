package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// skipFile is the on-disk shape of a per-service skip list.
type skipFile struct {
	SkipProperties []string `yaml:"skip_properties"`
}

// LoadSkipList reads the skip list of one service from <dir>/<service>.yml.
// A missing file means nothing is skipped; that is the normal case for most
// services.
func LoadSkipList(dir, service string) (map[string]bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, service+".yml"))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("read skip list for %s: %w", service, err)
	}

	var f skipFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse skip list for %s: %w", service, err)
	}

	skip := make(map[string]bool, len(f.SkipProperties))
	for _, key := range f.SkipProperties {
		skip[key] = true
	}
	return skip, nil
}
