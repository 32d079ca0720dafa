package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ApplyFile overlays YAML settings from path onto cfg. Fields absent from
// the file keep their current (env or default) values. cfg must be a
// pointer to Server or Edge.
func ApplyFile(path string, cfg any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
