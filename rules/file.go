package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of a rules file.
//
//	rules:
//	  - pattern: "Donald Trump"
//	    label: "Agent Orange"
//	  - pattern: "tremendous"
//	    label: "adequate"
type fileConfig struct {
	Rules []Spec `yaml:"rules"`
}

// LoadFile reads a YAML rules file and compiles it into a Registry.
// List order in the file is precedence order.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}

	return New(cfg.Rules)
}
