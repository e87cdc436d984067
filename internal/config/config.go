package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from codescope.yml.
type ProjectConfig struct {
	Include           []string `yaml:"include,omitempty"`
	Exclude           []string `yaml:"exclude,omitempty"`
	Languages         []string `yaml:"languages,omitempty"`
	Workers           int      `yaml:"workers,omitempty"`
	IncludeExternal   bool     `yaml:"includeExternal,omitempty"`
	CouplingThreshold int      `yaml:"couplingThreshold,omitempty"`
	MaxCallerDepth    int      `yaml:"maxCallerDepth,omitempty"`
	Verbose           bool     `yaml:"verbose,omitempty"`
}

// DefaultExcludes are directories skipped during a scan unless the config
// overrides them.
var DefaultExcludes = []string{
	"node_modules", ".git", "dist", "build", "vendor", "target",
	"__pycache__", ".venv",
}

// Load attempts to read codescope.yml or codescope.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"codescope.yml", "codescope.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// Excludes returns the configured excludes, falling back to the defaults.
func (c *ProjectConfig) Excludes() []string {
	if len(c.Exclude) > 0 {
		return c.Exclude
	}
	return DefaultExcludes
}
