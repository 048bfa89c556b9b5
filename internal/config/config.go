// Package config loads the deployment driver's declarative
// configuration (SPEC_FULL ยง8). The file format is YAML, loaded with
// github.com/goccy/go-yaml.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// EntryMode selects how a Config Entry is applied.
type EntryMode string

const (
	ModeCompile EntryMode = "compile"
	ModeCopy    EntryMode = "copy"
)

// Entry is one source-to-destination mapping.
type Entry struct {
	Src            string    `yaml:"src"`
	Dst            string    `yaml:"dst"`
	Mode           EntryMode `yaml:"mode"`
	DeleteOnIgnore bool      `yaml:"delete_on_ignore"`
}

// Config is the full deployment driver configuration: an
// implementation seed, a cache seed, the no-cache flag, and the entry
// list.
type Config struct {
	Implementations map[string]string `yaml:"implementations"`
	Cached          map[string]string `yaml:"cached"`
	NoCache         bool              `yaml:"no_cache"`
	Entries         []Entry           `yaml:"entries"`
}

// Load reads and parses the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	for i, e := range cfg.Entries {
		if e.Mode == "" {
			cfg.Entries[i].Mode = ModeCompile
		}
	}
	return &cfg, nil
}

// Example returns a sample configuration document, printed by
// "vgd -e/--example".
func Example() string {
	return `implementations:
  site_name: "Example"
cached:
  "/partials/nav.tpl": "{{ site_name }}"
no_cache: false
entries:
  - src: pages/home.tpl
    dst: dist/home.html
    mode: compile
  - src: pages/about.tpl
    dst: dist/about.html
    mode: compile
`
}
