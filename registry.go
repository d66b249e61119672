package mediapick

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source describes one external image provider in the registry. Declaration
// order doubles as the priority order used to break ranking ties.
type Source struct {
	Name             string `yaml:"name"`
	Enabled          bool   `yaml:"enabled"`
	PriorityRank     int    `yaml:"priority_rank"`
	ReliabilityScore int    `yaml:"reliability_score"` // 0-100
	TimeoutMs        int    `yaml:"timeout_ms"`

	// Endpoint is the fetch URL template for the default HTTPFetcher,
	// with {query} and {year} placeholders. Custom Fetcher implementations
	// may ignore it.
	Endpoint string `yaml:"endpoint"`
}

// Timeout returns the per-fetch deadline for this source.
func (s Source) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return DefaultSourceTimeout
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// registryFile is the YAML document shape for LoadSources.
type registryFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads a source registry from a YAML file. Unlike runtime
// failures, a broken registry is a configuration error and is returned to
// the caller to fail startup.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse source registry: %w", err)
	}
	if err := validateSources(f.Sources); err != nil {
		return nil, err
	}
	return f.Sources, nil
}

// validateSources rejects registries the engine cannot operate on.
func validateSources(sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("source registry is empty")
	}
	seen := make(map[string]bool, len(sources))
	enabled := 0
	for _, s := range sources {
		if s.Name == "" {
			return fmt.Errorf("source registry: source with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("source registry: duplicate source %q", s.Name)
		}
		seen[s.Name] = true
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("source registry: no enabled sources")
	}
	return nil
}

// enabledSources filters the registry to enabled entries, preserving order.
func enabledSources(sources []Source) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// priorityIndex maps source name to declaration index for tie-breaking.
func priorityIndex(sources []Source) map[string]int {
	idx := make(map[string]int, len(sources))
	for i, s := range sources {
		idx[s.Name] = i
	}
	return idx
}

// sourceByName finds a registry entry; ok is false for unknown names.
func sourceByName(sources []Source, name string) (Source, bool) {
	for _, s := range sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
