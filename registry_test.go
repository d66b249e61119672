package mediapick

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryYAML = `sources:
  - name: wikipedia
    enabled: true
    priority_rank: 1
    reliability_score: 90
    timeout_ms: 8000
    endpoint: https://images.example.org/wikipedia?q={query}&year={year}
  - name: libraryofcongress
    enabled: true
    priority_rank: 2
    reliability_score: 80
  - name: brokenarchive
    enabled: false
    priority_rank: 3
`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSources(t *testing.T) {
	t.Parallel()

	sources, err := LoadSources(writeRegistry(t, registryYAML))
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, "wikipedia", sources[0].Name)
	assert.True(t, sources[0].Enabled)
	assert.Equal(t, 90, sources[0].ReliabilityScore)
	assert.Equal(t, 8*time.Second, sources[0].Timeout())
	assert.Contains(t, sources[0].Endpoint, "{query}")

	// Unset timeout falls back to the default.
	assert.Equal(t, DefaultSourceTimeout, sources[1].Timeout())
	assert.False(t, sources[2].Enabled)
}

func TestLoadSources_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"empty document", "sources: []"},
		{"not yaml", "{{{{"},
		{"missing name", "sources:\n  - enabled: true\n"},
		{"duplicate name", "sources:\n  - name: a\n    enabled: true\n  - name: a\n    enabled: true\n"},
		{"all disabled", "sources:\n  - name: a\n    enabled: false\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadSources(writeRegistry(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadSources_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnabledSources(t *testing.T) {
	t.Parallel()

	sources := testSources("a", "b", "c")
	sources[1].Enabled = false
	enabled := enabledSources(sources)
	require.Len(t, enabled, 2)
	assert.Equal(t, "a", enabled[0].Name)
	assert.Equal(t, "c", enabled[1].Name)
}
