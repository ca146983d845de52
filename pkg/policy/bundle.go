package policy

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// bundleSpec is the YAML form of a set of default overrides that the engine
// merges with every task's own overrides (spec §4.3.1).
// Grounded on the teacher's pkg/policy/yaml.go + loader.go hot-reload
// design, trimmed to the override fields decide() actually consumes.
type bundleSpec struct {
	AllowTools       []string `yaml:"allow_tools,omitempty"`
	DenyTools        []string `yaml:"deny_tools,omitempty"`
	AllowPermissions []string `yaml:"allow_permissions,omitempty"`
	DenyPermissions  []string `yaml:"deny_permissions,omitempty"`
}

// BundleLoader holds the Overrides loaded from a YAML file on disk. It does
// not watch the file: NewBundleLoader reads it once, and Reload re-reads it
// only when called.
type BundleLoader struct {
	path string

	mu      sync.RWMutex
	current atomic.Value // Overrides
}

// NewBundleLoader loads path once at construction. An empty path yields an
// empty, always-zero Overrides (no file to load).
func NewBundleLoader(path string) (*BundleLoader, error) {
	l := &BundleLoader{path: path}
	l.current.Store(Overrides{})
	if path == "" {
		return l, nil
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the bundle file from disk and atomically swaps the
// current overrides.
func (l *BundleLoader) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("policy: read bundle %s: %w", l.path, err)
	}

	var spec bundleSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("policy: parse bundle %s: %w", l.path, err)
	}

	overrides := Overrides{
		AllowTools: spec.AllowTools,
		DenyTools:  spec.DenyTools,
	}
	for _, p := range spec.AllowPermissions {
		overrides.AllowPermissions = append(overrides.AllowPermissions, ToolPermission(p))
	}
	for _, p := range spec.DenyPermissions {
		overrides.DenyPermissions = append(overrides.DenyPermissions, ToolPermission(p))
	}

	l.current.Store(overrides)
	return nil
}

// Overrides returns the most recently loaded override set.
func (l *BundleLoader) Overrides() Overrides {
	return l.current.Load().(Overrides)
}
