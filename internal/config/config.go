// internal/config/config.go
//
// This package handles queue definition files and the .weft directory
// structure. Every project that runs weft gets a .weft/ folder created in
// its root for logs, state, and reports.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/internal/item"
	"github.com/weftlabs/weft/internal/resolver"
)

const (
	// WeftDir is the name of the directory we create in each project.
	WeftDir = ".weft"

	defaultStrategy = resolver.StrategyFailOnCycle
)

// BudgetSpec mirrors item.Budget in the YAML schema with friendlier field
// types. WallClock accepts Go duration syntax ("30m", "2h").
type BudgetSpec struct {
	TotalUnits           float64 `yaml:"total_units"`
	WallClock            string  `yaml:"wall_clock,omitempty"`
	MaxIterationsPerItem int     `yaml:"max_iterations_per_item,omitempty"`
}

// ResolutionSpec selects the cycle strategy and which edge derivations run.
type ResolutionSpec struct {
	Strategy  string   `yaml:"strategy,omitempty"`
	EdgeKinds []string `yaml:"edge_kinds,omitempty"`
}

// QueueDefinition models one queue YAML file: the items to run, the budget
// that bounds them, and how cycles are handled.
type QueueDefinition struct {
	Version     int              `yaml:"version"`
	Name        string           `yaml:"name,omitempty"`
	Items       []*item.WorkItem `yaml:"items"`
	Budget      BudgetSpec       `yaml:"budget"`
	Resolution  ResolutionSpec   `yaml:"resolution,omitempty"`
	MaxParallel int              `yaml:"max_parallel,omitempty"`
}

// LoadQueue reads and validates a queue definition file.
func LoadQueue(path string) (*QueueDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var def QueueDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *QueueDefinition) validate() error {
	if len(d.Items) == 0 {
		return fmt.Errorf("config: queue has no items")
	}
	seen := make(map[string]bool, len(d.Items))
	for _, it := range d.Items {
		if it == nil {
			return fmt.Errorf("config: queue contains an empty item entry")
		}
		if err := it.Validate(); err != nil {
			return err
		}
		if seen[it.ID] {
			return fmt.Errorf("config: duplicate item id %q", it.ID)
		}
		seen[it.ID] = true
	}
	if d.Resolution.Strategy != "" && !resolver.Strategy(d.Resolution.Strategy).IsValid() {
		return fmt.Errorf("config: unknown resolution strategy %q", d.Resolution.Strategy)
	}
	for _, kind := range d.Resolution.EdgeKinds {
		if !graph.EdgeKind(kind).IsValid() {
			return fmt.Errorf("config: unknown edge kind %q", kind)
		}
	}
	if d.Budget.WallClock != "" {
		if _, err := time.ParseDuration(d.Budget.WallClock); err != nil {
			return fmt.Errorf("config: wall_clock: %w", err)
		}
	}
	if d.MaxParallel < 0 {
		return fmt.Errorf("config: max_parallel must not be negative")
	}
	return nil
}

// Strategy returns the configured cycle strategy, defaulting to fail on
// cycle so misconfigured queues surface loudly.
func (d *QueueDefinition) Strategy() resolver.Strategy {
	if d.Resolution.Strategy == "" {
		return defaultStrategy
	}
	return resolver.Strategy(d.Resolution.Strategy)
}

// EdgeKinds returns the configured edge derivations; empty means all.
func (d *QueueDefinition) EdgeKinds() []graph.EdgeKind {
	kinds := make([]graph.EdgeKind, 0, len(d.Resolution.EdgeKinds))
	for _, kind := range d.Resolution.EdgeKinds {
		kinds = append(kinds, graph.EdgeKind(kind))
	}
	return kinds
}

// RunBudget converts the YAML budget into the engine form. When total_units
// is omitted the sum of the item allocations is used, so small queues work
// without budget arithmetic up front.
func (d *QueueDefinition) RunBudget() (item.Budget, error) {
	budget := item.Budget{
		TotalUnits:           d.Budget.TotalUnits,
		MaxIterationsPerItem: d.Budget.MaxIterationsPerItem,
	}
	if budget.TotalUnits == 0 {
		for _, it := range d.Items {
			budget.TotalUnits += it.BudgetUnits
		}
	}
	if d.Budget.WallClock != "" {
		wall, err := time.ParseDuration(d.Budget.WallClock)
		if err != nil {
			return item.Budget{}, fmt.Errorf("config: wall_clock: %w", err)
		}
		budget.WallClock = wall
	}
	if err := budget.Validate(); err != nil {
		return item.Budget{}, err
	}
	return budget, nil
}

// Config holds the runtime configuration for weft.
type Config struct {
	// ProjectDir is the directory where the user ran `weft` from.
	ProjectDir string

	// WeftProjectDir is ProjectDir/.weft.
	WeftProjectDir string
}

// NewConfig creates a Config rooted at the given project directory.
func NewConfig(projectDir string) (*Config, error) {
	projectDir = strings.TrimSpace(projectDir)
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: resolve working directory: %w", err)
		}
		projectDir = wd
	}
	return &Config{
		ProjectDir:     projectDir,
		WeftProjectDir: filepath.Join(projectDir, WeftDir),
	}, nil
}

// InitWeftDir creates the .weft directory structure in the project
// directory. Called on every run start.
//
// Structure created:
// .weft/
// ├── logs/     <- run logs
// ├── state/    <- persisted summaries
// └── reports/  <- rendered run reports
func InitWeftDir(projectDir string) error {
	weftDir := filepath.Join(projectDir, WeftDir)
	dirs := []string{
		filepath.Join(weftDir, "logs"),
		filepath.Join(weftDir, "state"),
		filepath.Join(weftDir, "reports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.WeftProjectDir, "logs")
}

// StateDir returns the path to the state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.WeftProjectDir, "state")
}

// ReportsDir returns the path to the reports directory.
func (c *Config) ReportsDir() string {
	return filepath.Join(c.WeftProjectDir, "reports")
}
