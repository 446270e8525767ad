package ldgraph

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/ldgraph/flatten"
)

// Config holds all configuration for the loader.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.ldgraph/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "ldgraph".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath is not
	// explicitly set. Options: "home" (default) uses ~/.ldgraph/, "local"
	// uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// DataDir is the directory holding the JSON-LD collection files.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Collections are the collection names to load. Each name resolves to
	// <DataDir>/<name>.json plus an optional <name>-context.json sidecar.
	Collections []string `json:"collections" yaml:"collections"`

	// Domain tags every produced node with its source system.
	Domain string `json:"domain" yaml:"domain"`

	// OntologyTrait is the trait name the distinct predicate set is
	// registered under before nodes and edges are persisted.
	OntologyTrait string `json:"ontology_trait" yaml:"ontology_trait"`

	// EdgeBatchSize is the fixed batch size for edge persistence. Not
	// correctness-relevant, only a write-granularity knob.
	EdgeBatchSize int `json:"edge_batch_size" yaml:"edge_batch_size"`

	// StrictIdentity aborts a pass when two records with different IRIs
	// derive the same node identity. Default is overwrite-and-count.
	StrictIdentity bool `json:"strict_identity" yaml:"strict_identity"`

	// TypeRoles maps ontology type IRIs onto structural roles
	// (Entity, Property, Concept). Empty means the built-in Janes table.
	TypeRoles map[string]string `json:"type_roles" yaml:"type_roles"`
}

// DefaultConfig returns a Config preloaded for the Janes JSON-LD export.
func DefaultConfig() Config {
	return Config{
		DBName:     "ldgraph",
		StorageDir: "home",
		DataDir:    "json-ld",
		Collections: []string{
			"equipment",
			"installations",
			"inventory",
			"military-groups",
			"organizations",
			"units",
		},
		Domain:        "military",
		OntologyTrait: "JanesOntology",
		EdgeBatchSize: 100,
	}
}

// LoadConfig reads a YAML config file over the defaults. JSON parses too,
// since YAML is a superset.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// validate checks config values that have no sensible zero-value fallback.
func (c *Config) validate() error {
	if len(c.Collections) == 0 {
		return ErrNoCollections
	}
	if c.EdgeBatchSize < 0 {
		return fmt.Errorf("%w: edge_batch_size cannot be negative", ErrInvalidConfig)
	}
	for uri, role := range c.TypeRoles {
		if !flatten.Role(role).Valid() {
			return fmt.Errorf("%w: unknown role %q for type %s", ErrInvalidConfig, role, uri)
		}
	}
	return nil
}

// typeRoles resolves the configured type→role table, falling back to the
// built-in mapping when none is configured.
func (c *Config) typeRoles() map[string]flatten.Role {
	if len(c.TypeRoles) == 0 {
		return flatten.DefaultTypeRoles()
	}
	table := make(map[string]flatten.Role, len(c.TypeRoles))
	for uri, role := range c.TypeRoles {
		table[uri] = flatten.Role(role)
	}
	return table
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "ldgraph"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".ldgraph", name+".db")
	}
}
