// Package store persists flattened graphs to a local SQLite database:
// nodes keyed by identity, edges as (subject, predicate, object) triples,
// an ontology predicate registry, and load-run provenance.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brunobiangulo/ldgraph/flatten"
)

// ErrNodeNotFound is returned when a node identity does not exist.
var ErrNodeNotFound = errors.New("store: node not found")

// Store wraps the SQLite database for all ldgraph persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and initialises
// the schema.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Node operations ---

// SaveNode inserts or overwrites a node by identity.
func (s *Store) SaveNode(ctx context.Context, node flatten.Node) error {
	props, err := json.Marshal(node.Properties)
	if err != nil {
		return fmt.Errorf("marshalling properties for %s: %w", node.Identity, err)
	}

	var geometry any
	if node.Geometry != "" {
		geometry = node.Geometry
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (identity, label, role, xid, type, domain, geometry, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			label = excluded.label,
			role = excluded.role,
			xid = excluded.xid,
			type = excluded.type,
			domain = excluded.domain,
			geometry = excluded.geometry,
			properties = excluded.properties,
			updated_at = CURRENT_TIMESTAMP
	`, node.Identity, node.Label, string(node.Role), node.XID, node.Type, node.Domain, geometry, string(props))
	if err != nil {
		return fmt.Errorf("saving node %s: %w", node.Identity, err)
	}
	return nil
}

// GetNode returns the node stored under identity.
func (s *Store) GetNode(ctx context.Context, identity string) (flatten.Node, error) {
	var (
		node     flatten.Node
		role     string
		geometry sql.NullString
		props    sql.NullString
	)

	row := s.db.QueryRowContext(ctx, `
		SELECT identity, label, role, xid, type, domain, geometry, properties
		FROM nodes WHERE identity = ?
	`, identity)
	err := row.Scan(&node.Identity, &node.Label, &role, &node.XID, &node.Type, &node.Domain, &geometry, &props)
	if errors.Is(err, sql.ErrNoRows) {
		return flatten.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, identity)
	}
	if err != nil {
		return flatten.Node{}, fmt.Errorf("reading node %s: %w", identity, err)
	}

	node.Role = flatten.Role(role)
	node.Geometry = geometry.String
	if props.Valid && props.String != "" {
		if err := json.Unmarshal([]byte(props.String), &node.Properties); err != nil {
			return flatten.Node{}, fmt.Errorf("unmarshalling properties for %s: %w", identity, err)
		}
	}
	return node, nil
}

// CountNodes returns the number of stored nodes.
func (s *Store) CountNodes(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&n)
	return n, err
}

// --- Edge operations ---

// SaveEdges persists one batch of edges in a single transaction. With
// overwrite set, an existing identical triple is replaced; otherwise it is
// left untouched.
func (s *Store) SaveEdges(ctx context.Context, batch []flatten.Edge, overwrite bool) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin edge batch: %w", err)
	}
	defer tx.Rollback()

	query := "INSERT OR IGNORE INTO edges (subject, predicate, object) VALUES (?, ?, ?)"
	if overwrite {
		query = "INSERT OR REPLACE INTO edges (subject, predicate, object) VALUES (?, ?, ?)"
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.ExecContext(ctx, e.Subject, e.Predicate, e.Object); err != nil {
			return fmt.Errorf("inserting edge (%s, %s, %s): %w", e.Subject, e.Predicate, e.Object, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit edge batch: %w", err)
	}
	return nil
}

// CountEdges returns the number of stored edges.
func (s *Store) CountEdges(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&n)
	return n, err
}

// --- Predicate registry ---

// RegisterPredicates records the given predicate names under a trait.
// Idempotent: re-registering a name is a no-op.
func (s *Store) RegisterPredicates(ctx context.Context, trait string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin predicate registration: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO predicates (trait, name) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing predicate insert: %w", err)
	}
	defer stmt.Close()

	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, trait, name); err != nil {
			return fmt.Errorf("registering predicate %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit predicate registration: %w", err)
	}
	return nil
}

// Predicates returns the names registered under a trait, in name order.
func (s *Store) Predicates(ctx context.Context, trait string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM predicates WHERE trait = ? ORDER BY name", trait)
	if err != nil {
		return nil, fmt.Errorf("reading predicates: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// --- Run provenance ---

// CreateRun records the start of a load run.
func (s *Store) CreateRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "INSERT INTO runs (id) VALUES (?)", id); err != nil {
		return fmt.Errorf("creating run %s: %w", id, err)
	}
	return nil
}

// FinishRun records the end of a load run with its final counts.
func (s *Store) FinishRun(ctx context.Context, id string, nodes, edges, predicates int) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = CURRENT_TIMESTAMP, nodes = ?, edges = ?, predicates = ?
		WHERE id = ?
	`, nodes, edges, predicates, id); err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	return nil
}
