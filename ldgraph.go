// Package ldgraph loads linked-data (JSON-LD) document collections,
// flattens them into nodes and edges, and persists the resulting graph.
//
// The flattening itself lives in the flatten subpackage; this package is the
// driver around it: reading collection files, assembling the output
// (predicate registration, self-loop filtering, batched edge writes) and
// recording run provenance.
package ldgraph

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/brunobiangulo/ldgraph/flatten"
	"github.com/brunobiangulo/ldgraph/store"
)

// GraphSink receives the assembled graph. The SQLite store implements it;
// tests substitute their own.
type GraphSink interface {
	// RegisterPredicates records the distinct predicate names under a
	// trait. Called once per run, before any node or edge is persisted.
	RegisterPredicates(ctx context.Context, trait string, names []string) error

	// SaveNode persists one flattened node, overwriting by identity.
	SaveNode(ctx context.Context, node flatten.Node) error

	// SaveEdges persists one fixed-size batch of edges.
	SaveEdges(ctx context.Context, batch []flatten.Edge, overwrite bool) error
}

// RunSummary reports what a single load pass produced.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Collections int           `json:"collections"`
	Records     int           `json:"records"`
	Nodes       int           `json:"nodes"`
	Edges       int           `json:"edges"`
	Predicates  int           `json:"predicates"`
	SelfLoops   int           `json:"self_loops_dropped"`
	Collisions  int           `json:"identity_collisions"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Loader is the main entry point: one Loader runs one or more load passes
// against a fixed configuration and sink.
type Loader struct {
	cfg       Config
	flattener *flatten.Flattener
	sink      GraphSink
	store     *store.Store // nil when a custom sink is injected
}

// New creates a loader backed by the SQLite graph store at the configured
// database path.
func New(cfg Config) (*Loader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	l := newLoader(cfg, s)
	l.store = s
	return l, nil
}

// NewWithSink creates a loader that persists through the given sink instead
// of opening a database. Run provenance is not recorded.
func NewWithSink(cfg Config, sink GraphSink) (*Loader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newLoader(cfg, sink), nil
}

func newLoader(cfg Config, sink GraphSink) *Loader {
	classifier := flatten.NewClassifier(cfg.typeRoles())
	return &Loader{
		cfg:       cfg,
		flattener: flatten.NewFlattener(classifier, cfg.Domain, cfg.StrictIdentity),
		sink:      sink,
	}
}

// Close releases the underlying store, if the loader owns one.
func (l *Loader) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// Store returns the underlying store for diagnostic access (nil when the
// loader was built with a custom sink).
func (l *Loader) Store() *store.Store {
	return l.store
}

// Run executes one full load pass: read every configured collection,
// flatten all top-level records into a single accumulator, then hand the
// finished graph to the sink.
func (l *Loader) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	runID := uuid.NewString()

	if l.store != nil {
		if err := l.store.CreateRun(ctx, runID); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
	}

	g := flatten.NewGraph()
	records := 0

	for _, name := range l.cfg.Collections {
		recs, _, err := ReadCollection(l.cfg.DataDir, name)
		if err != nil {
			return nil, err
		}
		slog.Info("ldgraph: parsing collection", "run_id", runID, "collection", name, "records", len(recs))

		for _, rec := range recs {
			val, err := l.flattener.FlattenRecord(g, rec)
			if err != nil {
				return nil, fmt.Errorf("flattening collection %s: %w", name, err)
			}
			if val != nil {
				// Top-level records are expected to carry an id; one
				// without it flattens to nothing.
				slog.Warn("ldgraph: top-level record without id, skipped", "collection", name)
			}
		}
		records += len(recs)
	}

	summary, err := l.assemble(ctx, g)
	if err != nil {
		return nil, err
	}
	summary.RunID = runID
	summary.Collections = len(l.cfg.Collections)
	summary.Records = records
	summary.Elapsed = time.Since(start)

	if l.store != nil {
		if err := l.store.FinishRun(ctx, runID, summary.Nodes, summary.Edges, summary.Predicates); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
	}

	slog.Info("ldgraph: load complete",
		"run_id", runID,
		"records", summary.Records,
		"nodes", summary.Nodes,
		"edges", summary.Edges,
		"predicates", summary.Predicates,
		"self_loops_dropped", summary.SelfLoops,
		"identity_collisions", summary.Collisions,
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	return summary, nil
}

// assemble hands a finished graph to the sink: distinct predicates first,
// then every node, then the edge list in fixed-size batches with progress
// reporting. Self-loops are dropped here and nowhere earlier.
func (l *Loader) assemble(ctx context.Context, g *flatten.Graph) (*RunSummary, error) {
	predicates := uniquePredicates(g.Edges)
	if err := l.sink.RegisterPredicates(ctx, l.cfg.OntologyTrait, predicates); err != nil {
		return nil, fmt.Errorf("registering predicates: %w", err)
	}

	slog.Info("ldgraph: saving nodes", "nodes", len(g.Nodes))
	for _, identity := range slices.Sorted(maps.Keys(g.Nodes)) {
		if err := l.sink.SaveNode(ctx, g.Nodes[identity]); err != nil {
			return nil, fmt.Errorf("saving node %s: %w", identity, err)
		}
	}

	edges := dropSelfLoops(g.Edges)

	batchSize := l.cfg.EdgeBatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	for i := 0; i < len(edges); i += batchSize {
		j := min(i+batchSize, len(edges))
		if err := l.sink.SaveEdges(ctx, edges[i:j], true); err != nil {
			return nil, fmt.Errorf("saving edges: %w", err)
		}
		slog.Info("ldgraph: saving edges", "progress", fmt.Sprintf("%d/%d", j, len(edges)))
	}

	return &RunSummary{
		Nodes:      len(g.Nodes),
		Edges:      len(edges),
		Predicates: len(predicates),
		SelfLoops:  len(g.Edges) - len(edges),
		Collisions: g.Collisions,
	}, nil
}

// uniquePredicates returns the sorted set of distinct predicate labels in
// the edge list.
func uniquePredicates(edges []flatten.Edge) []string {
	seen := make(map[string]bool, len(edges))
	var names []string
	for _, e := range edges {
		if !seen[e.Predicate] {
			seen[e.Predicate] = true
			names = append(names, e.Predicate)
		}
	}
	slices.Sort(names)
	return names
}

// dropSelfLoops filters edges whose subject and object identities are equal.
// Self-loops are allowed to exist in the raw edge list; they are excluded
// only here, at the persistence boundary.
func dropSelfLoops(edges []flatten.Edge) []flatten.Edge {
	kept := make([]flatten.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Subject == e.Object {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
