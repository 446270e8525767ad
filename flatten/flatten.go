// Package flatten turns linked-data records into a flat graph: a map of
// derived node identities to attribute records, plus a list of directed,
// labeled edges between identities. Records carrying an id become nodes;
// records without one are consumed inline as property values.
package flatten

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// ErrIdentityCollision is returned in strict mode when two records with
// different raw IRIs derive the same node identity.
var ErrIdentityCollision = errors.New("flatten: identity collision")

// Record is a raw linked-data object as decoded from JSON: attribute names
// mapped to scalars, nested records, or sequences of records. The reserved
// id attribute carries the record's IRI, the reserved type attribute its
// ontology class.
type Record = map[string]any

// Node is the flattened form of one identified record.
type Node struct {
	Identity   string `json:"identity"`
	Label      string `json:"label"`
	Role       Role   `json:"role"`
	XID        string `json:"xid"`
	Type       string `json:"type"`
	Domain     string `json:"domain"`
	Geometry   string `json:"geometry,omitempty"`
	Properties Record `json:"properties,omitempty"`
}

// Edge is a directed, labeled relation between two node identities. Edges
// are not deduplicated: traversing the same reference path twice appends the
// same triple twice.
type Edge struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Graph accumulates the output of one traversal pass. It is owned by that
// pass: the node map and edge list are handed wholesale to persistence and
// not mutated afterward. A node identity encountered twice is overwritten,
// last write wins.
type Graph struct {
	Nodes map[string]Node
	Edges []Edge

	// Collisions counts identity collisions between records with
	// different raw IRIs. Revisits of the same IRI are not collisions.
	Collisions int

	// visiting guards against cyclic references: an identity is marked
	// before its properties are walked and unmarked when its node is
	// complete. Re-entering a marked identity short-circuits.
	visiting map[string]bool
}

// NewGraph returns an empty accumulator for a single traversal pass.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]Node),
		visiting: make(map[string]bool),
	}
}

// Flattener walks raw records and fills a Graph. It holds only immutable
// configuration; all traversal state lives in the Graph, so one Flattener
// can serve any number of passes.
type Flattener struct {
	classifier *Classifier
	domain     string
	strict     bool
}

// NewFlattener creates a flattener. domain tags every produced node with its
// source system. In strict mode an identity collision aborts the pass
// instead of overwriting.
func NewFlattener(classifier *Classifier, domain string, strict bool) *Flattener {
	if classifier == nil {
		classifier = NewClassifier(DefaultTypeRoles())
	}
	return &Flattener{classifier: classifier, domain: domain, strict: strict}
}

// FlattenRecord flattens one record into g.
//
// A record without an id has no independent identity: it is returned
// unchanged so the caller can keep it as an inline property value. A record
// with an id becomes a Node in g and the call returns nil, signalling the
// caller to emit an edge instead. Top-level callers invoke this per record
// and discard the return value.
func (f *Flattener) FlattenRecord(g *Graph, rec Record) (any, error) {
	rawID, ok := rec["id"].(string)
	if !ok {
		return rec, nil
	}

	identity := NodeIdentity(rawID)

	if g.visiting[identity] {
		// Cyclic reference: the node is already being built further up
		// the stack. Report it as a node so the caller emits its edge.
		return nil, nil
	}

	if prev, ok := g.Nodes[identity]; ok && prev.XID != rawID {
		g.Collisions++
		slog.Warn("flatten: identity collision, last write wins",
			"identity", identity, "previous_xid", prev.XID, "xid", rawID)
		if f.strict {
			return nil, fmt.Errorf("%w: %s (%s vs %s)", ErrIdentityCollision, identity, prev.XID, rawID)
		}
	}

	typeLabel := MissingType
	role := RoleEntity
	if typeURI, ok := rec["type"].(string); ok && typeURI != "" {
		typeLabel = TypeLabel(typeURI)
		role = f.classifier.Classify(typeURI)
	}

	loc := ExtractLocation(rec)

	g.visiting[identity] = true
	defer delete(g.visiting, identity)

	props, err := f.flattenProperties(g, identity, rec)
	if err != nil {
		return nil, err
	}

	node := Node{
		Identity:   identity,
		Label:      identity,
		Role:       role,
		XID:        rawID,
		Type:       typeLabel,
		Domain:     f.domain,
		Geometry:   loc.Geometry,
		Properties: props,
	}
	if label, ok := rec["label"].(string); ok && label != "" {
		node.Label = label
	}
	g.Nodes[identity] = node

	refs := []struct {
		rec       Record
		predicate string
	}{
		{loc.Country, "location-country"},
		{loc.Geoprecision, "geoprecision"},
	}
	for _, ref := range refs {
		if ref.rec == nil {
			continue
		}
		refID, ok := ref.rec["id"].(string)
		if !ok {
			slog.Warn("flatten: location reference without id, skipping edge",
				"subject", identity, "predicate", ref.predicate)
			continue
		}
		if _, err := f.FlattenRecord(g, ref.rec); err != nil {
			return nil, err
		}
		g.Edges = append(g.Edges, Edge{Subject: identity, Predicate: ref.predicate, Object: NodeIdentity(refID)})
	}

	return nil, nil
}

// flattenProperties walks every attribute of rec except the reserved id,
// splitting them into inline property values and edges to identified
// records. Attributes are visited in sorted order so a pass over the same
// forest always produces the same edge list.
func (f *Flattener) flattenProperties(g *Graph, owner string, rec Record) (Record, error) {
	props := make(Record, len(rec))
	for _, attr := range slices.Sorted(maps.Keys(rec)) {
		if attr == "id" {
			continue
		}
		switch v := rec[attr].(type) {
		case []any:
			for _, elem := range v {
				if err := f.flattenElement(g, owner, attr, elem, props); err != nil {
					return nil, err
				}
			}
		case map[string]any:
			if err := f.flattenElement(g, owner, attr, v, props); err != nil {
				return nil, err
			}
		default:
			props[attr] = v
		}
	}
	return props, nil
}

// flattenElement applies the either/or logic to a single nested value: an
// inline result is stored as the property, an identified result becomes an
// edge. Later inline elements under the same attribute overwrite earlier
// ones; sequences of inline values are not collected into a list.
func (f *Flattener) flattenElement(g *Graph, owner, attr string, elem any, props Record) error {
	child, ok := elem.(map[string]any)
	if !ok {
		// Scalar inside a sequence.
		props[attr] = elem
		return nil
	}

	val, err := f.FlattenRecord(g, child)
	if err != nil {
		return err
	}
	if val != nil {
		props[attr] = val
		return nil
	}

	rawID, _ := child["id"].(string)
	g.Edges = append(g.Edges, Edge{
		Subject:   owner,
		Predicate: ToHyphenated(attr),
		Object:    NodeIdentity(rawID),
	})
	return nil
}
