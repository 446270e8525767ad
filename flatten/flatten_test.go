package flatten

import (
	"errors"
	"testing"
)

func newTestFlattener() *Flattener {
	return NewFlattener(NewClassifier(DefaultTypeRoles()), "military", false)
}

func TestFlattenRecordInlineValue(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{"lat": 10.5, "long": 20.5}
	val, err := f.FlattenRecord(g, rec)
	if err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	// No id means no independent identity: the record comes back unchanged.
	got, ok := val.(Record)
	if !ok {
		t.Fatalf("expected the record back, got %T", val)
	}
	if got["lat"] != 10.5 {
		t.Errorf("record was modified: %v", got)
	}
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("inline value should not touch the graph: %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}
}

func TestFlattenRecordBecomesNode(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{
		"id":    "https://x/equipment/Equipment/123",
		"type":  "https://data.janes.com/ontologies/equipment/Equipment",
		"label": "Tank X",
		"name":  "tank-x",
	}
	val, err := f.FlattenRecord(g, rec)
	if err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}
	if val != nil {
		t.Fatalf("identified record should return the node sentinel, got %v", val)
	}

	identity := NodeIdentity("https://x/equipment/Equipment/123")
	node, ok := g.Nodes[identity]
	if !ok {
		t.Fatalf("node %s not stored", identity)
	}
	if node.Label != "Tank X" {
		t.Errorf("Label = %q", node.Label)
	}
	if node.XID != "https://x/equipment/Equipment/123" {
		t.Errorf("XID = %q", node.XID)
	}
	if node.Type != "equipment" {
		t.Errorf("Type = %q", node.Type)
	}
	if node.Role != RoleEntity {
		t.Errorf("Role = %q", node.Role)
	}
	if node.Domain != "military" {
		t.Errorf("Domain = %q", node.Domain)
	}
	// Scalar attributes stay embedded as properties; id does not.
	if node.Properties["name"] != "tank-x" {
		t.Errorf("Properties = %v", node.Properties)
	}
	if _, ok := node.Properties["id"]; ok {
		t.Error("id must not appear in properties")
	}
}

func TestFlattenReferenceEmitsEdge(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{
		"id":    "https://x/equipment/Equipment/123",
		"type":  "https://x/ontologies/equipment/Equipment",
		"label": "Tank X",
		"partOf": map[string]any{
			"id":    "https://x/organization/Organization/9",
			"label": "Org",
		},
	}
	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(g.Edges))
	}

	want := Edge{
		Subject:   NodeIdentity("https://x/equipment/Equipment/123"),
		Predicate: "part-of",
		Object:    NodeIdentity("https://x/organization/Organization/9"),
	}
	if g.Edges[0] != want {
		t.Errorf("edge = %+v, want %+v", g.Edges[0], want)
	}
}

func TestFlattenSequenceOfReferences(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{
		"id": "https://x/organization/Organization/1",
		"operates": []any{
			map[string]any{"id": "https://x/equipment/Equipment/10"},
			map[string]any{"id": "https://x/equipment/Equipment/11"},
		},
	}
	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	if len(g.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d: %v", len(g.Edges), g.Edges)
	}
	for _, e := range g.Edges {
		if e.Predicate != "operates" {
			t.Errorf("predicate = %q", e.Predicate)
		}
	}
	if len(g.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %d", len(g.Nodes))
	}
}

func TestFlattenSequenceInlineLastWins(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	// Two inline (id-less) elements under one attribute: the last overwrites.
	rec := Record{
		"id": "https://x/equipment/Equipment/1",
		"variants": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
	}
	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	node := g.Nodes[NodeIdentity("https://x/equipment/Equipment/1")]
	variant, ok := node.Properties["variants"].(Record)
	if !ok {
		t.Fatalf("variants property = %v", node.Properties["variants"])
	}
	if variant["name"] != "second" {
		t.Errorf("expected last inline element to win, got %v", variant)
	}
	if len(g.Edges) != 0 {
		t.Errorf("inline elements must not emit edges: %v", g.Edges)
	}
}

func TestFlattenSequenceOfScalars(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{
		"id":    "https://x/equipment/Equipment/1",
		"tags":  []any{"alpha", "bravo"},
		"count": 3.0,
	}
	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	node := g.Nodes[NodeIdentity("https://x/equipment/Equipment/1")]
	if node.Properties["tags"] != "bravo" {
		t.Errorf("tags = %v, want last scalar", node.Properties["tags"])
	}
	if node.Properties["count"] != 3.0 {
		t.Errorf("count = %v", node.Properties["count"])
	}
}

func TestFlattenLocation(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{
		"id":   "https://x/installation/Installation/5",
		"type": "https://data.janes.com/ontologies/installation/Installation",
		"locatedAt": map[string]any{
			"lat":  10.5,
			"long": 20.5,
			"locationCountry": map[string]any{
				"id":    "https://x/geo/Country/UK",
				"label": "United Kingdom",
			},
			"geoprecision": map[string]any{
				"id": "https://x/geo/Geoprecision/exact",
			},
		},
	}
	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	identity := NodeIdentity("https://x/installation/Installation/5")
	node := g.Nodes[identity]
	if node.Geometry != "POINT(20.5 10.5)" {
		t.Errorf("Geometry = %q", node.Geometry)
	}

	// The locatedAt sub-structure itself stays embedded as a property.
	if _, ok := node.Properties["locatedAt"]; !ok {
		t.Error("locatedAt missing from properties")
	}

	// Country and geoprecision became their own nodes with edges.
	if _, ok := g.Nodes[NodeIdentity("https://x/geo/Country/UK")]; !ok {
		t.Error("country node missing")
	}
	if _, ok := g.Nodes[NodeIdentity("https://x/geo/Geoprecision/exact")]; !ok {
		t.Error("geoprecision node missing")
	}

	var predicates []string
	for _, e := range g.Edges {
		if e.Subject == identity {
			predicates = append(predicates, e.Predicate)
		}
	}
	if len(predicates) != 2 || predicates[0] != "location-country" || predicates[1] != "geoprecision" {
		t.Errorf("edges from installation = %v", predicates)
	}
}

func TestFlattenMissingTypeDefaults(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{"id": "https://x/equipment/Equipment/1"}
	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	node := g.Nodes[NodeIdentity("https://x/equipment/Equipment/1")]
	if node.Type != MissingType {
		t.Errorf("Type = %q, want %q", node.Type, MissingType)
	}
	if node.Role != RoleEntity {
		t.Errorf("Role = %q, want %q", node.Role, RoleEntity)
	}
	// Label falls back to the identity.
	if node.Label != node.Identity {
		t.Errorf("Label = %q, want identity fallback", node.Label)
	}
}

func TestFlattenCyclicReferences(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	a := Record{"id": "https://x/organization/Organization/a"}
	b := Record{"id": "https://x/organization/Organization/b"}
	a["partOf"] = b
	b["owns"] = a

	// Must terminate despite the a -> b -> a cycle.
	if _, err := f.FlattenRecord(g, a); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	if len(g.Nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 2 {
		t.Errorf("expected 2 edges, got %d: %v", len(g.Edges), g.Edges)
	}
}

func TestFlattenSelfReferenceStaysInEdgeList(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{
		"id": "https://x/organization/Organization/1",
		"parentOf": map[string]any{
			"id": "https://x/organization/Organization/1",
		},
	}
	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	// Self-loops are dropped at the persistence boundary, not here.
	if len(g.Edges) != 1 {
		t.Fatalf("expected the self-loop in the raw edge list, got %v", g.Edges)
	}
	if g.Edges[0].Subject != g.Edges[0].Object {
		t.Errorf("expected a self-loop, got %+v", g.Edges[0])
	}
}

func TestFlattenIdentityCollisionCounted(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{"id": "https://x/equipment/Equipment/1"}
	identity := NodeIdentity("https://x/equipment/Equipment/1")

	// Simulate a digest collision: same identity already stored for a
	// different raw IRI.
	g.Nodes[identity] = Node{Identity: identity, XID: "https://elsewhere/Other/99"}

	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}
	if g.Collisions != 1 {
		t.Errorf("Collisions = %d, want 1", g.Collisions)
	}
	// Last write wins.
	if g.Nodes[identity].XID != "https://x/equipment/Equipment/1" {
		t.Errorf("node was not overwritten: %+v", g.Nodes[identity])
	}
}

func TestFlattenIdentityCollisionStrict(t *testing.T) {
	f := NewFlattener(nil, "military", true)
	g := NewGraph()

	rec := Record{"id": "https://x/equipment/Equipment/1"}
	identity := NodeIdentity("https://x/equipment/Equipment/1")
	g.Nodes[identity] = Node{Identity: identity, XID: "https://elsewhere/Other/99"}

	if _, err := f.FlattenRecord(g, rec); !errors.Is(err, ErrIdentityCollision) {
		t.Fatalf("expected ErrIdentityCollision, got %v", err)
	}
}

func TestFlattenRevisitSameIRINotACollision(t *testing.T) {
	f := newTestFlattener()
	g := NewGraph()

	rec := Record{"id": "https://x/equipment/Equipment/1", "label": "first"}
	if _, err := f.FlattenRecord(g, rec); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	again := Record{"id": "https://x/equipment/Equipment/1", "label": "second"}
	if _, err := f.FlattenRecord(g, again); err != nil {
		t.Fatalf("FlattenRecord: %v", err)
	}

	if g.Collisions != 0 {
		t.Errorf("Collisions = %d, want 0", g.Collisions)
	}
	node := g.Nodes[NodeIdentity("https://x/equipment/Equipment/1")]
	if node.Label != "second" {
		t.Errorf("Label = %q, want last write", node.Label)
	}
}
