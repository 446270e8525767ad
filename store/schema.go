package store

// schemaSQL is the DDL for all tables.
const schemaSQL = `
-- Flattened nodes, keyed by derived identity. xid holds the original IRI.
CREATE TABLE IF NOT EXISTS nodes (
    identity TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    role TEXT NOT NULL,
    xid TEXT NOT NULL,
    type TEXT NOT NULL,
    domain TEXT NOT NULL,
    geometry TEXT,
    properties JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Directed, labeled edges between node identities.
CREATE TABLE IF NOT EXISTS edges (
    id INTEGER PRIMARY KEY,
    subject TEXT NOT NULL,
    predicate TEXT NOT NULL,
    object TEXT NOT NULL,
    UNIQUE(subject, predicate, object)
);

-- Ontology predicate registry, grouped by trait.
CREATE TABLE IF NOT EXISTS predicates (
    id INTEGER PRIMARY KEY,
    trait TEXT NOT NULL,
    name TEXT NOT NULL,
    UNIQUE(trait, name)
);

-- Load-run provenance.
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME,
    nodes INTEGER DEFAULT 0,
    edges INTEGER DEFAULT 0,
    predicates INTEGER DEFAULT 0
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_nodes_xid ON nodes(xid);
CREATE INDEX IF NOT EXISTS idx_edges_subject ON edges(subject);
CREATE INDEX IF NOT EXISTS idx_edges_object ON edges(object);
`
