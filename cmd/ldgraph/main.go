// Command ldgraph loads JSON-LD collections into the local graph store.
//
// Usage:
//
//	ldgraph -config config.yaml
//	ldgraph -data ./json-ld -db ./janes.db equipment organizations units
//
// Positional arguments override the configured collection list.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/brunobiangulo/ldgraph"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	dataDir := flag.String("data", "", "Directory holding the JSON-LD collection files")
	dbPath := flag.String("db", "", "Path to the SQLite graph database")
	strict := flag.Bool("strict", false, "Fail the run on identity collisions")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := ldgraph.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = ldgraph.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}

	// Override from environment variables.
	if v := os.Getenv("LDGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LDGRAPH_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LDGRAPH_DOMAIN"); v != "" {
		cfg.Domain = v
	}
	if v := os.Getenv("LDGRAPH_COLLECTIONS"); v != "" {
		cfg.Collections = strings.Split(v, ",")
	}

	// Flags and positional arguments win over config and environment.
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *strict {
		cfg.StrictIdentity = true
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.Collections = args
	}

	loader, err := ldgraph.New(cfg)
	if err != nil {
		slog.Error("creating loader", "error", err)
		os.Exit(1)
	}
	defer loader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := loader.Run(ctx)
	if err != nil {
		slog.Error("load failed", "error", err)
		loader.Close()
		os.Exit(1)
	}

	slog.Info("done",
		"run_id", summary.RunID,
		"collections", summary.Collections,
		"nodes", summary.Nodes,
		"edges", summary.Edges,
		"predicates", summary.Predicates)
}
