package ldgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/brunobiangulo/ldgraph/flatten"
)

// ReadCollection loads one JSON-LD collection: the top-level record array
// from <dir>/<name>.json and, when present, the @context document from
// <dir>/<name>-context.json. A missing context sidecar is not an error; the
// flattener works on the expanded records alone.
func ReadCollection(dir, name string) ([]flatten.Record, map[string]any, error) {
	path := filepath.Join(dir, name+".json")

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading collection %s: %w", name, err)
	}

	var records []flatten.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("parsing collection %s: %w", name, err)
	}

	var context map[string]any
	ctxPath := filepath.Join(dir, name+"-context.json")
	ctxData, err := os.ReadFile(ctxPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// no sidecar
	case err != nil:
		return nil, nil, fmt.Errorf("reading context for %s: %w", name, err)
	default:
		if err := json.Unmarshal(ctxData, &context); err != nil {
			return nil, nil, fmt.Errorf("parsing context for %s: %w", name, err)
		}
	}

	return records, context, nil
}
