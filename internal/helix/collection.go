package helix

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
)

// maxCollectionFileSize bounds collection files to keep a malformed path
// from exhausting memory before validation.
const maxCollectionFileSize = 64 << 20

// ReadCollection loads a named dataset collection from a JSON file mapping
// context name to an Nx6 array of step parameter rows:
//
//	{"AA": [[0.1, -0.2, 3.32, 0.0, 0.05, 0.6], ...], "AT": [...]}
//
// Any malformed entry fails the whole load.
func ReadCollection(path string) (map[string][]StepParams, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("collection file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat collection file: %w", err)
	}
	if info.Size() > maxCollectionFileSize {
		return nil, fmt.Errorf("collection file too large: %d bytes (max %d)", info.Size(), maxCollectionFileSize)
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection file: %w", err)
	}
	var byName map[string][][]float64
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse collection file: %w", err)
	}

	out := make(map[string][]StepParams, len(byName))
	for name, rows := range byName {
		parsed := make([]StepParams, len(rows))
		for i, row := range rows {
			if len(row) != NumParams {
				return nil, fmt.Errorf("context %q row %d: expected %d values, got %d", name, i, NumParams, len(row))
			}
			copy(parsed[i][:], row)
		}
		out[name] = parsed
	}
	return out, nil
}

// LoadCollection reads a JSON collection file and appends one SimpleSampler
// per context to the aggregate, sharing the aggregate's random source and
// inheriting its current mode. JSON objects are unordered, so contexts are
// registered in sorted-name order to keep index addressing deterministic.
// The first bad entry or duplicate name aborts the load.
func (a *AggregateSampler) LoadCollection(path string) error {
	byName, err := ReadCollection(path)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := NewDataset(byName[name])
		if err != nil {
			return fmt.Errorf("context %q: %w", name, err)
		}
		s, err := NewSimpleSampler(data, a.mode, a.src)
		if err != nil {
			return fmt.Errorf("context %q: %w", name, err)
		}
		if err := a.Append(name, s); err != nil {
			return err
		}
	}
	return nil
}

// NewAggregateFromJSON builds an aggregate and loads a collection file into
// it in one call.
func NewAggregateFromJSON(path string, mode Mode, src rand.Source) (*AggregateSampler, error) {
	a := NewAggregateSampler(mode, src)
	if err := a.LoadCollection(path); err != nil {
		return nil, err
	}
	return a, nil
}
