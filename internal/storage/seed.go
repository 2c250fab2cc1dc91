package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Seed files looked up in the data directory.
const (
	SeedBudgetFile = "seed_budget.json"
	SeedTodosFile  = "seed_todos.json"
)

// SeedFromDir copies the seed files found in dir into kv for keys that are
// still empty. Missing files are skipped; a file that is not valid JSON is
// an error.
func SeedFromDir(ctx context.Context, kv KV, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	seeds := []struct{ file, key string }{
		{SeedBudgetFile, KeyBudget},
		{SeedTodosFile, KeyTodos},
	}

	seeded := 0
	for _, s := range seeds {
		data, err := os.ReadFile(filepath.Join(dir, s.file))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return seeded, fmt.Errorf("read %s: %w", s.file, err)
		}
		if !json.Valid(data) {
			return seeded, fmt.Errorf("seed %s: invalid json", s.file)
		}
		if _, err := kv.Get(ctx, s.key); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return seeded, err
		}
		if err := kv.Set(ctx, s.key, data); err != nil {
			return seeded, fmt.Errorf("seed %s: %w", s.key, err)
		}
		seeded++
	}
	return seeded, nil
}
