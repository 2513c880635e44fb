// Package jsonfile saves datasets as JSON files.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
)

// DefaultTopKey wraps list data saved without an explicit key.
const DefaultTopKey = "data"

// Save writes data as indented JSON to path, creating parent directories.
// Slices are wrapped into an object under topKey (DefaultTopKey if empty)
// so every file has an object at the top level.
func Save(data any, path, topKey string) error {
	if v := reflect.ValueOf(data); v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		if topKey == "" {
			topKey = DefaultTopKey
		}
		data = map[string]any{topKey: data}
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// Load decodes the JSON file at path into v.
func Load(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
