package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileBackend stores each artifact as an indented JSON file under
// <base>/<rule_id>/<data_type>.json.
type FileBackend struct {
	base string
}

// NewFileBackend creates the base directory if needed.
func NewFileBackend(base string) (*FileBackend, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base path: %w", err)
	}
	return &FileBackend{base: base}, nil
}

func (b *FileBackend) filePath(key Key) string {
	return filepath.Join(b.base, strconv.FormatInt(key.RuleID, 10), key.DataType+".json")
}

func (b *FileBackend) Store(ctx context.Context, key Key, data any) error {
	if err := key.validate(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", key.Path(), err)
	}
	path := b.filePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: create rule dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", key.Path(), err)
	}
	return nil
}

func (b *FileBackend) Retrieve(ctx context.Context, key Key, out any) error {
	if err := key.validate(); err != nil {
		return err
	}
	raw, err := os.ReadFile(b.filePath(key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: read %s: %w", key.Path(), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("storage: unmarshal %s: %w", key.Path(), err)
	}
	return nil
}

// List returns keys sorted by rule id then data type. ruleID 0 and an empty
// dataType match everything.
func (b *FileBackend) List(ctx context.Context, ruleID int64, dataType string) ([]Key, error) {
	search := b.base
	if ruleID > 0 {
		search = filepath.Join(b.base, strconv.FormatInt(ruleID, 10))
		if _, err := os.Stat(search); os.IsNotExist(err) {
			return nil, nil
		}
	}

	var keys []Key
	err := filepath.Walk(search, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".json") {
			return err
		}
		id, perr := strconv.ParseInt(filepath.Base(filepath.Dir(path)), 10, 64)
		if perr != nil {
			return nil // foreign file, skip
		}
		key := Key{RuleID: id, DataType: strings.TrimSuffix(filepath.Base(path), ".json")}
		if key.validate() != nil {
			return nil
		}
		if dataType != "" && key.DataType != dataType {
			return nil
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RuleID != keys[j].RuleID {
			return keys[i].RuleID < keys[j].RuleID
		}
		return keys[i].DataType < keys[j].DataType
	})
	return keys, nil
}

// Delete removes the artifact and prunes the rule directory when it empties.
func (b *FileBackend) Delete(ctx context.Context, key Key) error {
	if err := key.validate(); err != nil {
		return err
	}
	path := b.filePath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %s: %w", key.Path(), err)
	}
	dir := filepath.Dir(path)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
	return nil
}
