package event

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Source is the upstream event store a collector pulls from. Implementations
// wrap the remote search API; in-process sources exist for tests and local
// runs.
type Source interface {
	Count(ctx context.Context, f Filter) (int, error)
	Fetch(ctx context.Context, f Filter, limit int) ([]Event, error)
}

// RepositorySource adapts an in-memory Repository to the Source interface.
type RepositorySource struct {
	Repo Repository
}

func (s RepositorySource) Count(ctx context.Context, f Filter) (int, error) {
	return s.Repo.Count(f), nil
}

func (s RepositorySource) Fetch(ctx context.Context, f Filter, limit int) ([]Event, error) {
	events := s.Repo.Query(f)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// NDJSONSource reads events from a newline-delimited JSON file, one event per
// line. It backs local audit runs against exported event dumps.
type NDJSONSource struct {
	repo *MemoryRepository
}

// LoadNDJSON parses the file eagerly; malformed lines fail the load.
func LoadNDJSON(path string) (*NDJSONSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event dump: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("parse event dump %s line %d: %w", path, line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event dump: %w", err)
	}

	repo := NewMemoryRepository()
	repo.SetEvents(events)
	return &NDJSONSource{repo: repo}, nil
}

func (s *NDJSONSource) Count(ctx context.Context, f Filter) (int, error) {
	return s.repo.Count(f), nil
}

func (s *NDJSONSource) Fetch(ctx context.Context, f Filter, limit int) ([]Event, error) {
	events := s.repo.Query(f)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
