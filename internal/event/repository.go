package event

import (
	"sort"
	"strings"
	"time"
)

// Filter narrows repository queries. Zero fields are not applied.
type Filter struct {
	Resource string
	Pattern  string // wildcard pattern, '*' matches any run of characters
	Types    []string
	After    time.Time // inclusive
	Before   time.Time // inclusive
}

func (f Filter) matches(e Event) bool {
	if f.Resource != "" && e.Resource != f.Resource {
		return false
	}
	if f.Pattern != "" && !MatchWildcard(f.Pattern, e.Resource) {
		return false
	}
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if e.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.After.IsZero() && e.Timestamp.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && e.Timestamp.After(f.Before) {
		return false
	}
	return true
}

// Repository is a scoped event store. One simulation run owns one repository:
// the evaluator's queries see exactly the events installed for the run.
type Repository interface {
	SetEvents(events []Event)
	Query(f Filter) []Event
	Count(f Filter) int
	Resources(f Filter) []string
}

// MemoryRepository keeps events in memory sorted by timestamp. It is the
// backend used for simulation runs; no locking because a run is
// single-threaded by design.
type MemoryRepository struct {
	events []Event
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

// SetEvents replaces the repository contents.
func (r *MemoryRepository) SetEvents(events []Event) {
	r.events = append([]Event(nil), events...)
	sort.SliceStable(r.events, func(i, j int) bool {
		return r.events[i].Timestamp.Before(r.events[j].Timestamp)
	})
}

// Query returns events matching f in timestamp order.
func (r *MemoryRepository) Query(f Filter) []Event {
	var out []Event
	for _, e := range r.events {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of events matching f.
func (r *MemoryRepository) Count(f Filter) int {
	n := 0
	for _, e := range r.events {
		if f.matches(e) {
			n++
		}
	}
	return n
}

// Resources returns the distinct resource names matching f, sorted.
func (r *MemoryRepository) Resources(f Filter) []string {
	seen := map[string]bool{}
	for _, e := range r.events {
		if f.matches(e) {
			seen[e.Resource] = true
		}
	}
	out := make([]string, 0, len(seen))
	for res := range seen {
		out = append(out, res)
	}
	sort.Strings(out)
	return out
}

// MatchWildcard matches name against a pattern where '*' matches any run of
// characters, the only metacharacter the event stores support.
func MatchWildcard(pattern, name string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == name
	}
	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	name = name[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(name, parts[i])
		if idx < 0 {
			return false
		}
		name = name[idx+len(parts[i]):]
	}
	return strings.HasSuffix(name, parts[len(parts)-1])
}
