package event

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// parallelThreshold is the event count above which collection fans out
	// into chunked parallel fetches.
	parallelThreshold = 2000

	// chunkDays sizes the per-fetch date window in parallel mode; padDays
	// widens the requested range on both sides so boundary events are not
	// lost to timezone skew.
	chunkDays = 90
	padDays   = 7

	serialFetchLimit   = 2000
	parallelFetchLimit = 10000

	defaultWorkers = 8
)

// Collector pulls a rule's events from a Source for a date range: small
// result sets in one query, large ones chunked across a bounded worker pool
// behind the admission throttle. Results are cached per query and range.
type Collector struct {
	source   Source
	throttle Throttle
	cache    Cache
	workers  int
}

// CollectorOption customizes a Collector.
type CollectorOption func(*Collector)

func WithThrottle(t Throttle) CollectorOption {
	return func(c *Collector) { c.throttle = t }
}

func WithCache(cache Cache) CollectorOption {
	return func(c *Collector) { c.cache = cache }
}

func WithWorkers(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

func NewCollector(source Source, opts ...CollectorOption) *Collector {
	c := &Collector{
		source:   source,
		throttle: NoopThrottle{},
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect returns all events matching f between start and end, sorted by
// timestamp.
func (c *Collector) Collect(ctx context.Context, f Filter, start, end time.Time) ([]Event, error) {
	key := cacheKey(f, start, end)
	if c.cache != nil {
		if events, ok := c.cache.Get(ctx, key); ok {
			log.Debug().Str("pattern", f.Pattern).Int("events", len(events)).Msg("event cache hit")
			return events, nil
		}
	}

	f.After, f.Before = start, end
	count, err := c.source.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	var events []Event
	if count >= parallelThreshold {
		events, err = c.collectParallel(ctx, f, start, end)
	} else {
		events, err = c.fetchRange(ctx, f, start, end, serialFetchLimit)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	if c.cache != nil {
		c.cache.Set(ctx, key, events)
	}
	log.Info().Str("pattern", f.Pattern).Int("events", len(events)).
		Time("start", start).Time("end", end).Msg("events collected")
	return events, nil
}

func (c *Collector) fetchRange(ctx context.Context, f Filter, start, end time.Time, limit int) ([]Event, error) {
	if err := c.throttle.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire search slot: %w", err)
	}
	defer c.throttle.Release(ctx)

	f.After, f.Before = start, end
	events, err := c.source.Fetch(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch events %s..%s: %w",
			start.Format(time.DateOnly), end.Format(time.DateOnly), err)
	}
	return events, nil
}

func (c *Collector) collectParallel(ctx context.Context, f Filter, start, end time.Time) ([]Event, error) {
	ranges := chunkRange(start.AddDate(0, 0, -padDays), end.AddDate(0, 0, padDays))

	type result struct {
		events []Event
		err    error
	}
	results := make([]result, len(ranges))
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func(i int, chunkStart, chunkEnd time.Time) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			events, err := c.fetchRange(ctx, f, chunkStart, chunkEnd, parallelFetchLimit)
			results[i] = result{events, err}
		}(i, r[0], r[1])
	}
	wg.Wait()

	var all []Event
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		all = append(all, r.events...)
	}
	return all, nil
}

// chunkRange splits [start, end) into consecutive windows of at most
// chunkDays days.
func chunkRange(start, end time.Time) [][2]time.Time {
	var ranges [][2]time.Time
	for start.Before(end) {
		chunkEnd := start.AddDate(0, 0, chunkDays)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		ranges = append(ranges, [2]time.Time{start, chunkEnd})
		start = chunkEnd
	}
	return ranges
}
