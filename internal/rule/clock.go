package rule

import "time"

// Clock supplies "now" to the evaluator. Simulation pins time by handing the
// evaluator a fixed clock per instant; production uses the system clock. This
// replaces a process-wide time override, so evaluations at different instants
// never share mutable state.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

// FixedClock returns a Clock frozen at t.
func FixedClock(t time.Time) Clock { return fixedClock(t) }
