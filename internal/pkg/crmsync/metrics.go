package crmsync

import "fmt"

// Metrics collects the counters of one worker pass. Each LockAndProcess
// invocation owns its own value, so concurrent worker instances and test
// runs cannot cross-contaminate counts.
type Metrics struct {
	Processed int
	Syncs     int
	Errors    int
	DLQ       int
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	*m = Metrics{}
}

// IsZero reports whether the pass did no observable work.
func (m Metrics) IsZero() bool {
	return m == Metrics{}
}

func (m Metrics) String() string {
	return fmt.Sprintf("processed=%d syncs=%d errors=%d dlq=%d", m.Processed, m.Syncs, m.Errors, m.DLQ)
}
