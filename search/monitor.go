package search

import "time"

// Monitor receives callbacks for every query the searcher handles.
type Monitor interface {
	QueryIssued(index, query string)
	QuerySkipped(index, query string)
	StaleReference(index, id string)
	// QueryFailed is called instead of Finish when the engine errors.
	QueryFailed(index, query string, err error)
	Finish(index string, hits int, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) QueryIssued(_, _ string)                 {}
func (n *noopMonitor) QuerySkipped(_, _ string)                {}
func (n *noopMonitor) StaleReference(_, _ string)              {}
func (n *noopMonitor) QueryFailed(_, _ string, _ error)        {}
func (n *noopMonitor) Finish(_ string, _ int, _ time.Duration) {}

// NoopMonitor returns a monitor that ignores every callback.
func NoopMonitor() Monitor {
	return &noopMonitor{}
}
