package index

// Monitor receives callbacks during a rebuild.
type Monitor interface {
	IndexRecreated(name string)
	Progress(family string, seen int)
	BulkWritten(name string, rows int, result BulkResult)
	Finish(report *Report, err error)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) IndexRecreated(_ string)                   {}
func (n *noopMonitor) Progress(_ string, _ int)                  {}
func (n *noopMonitor) BulkWritten(_ string, _ int, _ BulkResult) {}
func (n *noopMonitor) Finish(_ *Report, _ error)                 {}
