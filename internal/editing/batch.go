package editing

import "fmt"

// ItemError records why a single image failed
type ItemError struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Err  error  `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Name, e.ID, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Report lists per-item outcomes in dispatch order. Ids that no longer named
// an image when their item ran appear in neither list.
type Report struct {
	Succeeded []string    `json:"succeeded"`
	Failures  []ItemError `json:"failures"`
}

// Failed reports whether any item failed
func (r Report) Failed() bool {
	return len(r.Failures) > 0
}

type outcome struct {
	name    string
	err     error
	skipped bool
}

// Batch is a dispatched set of per-image operations
type Batch struct {
	ids      []string
	outcomes []outcome
	done     chan struct{}
	report   Report
}

func newBatch(ids []string) *Batch {
	return &Batch{
		ids:      ids,
		outcomes: make([]outcome, len(ids)),
		done:     make(chan struct{}),
	}
}

// IDs returns the dispatched image ids
func (b *Batch) IDs() []string {
	return b.ids
}

// each index is written by exactly one goroutine
func (b *Batch) settle(i int, o outcome) {
	b.outcomes[i] = o
}

func (b *Batch) finish() {
	for i, o := range b.outcomes {
		switch {
		case o.skipped:
		case o.err != nil:
			b.report.Failures = append(b.report.Failures, ItemError{ID: b.ids[i], Name: o.name, Err: o.err})
		default:
			b.report.Succeeded = append(b.report.Succeeded, b.ids[i])
		}
	}
	close(b.done)
}

// Done is closed once every item has settled
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until every item has settled
func (b *Batch) Wait() Report {
	<-b.done
	return b.report
}
