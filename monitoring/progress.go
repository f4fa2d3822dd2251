package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar shows how many accesses of a run have been answered and how
// many are in flight.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// Update sets the counts. Finished never goes backwards.
func (b *ProgressBar) Update(finished, inProgress uint64) {
	b.Lock()
	defer b.Unlock()

	if finished > b.Finished {
		b.Finished = finished
	}

	b.InProgress = inProgress
}

// Done tells if every access has been answered.
func (b *ProgressBar) Done() bool {
	b.Lock()
	defer b.Unlock()

	return b.Total > 0 && b.Finished >= b.Total
}
