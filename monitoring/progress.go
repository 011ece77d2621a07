package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks a long running batch of channel operations.
type ProgressBar struct {
	sync.Mutex
	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	Failed     uint64
	InProgress uint64
}

// ProgressSnapshot is the state of a bar at one point in time.
type ProgressSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	Failed     uint64    `json:"failed"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// MoveInProgressToFinished reduces the number of in progress items by a
// certain amount and increases the finished items by the same amount.
// Failed items count as finished too.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64, failed bool) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount

	if failed {
		b.Failed += amount
	}
}

// Snapshot copies the state of the bar.
func (b *ProgressBar) Snapshot() ProgressSnapshot {
	b.Lock()
	defer b.Unlock()

	return ProgressSnapshot{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		Failed:     b.Failed,
		InProgress: b.InProgress,
	}
}
