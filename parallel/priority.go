package parallel

import "fmt"

// Priority orders tasks in a ThreadPool. Higher priorities always run
// before lower ones that are still queued.
type Priority uint8

// Priority levels from most to least urgent.
const (
	Immediate Priority = iota
	High
	Normal
	Low

	numPriorities = int(Low) + 1
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case Immediate:
		return "Immediate"
	case High:
		return "High"
	case Normal:
		return "Normal"
	case Low:
		return "Low"
	default:
		return fmt.Sprintf("Priority(%d)", uint8(p))
	}
}

// fifo is an unsynchronized FIFO queue used for each priority level.
type fifo[T any] struct {
	items []T
	head  int
}

func (q *fifo[T]) push(v T) { q.items = append(q.items, v) }

func (q *fifo[T]) len() int { return len(q.items) - q.head }

func (q *fifo[T]) pop() T {
	var zero T
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return v
}

// drain removes and returns every element.
func (q *fifo[T]) drain() []T {
	out := append([]T(nil), q.items[q.head:]...)
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return out
}
