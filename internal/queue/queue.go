// Package queue orders accepted items and releases them to the single
// output channel at a controlled, jittered pace under a bounded backlog.
package queue

import (
	"container/heap"
	"sync"
	"time"

	"newsflow/internal/domain"
)

// Entry is one item awaiting publication.
type Entry struct {
	Item       domain.Item
	Result     domain.ScoreResult
	EnqueuedAt time.Time

	seq uint64
}

// Outcome reports what Enqueue did with an entry.
type Outcome struct {
	Accepted   bool
	DropReason string
	// Evicted holds an entry pushed out to make room, if any.
	Evicted *Entry
}

// Queue is a bounded priority queue. Urgent entries sort first; among
// non-urgent entries the order is importance tier desc, source priority
// asc, arrival asc. When full, the lowest-priority non-urgent entry is
// dropped first; urgent entries are never dropped.
type Queue struct {
	mu      sync.Mutex
	entries entryHeap
	max     int
	nextSeq uint64

	// notify wakes the scheduler on any enqueue; urgent additionally
	// preempts an in-progress pacing wait.
	notify chan struct{}
	urgent chan struct{}
}

// New builds a queue bounded at max entries.
func New(max int) *Queue {
	return &Queue{
		max:    max,
		notify: make(chan struct{}, 1),
		urgent: make(chan struct{}, 1),
	}
}

// Enqueue admits the entry or reports why it was dropped. The queue never
// exceeds its bound and never evicts an urgent entry.
func (q *Queue) Enqueue(item domain.Item, result domain.ScoreResult, now time.Time) Outcome {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := Entry{Item: item, Result: result, EnqueuedAt: now, seq: q.nextSeq}
	q.nextSeq++

	return q.admit(entry)
}

func (q *Queue) admit(entry Entry) Outcome {
	if q.entries.Len() >= q.max {
		victim := q.lowestNonUrgent()
		if victim < 0 {
			// Backlog is all urgent; urgent entries are never evicted, so
			// everything else bounces, a late urgent newcomer included.
			if !entry.Result.Urgent {
				return Outcome{DropReason: "queue full of urgent entries"}
			}
			return Outcome{DropReason: "queue full"}
		}

		loser := q.entries[victim]
		if !entry.Result.Urgent && !entryLess(&entry, loser) {
			return Outcome{DropReason: "queue full, lower priority than backlog"}
		}

		evicted := *loser
		heap.Remove(&q.entries, victim)
		heap.Push(&q.entries, &entry)
		q.signal(entry.Result.Urgent)
		return Outcome{Accepted: true, Evicted: &evicted}
	}

	heap.Push(&q.entries, &entry)
	q.signal(entry.Result.Urgent)
	return Outcome{Accepted: true}
}

// Pop removes and returns the highest-priority entry.
func (q *Queue) Pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.entries.Len() == 0 {
		return Entry{}, false
	}
	entry := heap.Pop(&q.entries).(*Entry)
	return *entry, true
}

// Requeue returns an entry popped but not published. It keeps its original
// arrival order and competes on priority like any enqueue, so a backlog
// that refilled in the meantime can still reject it with a reason.
func (q *Queue) Requeue(entry Entry) Outcome {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.admit(entry)
}

// Len reports the backlog size.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}

// Notify returns the channel signaled on every accepted enqueue.
func (q *Queue) Notify() <-chan struct{} { return q.notify }

// Urgent returns the channel signaled when an urgent entry arrives.
func (q *Queue) Urgent() <-chan struct{} { return q.urgent }

func (q *Queue) signal(isUrgent bool) {
	select {
	case q.notify <- struct{}{}:
	default:
	}
	if isUrgent {
		select {
		case q.urgent <- struct{}{}:
		default:
		}
	}
}

// lowestNonUrgent returns the index of the worst-ranked non-urgent entry,
// or -1 when the whole backlog is urgent.
func (q *Queue) lowestNonUrgent() int {
	victim := -1
	for i, entry := range q.entries {
		if entry.Result.Urgent {
			continue
		}
		if victim < 0 || entryLess(q.entries[victim], entry) {
			victim = i
		}
	}
	return victim
}

type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool { return entryLess(h[i], h[j]) }

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*Entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// entryLess reports whether a publishes before b.
func entryLess(a, b *Entry) bool {
	if a.Result.Urgent != b.Result.Urgent {
		return a.Result.Urgent
	}
	if ra, rb := a.Result.Tier.Rank(), b.Result.Tier.Rank(); ra != rb {
		return ra > rb
	}
	if a.Item.SourcePriority != b.Item.SourcePriority {
		return a.Item.SourcePriority < b.Item.SourcePriority
	}
	return a.seq < b.seq
}
