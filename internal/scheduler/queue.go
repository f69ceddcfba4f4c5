package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/mission-control/mdc/internal/message"
)

// ErrQueueFull is returned when the queue is at capacity and the arrival
// cannot displace any resident.
var ErrQueueFull = errors.New("scheduler: queue full")

// DefaultCapacity bounds the queue when no explicit capacity is configured.
const DefaultCapacity = 1000

type item struct {
	msg *message.Message
	seq uint64
	idx int
}

// msgHeap orders items by priority descending, then arrival sequence
// ascending. seq breaks ties so same-tier traffic stays FIFO even though the
// heap itself is not stable.
type msgHeap []*item

func (h msgHeap) Len() int { return len(h) }

func (h msgHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority > h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}

func (h msgHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].idx = i
	h[j].idx = j
}

func (h *msgHeap) Push(x any) {
	it := x.(*item)
	it.idx = len(*h)
	*h = append(*h, it)
}

func (h *msgHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.idx = -1
	*h = old[:n-1]
	return it
}

// Stats is a point-in-time snapshot of queue occupancy.
type Stats struct {
	Len         int
	Capacity    int
	Utilization float64
	PerTier     map[message.Priority]int
}

// Queue is a bounded, concurrency-safe priority queue. Multiple producers may
// enqueue; the dispatch loop is the single logical consumer.
type Queue struct {
	mu       sync.Mutex
	heap     msgHeap
	capacity int
	evict    bool
	seq      uint64
}

// New builds a queue with the given capacity. evictOnOverflow enables
// displacement of lower-priority residents when the queue is full.
func New(capacity int, evictOnOverflow bool) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		heap:     make(msgHeap, 0, capacity),
		capacity: capacity,
		evict:    evictOnOverflow,
	}
}

// Enqueue admits msg. When the queue is full and eviction is enabled, the
// lowest-priority, oldest resident with priority strictly below msg's is
// removed and returned so the caller can surface the drop. Returns
// ErrQueueFull when nothing can be displaced.
func (q *Queue) Enqueue(msg *message.Message) (evicted *message.Message, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) >= q.capacity {
		if !q.evict {
			return nil, ErrQueueFull
		}
		victim := q.lowestOldest()
		if victim == nil || victim.msg.Priority >= msg.Priority {
			return nil, ErrQueueFull
		}
		heap.Remove(&q.heap, victim.idx)
		evicted = victim.msg
	}

	q.seq++
	heap.Push(&q.heap, &item{msg: msg, seq: q.seq})
	return evicted, nil
}

// Dequeue removes and returns the most urgent message, or false when empty.
func (q *Queue) Dequeue() (*message.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil, false
	}
	it := heap.Pop(&q.heap).(*item)
	return it.msg, true
}

// Peek returns the most urgent message without removing it.
func (q *Queue) Peek() (*message.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil, false
	}
	return q.heap[0].msg, true
}

// Len returns current occupancy.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Capacity returns the fixed bound set at construction.
func (q *Queue) Capacity() int { return q.capacity }

// IsFull reports whether occupancy has reached capacity.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap) >= q.capacity
}

// ExpireBefore removes every resident whose TTL has elapsed at now and
// returns them for drop accounting.
func (q *Queue) ExpireBefore(now time.Time) []*message.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	var expired []*message.Message
	kept := q.heap[:0]
	for _, it := range q.heap {
		if it.msg.Expired(now) {
			expired = append(expired, it.msg)
			continue
		}
		kept = append(kept, it)
	}
	if len(expired) == 0 {
		return nil
	}
	for i := len(kept); i < len(q.heap); i++ {
		q.heap[i] = nil
	}
	q.heap = kept
	for i, it := range q.heap {
		it.idx = i
	}
	heap.Init(&q.heap)
	return expired
}

// Stats snapshots per-tier occupancy and utilization.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	per := make(map[message.Priority]int, 5)
	for _, it := range q.heap {
		per[it.msg.Priority]++
	}
	return Stats{
		Len:         len(q.heap),
		Capacity:    q.capacity,
		Utilization: float64(len(q.heap)) / float64(q.capacity),
		PerTier:     per,
	}
}

// lowestOldest finds the resident with the lowest priority, breaking ties
// toward the earliest arrival. Linear scan; eviction only happens on an
// already-full queue so the cost is bounded by capacity.
func (q *Queue) lowestOldest() *item {
	var victim *item
	for _, it := range q.heap {
		if victim == nil ||
			it.msg.Priority < victim.msg.Priority ||
			(it.msg.Priority == victim.msg.Priority && it.seq < victim.seq) {
			victim = it
		}
	}
	return victim
}
