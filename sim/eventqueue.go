package sim

import (
	"container/heap"
)

// EventQueue is a queue of in-flight events ordered by delivery time.
type EventQueue interface {
	Push(evt *NetworkEvent)
	Pop() *NetworkEvent
	Len() int
	Peek() *NetworkEvent
}

// EventQueueImpl is a heap-backed event queue. It is not safe for concurrent
// use; the engine guards it with its own lock.
type EventQueueImpl struct {
	events eventHeap
}

// NewEventQueue creates and returns a newly created EventQueue.
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.events = make([]*NetworkEvent, 0)
	heap.Init(&q.events)
	return q
}

// Push adds an event to the event queue.
func (q *EventQueueImpl) Push(evt *NetworkEvent) {
	heap.Push(&q.events, evt)
}

// Pop returns the event with the earliest delivery time.
func (q *EventQueueImpl) Pop() *NetworkEvent {
	return heap.Pop(&q.events).(*NetworkEvent)
}

// Len returns the number of events in the queue.
func (q *EventQueueImpl) Len() int {
	return q.events.Len()
}

// Peek returns the event at the front of the queue without removing it from
// the queue.
func (q *EventQueueImpl) Peek() *NetworkEvent {
	return q.events[0]
}

type eventHeap []*NetworkEvent

// Len returns the length of the event queue.
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event is due before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	return h[i].DeliverAt < h[j].DeliverAt
}

// Swap changes the position of two events in the event queue.
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue.
func (h *eventHeap) Push(x interface{}) {
	event := x.(*NetworkEvent)
	*h = append(*h, event)
}

// Pop removes and returns the next event to deliver.
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	event := old[n-1]
	*h = old[0 : n-1]
	return event
}
