package provider

import "sync"

// pendingEntry is an alert waiting for responder dispatch.
type pendingEntry struct {
	id      CompositeID
	manager Manager
}

// pendingQueue is an insertion-ordered map of identities awaiting responders.
// Re-enqueueing an identity keeps its first position and refreshes the manager.
type pendingQueue struct {
	mu      sync.Mutex
	order   []string
	entries map[string]pendingEntry
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{
		entries: make(map[string]pendingEntry),
	}
}

func (q *pendingQueue) put(id CompositeID, mgr Manager) {
	key := Encode(id)

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.entries[key]; !exists {
		q.order = append(q.order, key)
	}

	q.entries[key] = pendingEntry{id: id, manager: mgr}
}

// drain returns all entries in insertion order and empties the queue.
func (q *pendingQueue) drain() []pendingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return nil
	}

	result := make([]pendingEntry, 0, len(q.order))
	for _, key := range q.order {
		result = append(result, q.entries[key])
	}

	q.order = nil
	q.entries = make(map[string]pendingEntry)

	return result
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.order)
}
