package queue

type EventKind string

const (
	Enqueued      EventKind = "enqueued"
	StatusChanged EventKind = "status_changed"
	Cleared       EventKind = "cleared"
)

// Event is emitted after every mutation, once the queue lock is released.
type Event struct {
	Kind    EventKind `json:"kind"`
	IDs     []string  `json:"ids,omitempty"`
	Changed int       `json:"changed"`
	Evicted []string  `json:"evicted,omitempty"`
}

// Subscribe registers fn for change notifications. Call the returned func
// to stop receiving them. fn runs on the mutating goroutine and must not
// block.
func (q *Queue) Subscribe(fn func(Event)) func() {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	id := q.nextID
	q.nextID++
	q.subs[id] = fn
	return func() {
		q.subMu.Lock()
		defer q.subMu.Unlock()
		delete(q.subs, id)
	}
}

func (q *Queue) emit(e Event) {
	q.subMu.RLock()
	fns := make([]func(Event), 0, len(q.subs))
	for _, fn := range q.subs {
		fns = append(fns, fn)
	}
	q.subMu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
