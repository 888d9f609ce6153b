// Package crawl expands the INSPIRE citation graph from a set of root
// records into a local collection.
package crawl

// Frontier is a FIFO queue of record ids awaiting expansion.
//
// An id is queued at most once at a time, and an id already popped in the
// current run is never queued again, so a crawl over a cyclic graph drains.
type Frontier struct {
	queue  []string
	queued map[string]struct{}
	popped map[string]struct{}
}

// NewFrontier returns a frontier seeded with ids, deduplicated in order.
func NewFrontier(ids ...string) *Frontier {
	f := &Frontier{
		queued: make(map[string]struct{}, len(ids)),
		popped: make(map[string]struct{}),
	}
	for _, id := range ids {
		f.Push(id)
	}
	return f
}

// Push appends id unless it is queued or was already popped. It reports
// whether id was added.
func (f *Frontier) Push(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := f.queued[id]; ok {
		return false
	}
	if _, ok := f.popped[id]; ok {
		return false
	}
	f.queue = append(f.queue, id)
	f.queued[id] = struct{}{}
	return true
}

// PushAll pushes every id and returns how many were added.
func (f *Frontier) PushAll(ids []string) int {
	n := 0
	for _, id := range ids {
		if f.Push(id) {
			n++
		}
	}
	return n
}

// Pop removes and returns the head of the queue.
func (f *Frontier) Pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	id := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.queued, id)
	f.popped[id] = struct{}{}
	return id, true
}

// PopN removes and returns up to n ids from the head of the queue.
func (f *Frontier) PopN(n int) []string {
	n = min(n, len(f.queue))
	if n <= 0 {
		return nil
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i], _ = f.Pop()
	}
	return ids
}

// Contains reports whether id is currently queued.
func (f *Frontier) Contains(id string) bool {
	_, ok := f.queued[id]
	return ok
}

// Len returns the number of queued ids.
func (f *Frontier) Len() int {
	return len(f.queue)
}
