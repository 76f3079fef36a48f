package crawl

// Queue is a bounded breadth-first queue that never holds a URL twice.
type Queue struct {
	items []string
	seen  map[string]struct{}
	next  int
	limit int
}

// NewQueue returns a Queue accepting at most limit URLs. A limit below 1
// means unbounded.
func NewQueue(limit int) *Queue {
	return &Queue{seen: make(map[string]struct{}), limit: limit}
}

// Add enqueues url unless it was seen before or the queue is full. It
// reports whether url was added.
func (q *Queue) Add(url string) bool {
	if _, ok := q.seen[url]; ok || q.Full() {
		return false
	}
	q.seen[url] = struct{}{}
	q.items = append(q.items, url)
	return true
}

// Full reports whether the limit has been reached.
func (q *Queue) Full() bool {
	return q.limit > 0 && len(q.items) >= q.limit
}

func (q *Queue) HasNext() bool {
	return q.next < len(q.items)
}

// Next returns the oldest unvisited URL.
func (q *Queue) Next() string {
	url := q.items[q.next]
	q.next++
	return url
}

func (q *Queue) Len() int {
	return len(q.items)
}

// All returns every accepted URL in insertion order.
func (q *Queue) All() []string {
	return append([]string(nil), q.items...)
}
