package frontier

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Frontier is the job-scoped FIFO of URLs waiting to be visited. URLs are
// keyed by their normalized form: once a URL has been enqueued or visited
// it never re-enters, no matter how many pages link to it.
//
// A bloom filter fronts the exact seen-set so the common case (a URL we
// have never touched) skips the map lookup; membership decisions always
// fall through to the map, so false positives cost a lookup but never
// drop a URL.
type Frontier struct {
	mu     sync.Mutex
	queue  []string
	filter *bloom.BloomFilter
	seen   map[string]struct{}
}

// New creates an empty frontier sized for roughly `capacity` URLs.
func New(capacity int) *Frontier {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Frontier{
		filter: bloom.NewWithEstimates(uint(capacity), 0.01),
		seen:   make(map[string]struct{}),
	}
}

// Push enqueues a normalized URL unless it was already queued or visited.
// Returns true if the URL was accepted.
func (f *Frontier) Push(normalizedURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.filter.TestString(normalizedURL) {
		if _, ok := f.seen[normalizedURL]; ok {
			return false
		}
	}
	f.filter.AddString(normalizedURL)
	f.seen[normalizedURL] = struct{}{}
	f.queue = append(f.queue, normalizedURL)
	return true
}

// Pop removes and returns the oldest queued URL, FIFO by discovery order.
func (f *Frontier) Pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", false
	}
	head := f.queue[0]
	f.queue = f.queue[1:]
	return head, true
}

// Seen reports whether a URL was ever queued on this frontier.
func (f *Frontier) Seen(normalizedURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.filter.TestString(normalizedURL) {
		return false
	}
	_, ok := f.seen[normalizedURL]
	return ok
}

// Len returns the number of URLs still waiting.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
