package rotation

import "sync"

// OverflowQueue buffers photos that were fetched but not yet served, so a
// single over-sized fetch can satisfy several future refreshes without
// contacting the supply source again. FIFO, never blocks, never fails.
//
// The queue is unbounded: with the default batch sizes it holds at most
// FetchBatchSize-1 photos after any refresh that fetched, but a batch size
// misconfigured far above the window size would let it grow across refreshes.
type OverflowQueue struct {
	mu     sync.Mutex
	photos []Photo
}

// NewOverflowQueue creates an empty overflow queue.
func NewOverflowQueue() *OverflowQueue {
	return &OverflowQueue{}
}

// EnqueueMany appends photos at the tail, preserving their order.
func (q *OverflowQueue) EnqueueMany(photos []Photo) {
	if len(photos) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.photos = append(q.photos, photos...)
}

// DequeueUpTo removes and returns up to n photos from the head, fewer if the
// queue holds fewer. The returned slice is owned by the caller.
func (q *OverflowQueue) DequeueUpTo(n int) []Photo {
	if n <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.photos) {
		n = len(q.photos)
	}
	if n == 0 {
		return nil
	}

	taken := make([]Photo, n)
	copy(taken, q.photos[:n])
	q.photos = append(q.photos[:0:0], q.photos[n:]...)
	return taken
}

// requeueFront puts previously dequeued photos back at the head in their
// original order. Used to roll the queue back when a refresh aborts.
func (q *OverflowQueue) requeueFront(photos []Photo) {
	if len(photos) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.photos = append(append([]Photo{}, photos...), q.photos...)
}

// Len returns the number of queued photos.
func (q *OverflowQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.photos)
}
