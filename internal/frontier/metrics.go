package frontier

// Metrics holds frontier counters. Values are snapshots; the frontier
// updates its internal copy on every enqueue and dequeue.
type Metrics struct {
	// Enqueued is the total number of requests admitted.
	Enqueued int64
	// Dequeued is the total number of requests handed out.
	Dequeued int64
	// DuplicatesRejected is the number of requests dropped as duplicates.
	DuplicatesRejected int64
	// Rejected is the number of requests dropped because the frontier was full.
	Rejected int64
	// CurrentSize is the number of requests currently queued.
	CurrentSize int64
}
