package sockline

// outboundQueue is the bounded FIFO of not-yet-transmitted payloads.
// It is touched only from the client's event loop and needs no lock.
type outboundQueue struct {
	entries  [][]byte
	max      int
	policy   DropPolicy
	dropped  uint64
	flushing bool
}

func newOutboundQueue(max int, policy DropPolicy) *outboundQueue {
	return &outboundQueue{max: max, policy: policy}
}

// Enqueue appends payload, applying the drop policy at capacity. It
// reports whether the payload was admitted; a false return means the
// incoming payload itself was dropped (DropNewest).
func (queue *outboundQueue) Enqueue(payload []byte) bool {
	if len(queue.entries) < queue.max {
		queue.entries = append(queue.entries, payload)
		return true
	}

	queue.dropped++
	if queue.policy == DropNewest {
		return false
	}
	copy(queue.entries, queue.entries[1:])
	queue.entries[len(queue.entries)-1] = payload
	return true
}

// Dequeue removes and returns the head of the queue.
func (queue *outboundQueue) Dequeue() ([]byte, bool) {
	if len(queue.entries) == 0 {
		return nil, false
	}
	payload := queue.entries[0]
	queue.entries[0] = nil
	queue.entries = queue.entries[1:]
	return payload, true
}

// Requeue puts payload back at the head after a failed or deferred
// transmit, preserving FIFO order. It never drops: the payload was
// already accepted, and a requeue directly follows its dequeue.
func (queue *outboundQueue) Requeue(payload []byte) {
	queue.entries = append([][]byte{payload}, queue.entries...)
}

// Len returns the number of queued payloads.
func (queue *outboundQueue) Len() int { return len(queue.entries) }

// Dropped returns the count of payloads discarded by the drop policy.
func (queue *outboundQueue) Dropped() uint64 { return queue.dropped }
