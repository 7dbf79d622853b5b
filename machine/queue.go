package machine

// Queue is the planner's doubly-linked circular buffer of fixed capacity,
// addressed by index rather than pointer (see Buffer.Next/Prev). Three
// cursors track producer/consumer progress: write (next slot to hand out),
// queue (next slot to mark QUEUED), and read (current or next running
// slot). All between read (exclusive) and write (exclusive) are QUEUED or
// PENDING; at most one buffer is RUNNING.
type Queue struct {
	buffers []Buffer
	write   uint8
	queue   uint8
	read    uint8
	count   uint8 // buffers not in EMPTY state
}

// NewQueue allocates a ring of n buffers (design target 8-32) and wires up
// the next/prev index links.
func NewQueue(n int) *Queue {
	if n < 2 {
		n = 2
	}
	q := &Queue{buffers: make([]Buffer, n)}
	for i := range q.buffers {
		q.buffers[i].Index = uint8(i)
		q.buffers[i].Next = uint8((i + 1) % n)
		q.buffers[i].Prev = uint8((i - 1 + n) % n)
	}
	return q
}

// Len returns the ring capacity N.
func (q *Queue) Len() int { return len(q.buffers) }

// At returns a pointer to the buffer at index i.
func (q *Queue) At(i uint8) *Buffer { return &q.buffers[i] }

// Next returns the ring-index following i.
func (q *Queue) Next(i uint8) uint8 { return q.buffers[i].Next }

// Prev returns the ring-index preceding i.
func (q *Queue) Prev(i uint8) uint8 { return q.buffers[i].Prev }

// Count returns the number of buffers currently not EMPTY.
func (q *Queue) Count() int { return int(q.count) }

// Free returns the number of EMPTY slots available for allocation.
func (q *Queue) Free() int { return len(q.buffers) - int(q.count) }

// LastQueued returns the most recently committed buffer (the one
// immediately behind the write cursor), or nil if the queue is empty.
// Used by junction-velocity computation, which needs "the previous move".
func (q *Queue) LastQueued() *Buffer {
	if q.count == 0 {
		return nil
	}
	return &q.buffers[q.Prev(q.write)]
}

// AllocateBuffer hands out the next EMPTY slot in state LOADING, or
// (nil, false) if the ring is full.
func (q *Queue) AllocateBuffer() (*Buffer, bool) {
	if int(q.count) >= len(q.buffers) {
		return nil, false
	}
	buf := &q.buffers[q.write]
	buf.reset()
	buf.State = Loading
	return buf, true
}

// Commit transitions a LOADING buffer to QUEUED and advances the write
// cursor. buf must be the buffer most recently returned by
// AllocateBuffer.
func (q *Queue) Commit(buf *Buffer) {
	buf.State = Queued
	q.write = q.Next(q.write)
	q.queue = q.write
	q.count++
}

// NextRunnable returns the buffer the dispatcher should bind next: the
// buffer at the read cursor if it is QUEUED or PENDING, else nil. It does
// not advance any cursor.
func (q *Queue) NextRunnable() *Buffer {
	if q.count == 0 {
		return nil
	}
	buf := &q.buffers[q.read]
	if buf.State == Queued || buf.State == Pending {
		return buf
	}
	return nil
}

// BeginRunning marks buf RUNNING. buf must be the buffer returned by
// NextRunnable.
func (q *Queue) BeginRunning(buf *Buffer) {
	buf.State = Running
}

// Complete frees the buffer at the read cursor and advances read. Call
// once a RUNNING buffer has been fully consumed by the segment generator.
func (q *Queue) Complete() {
	if q.count == 0 {
		return
	}
	buf := &q.buffers[q.read]
	buf.State = Empty
	q.read = q.Next(q.read)
	q.count--
}

// Busy reports whether any buffer is outside the EMPTY state.
func (q *Queue) Busy() bool {
	return q.count > 0
}

// WalkReplannableTail calls fn for each buffer starting at from and
// walking Prev while the visited buffer is Replannable, stopping (without
// visiting) at the first non-replannable buffer or after a full
// revolution. fn returning false stops the walk early.
func (q *Queue) WalkReplannableTail(from uint8, fn func(buf *Buffer) bool) {
	i := from
	for n := 0; n < len(q.buffers); n++ {
		buf := &q.buffers[i]
		if buf.State == Empty || !buf.Replannable {
			return
		}
		if !fn(buf) {
			return
		}
		i = q.Prev(i)
	}
}

// Reset returns the queue to its freshly-initialized state (kill()).
func (q *Queue) Reset() {
	n := len(q.buffers)
	for i := range q.buffers {
		q.buffers[i] = Buffer{
			Index: uint8(i),
			Next:  uint8((i + 1) % n),
			Prev:  uint8((i - 1 + n) % n),
		}
	}
	q.write, q.queue, q.read, q.count = 0, 0, 0, 0
}
