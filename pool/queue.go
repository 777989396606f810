package pool

// fifo is an unbounded first-in first-out queue. It is not synchronized; the pool guards it with its mutex.
// Popped slots are zeroed so finished units can be collected.
type fifo[T any] struct {
	buf  []T
	head int
}

func (q *fifo[T]) push(v T) {
	q.buf = append(q.buf, v)
}

func (q *fifo[T]) pop() (T, bool) {
	var zero T
	if q.head == len(q.buf) {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head++

	// compact once the consumed prefix dominates the backing array
	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.buf) {
		n := copy(q.buf, q.buf[q.head:])
		clear(q.buf[n:])
		q.buf = q.buf[:n]
		q.head = 0
	}
	return v, true
}

func (q *fifo[T]) len() int { return len(q.buf) - q.head }
