package telemetry

// ring keeps log entries in arrival order. With capacity 0 it grows without bound,
// otherwise the oldest entry is evicted to make room.
type ring struct {
	buf      []Entry
	start    int
	capacity int
}

func newRing(capacity int) *ring {
	if capacity < 0 {
		capacity = 0
	}
	return &ring{capacity: capacity}
}

func (r *ring) push(e Entry) {
	if r.capacity == 0 || len(r.buf) < r.capacity {
		r.buf = append(r.buf, e)
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % r.capacity
}

func (r *ring) len() int {
	return len(r.buf)
}

// tail returns copies of the last n entries, oldest first. n <= 0 returns all.
func (r *ring) tail(n int) []Entry {
	size := len(r.buf)
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+size-n+i)%size]
	}
	return out
}
