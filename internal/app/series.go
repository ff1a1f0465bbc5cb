package app

// Series is a circular buffer of recent channel values for sparklines.
type Series struct {
	buf   []float64
	pos   int
	count int
}

// NewSeries creates a new circular buffer with the given capacity.
func NewSeries(capacity int) *Series {
	return &Series{
		buf: make([]float64, max(capacity, 1)),
	}
}

// Push adds a value, overwriting the oldest once full.
func (r *Series) Push(val float64) {
	r.buf[r.pos] = val
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns all stored values in chronological order.
func (r *Series) Values() []float64 {
	if r.count == 0 {
		return nil
	}
	result := make([]float64, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Last returns the most recent value, or 0 if empty.
func (r *Series) Last() float64 {
	if r.count == 0 {
		return 0
	}
	return r.buf[(r.pos-1+len(r.buf))%len(r.buf)]
}

// Len returns the number of stored values.
func (r *Series) Len() int {
	return r.count
}
