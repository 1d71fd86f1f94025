package epoch

// Window is a half-open interval [OpensAt, ClosesAt) in Unix milliseconds.
// A zero ClosesAt leaves the window open-ended.
type Window struct {
	OpensAt  int64
	ClosesAt int64
}

// NewWindow builds a window starting at start that lasts durationMs. A zero
// duration yields an open-ended window.
func NewWindow(start int64, durationMs uint64) Window {
	w := Window{OpensAt: start}
	if durationMs > 0 {
		w.ClosesAt = start + int64(durationMs)
	}
	return w
}

// Contains reports whether now falls within the window.
func (w Window) Contains(now int64) bool {
	if now < w.OpensAt {
		return false
	}
	if w.ClosesAt == 0 {
		return true
	}
	return now < w.ClosesAt
}
