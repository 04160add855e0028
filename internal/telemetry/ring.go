package telemetry

import "github.com/ukydev/aero-console/internal/models"

// ring is a fixed-capacity history buffer. Push evicts the oldest point once
// full.
type ring struct {
	buf   []models.HistoryPoint
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]models.HistoryPoint, capacity)}
}

func (r *ring) push(p models.HistoryPoint) {
	if len(r.buf) == 0 {
		return
	}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = p
		r.n++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) len() int { return r.n }

// slice returns the points oldest first.
func (r *ring) slice() []models.HistoryPoint {
	out := make([]models.HistoryPoint, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
