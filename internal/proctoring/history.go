package proctoring

import "github.com/SAP-F-2025/proctoring-service/internal/models"

// history is a FIFO ring of detections; the oldest entry is evicted first.
type history struct {
	buf   []models.Detection
	start int
	size  int
}

func newHistory(limit int) *history {
	return &history{buf: make([]models.Detection, limit)}
}

func (h *history) push(d models.Detection) {
	if len(h.buf) == 0 {
		return
	}
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = d
		h.size++
		return
	}
	h.buf[h.start] = d
	h.start = (h.start + 1) % len(h.buf)
}

func (h *history) len() int {
	return h.size
}

// items returns the retained detections, oldest first.
func (h *history) items() []models.Detection {
	out := make([]models.Detection, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}
