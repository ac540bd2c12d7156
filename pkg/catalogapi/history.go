package catalogapi

import (
	"sync"

	"github.com/cuemby/clustermeta/pkg/metadata"
)

// history keeps a bounded ring of recently observed roots so /catalog/diff
// can answer "what changed in the last N applied commands" without needing
// the caller to have captured a prior document itself.
type history struct {
	mu    sync.Mutex
	ring  []metadata.Metadata
	limit int
}

func newHistory(limit int) *history {
	return &history{limit: limit}
}

func (h *history) push(m metadata.Metadata) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring = append(h.ring, m)
	if len(h.ring) > h.limit {
		h.ring = h.ring[len(h.ring)-h.limit:]
	}
}

// lookback returns the root `steps` applications before the most recent one,
// and the most recent root, or ok=false if history doesn't go back that far.
func (h *history) lookback(steps int) (prev, curr metadata.Metadata, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.ring)
	if n == 0 {
		return metadata.Metadata{}, metadata.Metadata{}, false
	}
	currIdx := n - 1
	prevIdx := currIdx - steps
	if prevIdx < 0 {
		return metadata.Metadata{}, metadata.Metadata{}, false
	}
	return h.ring[prevIdx], h.ring[currIdx], true
}
