package approval

import (
	"sync"

	"github.com/Proton-105/guild-ledger/internal/domain"
)

// logHandoff pairs a pending log post with a resolution that consumed the
// transfer before the post's ref was attached, so the resolution edits the
// original entry instead of posting a second one.
type logHandoff struct {
	mu      sync.Mutex
	posting map[string]struct{}
	// refs posted after their transfer was consumed
	refs map[string]domain.LogRef
	// resolutions waiting for the post to land
	entries map[string]LogEntry
}

func newLogHandoff() *logHandoff {
	return &logHandoff{
		posting: make(map[string]struct{}),
		refs:    make(map[string]domain.LogRef),
		entries: make(map[string]LogEntry),
	}
}

func (h *logHandoff) begin(id string) {
	h.mu.Lock()
	h.posting[id] = struct{}{}
	h.mu.Unlock()
}

// land finishes a post. attach runs under the handoff lock. When a resolution
// already arrived, its entry is returned and must be applied to the post.
func (h *logHandoff) land(id string, posted bool, ref domain.LogRef, attach func() bool) (LogEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.posting, id)
	if entry, ok := h.entries[id]; ok {
		delete(h.entries, id)
		return entry, true
	}
	if posted && !attach() {
		h.refs[id] = ref
	}
	return LogEntry{}, false
}

// claim is called by a resolution whose record carries no ref. It returns the
// late ref if the post already landed, or defers entry to the post in flight.
func (h *logHandoff) claim(id string, entry LogEntry) (ref domain.LogRef, deferred bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ref, ok := h.refs[id]; ok {
		delete(h.refs, id)
		return ref, false
	}
	if _, ok := h.posting[id]; ok {
		h.entries[id] = entry
		return domain.LogRef{}, true
	}
	return domain.LogRef{}, false
}
