package tree

import "sync"

// HotSwap is a thread-safe handle to the current tree snapshot. An explicit
// rebuild swaps in a new immutable Tree; readers that already hold a node
// keep serving from the snapshot they resolved it against.
type HotSwap struct {
	mu      sync.RWMutex
	current *Tree
}

func NewHotSwap(initial *Tree) *HotSwap {
	return &HotSwap{current: initial}
}

// Swap atomically replaces the current snapshot.
func (h *HotSwap) Swap(next *Tree) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = next
}

// Current returns the snapshot in service.
func (h *HotSwap) Current() *Tree {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Lookup delegates to the current snapshot.
func (h *HotSwap) Lookup(path string) (*Node, error) {
	return h.Current().Lookup(path)
}

// ListChildren delegates to the current snapshot.
func (h *HotSwap) ListChildren(path string) ([]string, error) {
	return h.Current().ListChildren(path)
}

var (
	_ Index = (*Tree)(nil)
	_ Index = (*HotSwap)(nil)
)
