package dialogue

import "sync"

// historyDepth bounds the per-user intent history.
const historyDepth = 5

// History keeps the most recent intent labels per user so follow-up
// utterances (like a bare confirmation number) can be routed to the
// flow the user started.
type History struct {
	mu      sync.Mutex
	recents map[string][]string
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{recents: make(map[string][]string)}
}

// Add appends an intent to the user's history, dropping the oldest
// entry once the bound is reached.
func (h *History) Add(userID, intent string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.recents[userID], intent)
	if len(entries) > historyDepth {
		entries = entries[len(entries)-historyDepth:]
	}
	h.recents[userID] = entries
}

// Recent returns a copy of the user's history, oldest first.
func (h *History) Recent(userID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.recents[userID]
	out := make([]string, len(entries))
	copy(out, entries)
	return out
}

// Contains reports whether the user's history includes the intent.
func (h *History) Contains(userID, intent string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, entry := range h.recents[userID] {
		if entry == intent {
			return true
		}
	}
	return false
}

// Clear drops the user's history.
func (h *History) Clear(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.recents, userID)
}
