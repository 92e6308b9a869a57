package session

import (
	"sync"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
)

// Holder is the only writer of one session's state.
type Holder struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewHolder(snap Snapshot) *Holder {
	return &Holder{snap: snap}
}

func (h *Holder) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

// Current reports whether version is still the latest one.
func (h *Holder) Current(version uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap.Version == version
}

func (h *Holder) SetTokens(access, refresh string) Snapshot {
	return h.update(func(s *Snapshot) {
		s.AccessToken = access
		if refresh != "" {
			s.RefreshToken = refresh
		}
	})
}

// SwitchDivision selects a division. An empty id clears the selection.
func (h *Holder) SwitchDivision(d domain.Division) Snapshot {
	return h.update(func(s *Snapshot) {
		s.DivisionID = d.ID
		s.DivisionName = d.Name
		if d.ID == "" {
			s.DivisionName = ""
		}
	})
}

// Clear drops tokens and division, keeping the id so the version keeps growing.
func (h *Holder) Clear() Snapshot {
	return h.update(func(s *Snapshot) {
		*s = Snapshot{ID: s.ID, Version: s.Version}
	})
}

func (h *Holder) update(fn func(*Snapshot)) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.snap)
	h.snap.Version++
	return h.snap
}
