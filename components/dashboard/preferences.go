package dashboard

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryPreferenceStore keeps card overrides per seller in memory.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]LayoutOverrides
}

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]LayoutOverrides),
	}
}

// LayoutOverrides returns stored overrides or defaults.
func (s *InMemoryPreferenceStore) LayoutOverrides(_ context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	key := preferenceKey(viewer)
	if key != "" {
		s.mu.RLock()
		overrides, ok := s.data[key]
		s.mu.RUnlock()
		if ok {
			normalizeOverrides(&overrides)
			if overrides.Locale == "" {
				overrides.Locale = viewer.Locale
			}
			return overrides, nil
		}
	}
	return LayoutOverrides{
		Locale:        viewer.Locale,
		HiddenWidgets: map[string]bool{},
	}, nil
}

// SaveLayoutOverrides persists overrides for a viewer.
func (s *InMemoryPreferenceStore) SaveLayoutOverrides(_ context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	key := preferenceKey(viewer)
	if key == "" {
		return fmt.Errorf("preference store requires a seller or session id")
	}
	normalizeOverrides(&overrides)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = overrides
	return nil
}

// preferenceKey prefers the seller id so overrides survive a new login.
func preferenceKey(viewer ViewerContext) string {
	if viewer.SellerID != "" {
		return "seller:" + viewer.SellerID
	}
	if viewer.SessionID != "" {
		return "session:" + viewer.SessionID
	}
	return ""
}

func normalizeOverrides(overrides *LayoutOverrides) {
	if overrides.HiddenWidgets == nil {
		overrides.HiddenWidgets = map[string]bool{}
	}
	seen := make(map[string]struct{}, len(overrides.CardOrder))
	order := overrides.CardOrder[:0:0]
	for _, code := range overrides.CardOrder {
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		order = append(order, code)
	}
	overrides.CardOrder = order
}
