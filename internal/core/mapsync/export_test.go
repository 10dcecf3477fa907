package mapsync

import "time"

// SetClock replaces the store's time source.
func (st *SessionStore) SetClock(now func() time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.now = now
}
