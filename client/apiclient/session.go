package apiclient

import (
	"sync"
	"time"
)

// Session is an authenticated session: the bearer token sent on every request.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionStore holds the current session.
type SessionStore interface {
	Get() (Session, bool)
	Set(s Session)
	Clear()
}

type MemorySessionStore struct {
	mu      sync.RWMutex
	session *Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return new(MemorySessionStore)
}

func (st *MemorySessionStore) Get() (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.session == nil {
		return Session{}, false
	}
	return *st.session, true
}

func (st *MemorySessionStore) Set(s Session) {
	st.mu.Lock()
	st.session = &s
	st.mu.Unlock()
}

func (st *MemorySessionStore) Clear() {
	st.mu.Lock()
	st.session = nil
	st.mu.Unlock()
}
