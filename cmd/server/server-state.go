package main

import (
	"fmt"
	"sync"

	"github.com/matst80/authconn/internal/obs"
)

type serverState struct {
	mu         sync.Mutex
	sessions   map[string]*session // id -> session
	closing    bool
	ready      bool
	accepted   int64
	authOK     int64
	authFailed int64
}

func newServerState() *serverState {
	return &serverState{sessions: make(map[string]*session)}
}

var _ SessionStore = (*serverState)(nil)

func (s *serverState) setClosing(closing bool) { s.mu.Lock(); s.closing = closing; s.mu.Unlock() }
func (s *serverState) setReady(ready bool)     { s.mu.Lock(); s.ready = ready; s.mu.Unlock() }
func (s *serverState) isClosing() bool         { s.mu.Lock(); defer s.mu.Unlock(); return s.closing }
func (s *serverState) isReady() bool           { s.mu.Lock(); defer s.mu.Unlock(); return s.ready }

func (s *serverState) addSession(sess *session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.id]; exists {
		return fmt.Errorf("session already registered: %s", sess.id)
	}
	s.sessions[sess.id] = sess
	obs.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

func (s *serverState) getSession(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *serverState) removeSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	obs.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
}

func (s *serverState) activeHosts() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hosts := make(map[string]bool, len(s.sessions))
	for _, sess := range s.sessions {
		hosts[sess.remote] = true
	}
	return hosts
}

// closeAll closes every session connection; handlers remove their own entries.
func (s *serverState) closeAll() int {
	s.mu.Lock()
	conns := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		conns = append(conns, sess)
	}
	s.mu.Unlock()
	for _, sess := range conns {
		_ = sess.conn.Close()
	}
	return len(conns)
}

func (s *serverState) recordAccepted() {
	s.mu.Lock()
	s.accepted++
	s.mu.Unlock()
}

func (s *serverState) recordAuth(ok bool) {
	s.mu.Lock()
	if ok {
		s.authOK++
	} else {
		s.authFailed++
	}
	s.mu.Unlock()
}

func (s *serverState) getStats() (int, int64, int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions), s.accepted, s.authOK, s.authFailed
}
