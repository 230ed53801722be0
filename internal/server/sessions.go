// internal/server/sessions.go
package server

import (
	"errors"
	"sync"
	"time"

	"mcp-simple-bolus/internal/bolus"
)

var ErrSessionNotFound = errors.New("bolus session not found")

// session is one bolus entry screen: a workflow created empty and thrown
// away when the entry is saved or cancelled.
type session struct {
	id       string
	workflow *bolus.Workflow
	created  time.Time
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	closing  sync.WaitGroup
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *sessionRegistry) get(id string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *sessionRegistry) remove(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

func (r *sessionRegistry) removeAll() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	return all
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// release lets a removed session's outstanding donations finish without
// holding up the request that removed it.
func (r *sessionRegistry) release(s *session) {
	r.closing.Add(1)
	go func() {
		defer r.closing.Done()
		s.workflow.Close()
	}()
}

func (r *sessionRegistry) wait() {
	r.closing.Wait()
}
