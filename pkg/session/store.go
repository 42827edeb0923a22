// Package session maps opaque session identifiers to materialized event
// logs. Ingestion writes each log exactly once under a fresh id; analysis
// endpoints only read. The store is injectable so the engine's pure
// functions stay testable without ambient state.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/caseflow/caseflow/internal/model"
	cferrors "github.com/caseflow/caseflow/pkg/errors"
)

// Store is an insert-once key-value registry of event logs. Put never
// overwrites an existing id; Get on an unknown id reports session-not-found.
type Store interface {
	Put(id string, log *model.EventLog) error
	Get(id string) (*model.EventLog, error)
	Delete(id string)
	Count() int
}

// MemoryStore is the in-process registry of record. A single mutex guards
// the map; stored logs are never mutated after insertion, so readers need
// no further synchronization.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string]*model.EventLog
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string]*model.EventLog)}
}

// Put stores a log under id. Inserting an id twice is an error; concurrent
// ingestions always use fresh ids, so a duplicate means a caller bug.
func (s *MemoryStore) Put(id string, log *model.EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.logs[id]; exists {
		return cferrors.New(cferrors.CodeSessionDuplicate, "session id already registered").
			WithContext("session_id", id)
	}
	s.logs[id] = log
	return nil
}

// Get retrieves the log registered under id.
func (s *MemoryStore) Get(id string) (*model.EventLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.logs[id]
	if !ok {
		return nil, cferrors.SessionNotFound(id)
	}
	return log, nil
}

// Delete evicts a session. Unknown ids are a no-op.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, id)
}

// Count returns the number of registered sessions.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}

// Register stores the log under a freshly generated session id and returns
// the id. Collision probability is negligible (UUID v4), and Put still
// refuses overwrites should one ever occur.
func Register(store Store, log *model.EventLog) (string, error) {
	id := uuid.NewString()
	if err := store.Put(id, log); err != nil {
		return "", err
	}
	return id, nil
}
