// ABOUTME: Authoritative in-memory ordered event collection with persistence
// ABOUTME: Dispatches reducer actions, saves to local storage, notifies observers
package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/harperreed/weekendly/models"
)

// EventsKey is the fixed namespace under which the event document is stored.
const EventsKey = "events"

// PersistenceError reports a failed local-storage write. The in-memory
// collection keeps the applied change for the rest of the session; it just
// won't survive a restart.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist events: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Observer receives a snapshot of the collection after every applied action.
type Observer func(events []models.Event)

// Store owns the ordered event collection for the session. All mutations
// go through Dispatch; reads return copies.
type Store struct {
	mu        sync.Mutex
	events    []models.Event
	storage   LocalStorage
	observers []Observer
}

// Open rehydrates a Store from local storage. A missing document means a
// fresh, empty collection; unknown JSON fields are ignored and optional
// fields may be absent.
func Open(storage LocalStorage) (*Store, error) {
	doc, ok, err := storage.Get(EventsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	var events []models.Event
	if ok {
		if err := json.Unmarshal([]byte(doc), &events); err != nil {
			return nil, fmt.Errorf("failed to decode events document: %w", err)
		}
	}

	return &Store{events: events, storage: storage}, nil
}

// Subscribe registers an observer called with a snapshot after every
// applied action.
func (s *Store) Subscribe(ob Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, ob)
}

// Events returns a copy of the ordered collection.
func (s *Store) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.events)
}

// Get returns the event with the given id, if present.
func (s *Store) Get(id string) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return models.Event{}, false
}

// Len returns the number of events in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Dispatch applies an action and persists the resulting collection.
// A reducer rejection (e.g. duplicate id on Add) leaves state untouched.
// A persistence failure is returned as *PersistenceError but the in-memory
// change stays applied and observers are still notified.
func (s *Store) Dispatch(action Action) error {
	s.mu.Lock()
	next, err := Reduce(s.events, action)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.events = next

	doc, err := json.Marshal(s.events)
	if err != nil {
		s.mu.Unlock()
		return &PersistenceError{Err: err}
	}

	persistErr := s.storage.Set(EventsKey, string(doc))
	observers := s.observers
	snap := snapshot(s.events)
	s.mu.Unlock()

	for _, ob := range observers {
		ob(snap)
	}

	if persistErr != nil {
		return &PersistenceError{Err: persistErr}
	}
	return nil
}

func snapshot(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	copy(out, events)
	return out
}
