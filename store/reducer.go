// ABOUTME: Pure state transitions for the ordered event collection
// ABOUTME: Defines Add/Update/Remove/Reorder actions and the reducer applying them
package store

import (
	"fmt"

	"github.com/harperreed/weekendly/models"
)

// Action is one of the four event-collection transitions.
type Action interface {
	isAction()
}

// Add appends an event to the end of the collection.
// Applying it with an id already present is rejected.
type Add struct {
	Event models.Event
}

// Update replaces the event whose id matches. Unknown ids are a silent
// no-op: re-applying an edit is idempotent.
type Update struct {
	Event models.Event
}

// Remove filters out the event with the given id. Unknown ids are a
// silent no-op.
type Remove struct {
	ID string
}

// Reorder replaces the whole collection with the caller-supplied sequence.
// The sequence is trusted to be a permutation of the current collection;
// it is deliberately not validated (the caller always reorders the full
// displayed list).
type Reorder struct {
	Events []models.Event
}

func (Add) isAction()     {}
func (Update) isAction()  {}
func (Remove) isAction()  {}
func (Reorder) isAction() {}

// Reduce applies one action to the collection and returns the resulting
// collection. The input slice is never mutated.
func Reduce(events []models.Event, action Action) ([]models.Event, error) {
	switch a := action.(type) {
	case Add:
		for _, e := range events {
			if e.ID == a.Event.ID {
				return nil, fmt.Errorf("duplicate event id %s", a.Event.ID)
			}
		}
		next := make([]models.Event, 0, len(events)+1)
		next = append(next, events...)
		next = append(next, a.Event)
		return next, nil

	case Update:
		next := make([]models.Event, len(events))
		for i, e := range events {
			if e.ID == a.Event.ID {
				next[i] = a.Event
			} else {
				next[i] = e
			}
		}
		return next, nil

	case Remove:
		next := make([]models.Event, 0, len(events))
		for _, e := range events {
			if e.ID != a.ID {
				next = append(next, e)
			}
		}
		return next, nil

	case Reorder:
		next := make([]models.Event, len(a.Events))
		copy(next, a.Events)
		return next, nil

	default:
		return nil, fmt.Errorf("unknown action type %T", action)
	}
}
