// ABOUTME: Orchestrates local event mutations with best-effort remote mirroring
// ABOUTME: Remote failures are reported, never block or corrupt the local store
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/harperreed/weekendly/models"
	"github.com/harperreed/weekendly/store"
)

// Outcome is the terminal result of one user action.
type Outcome string

const (
	// OutcomeLocalSuccess: applied locally; no remote call was attempted.
	OutcomeLocalSuccess Outcome = "local_success"
	// OutcomeRemoteConfirmed: applied locally and mirrored remotely.
	OutcomeRemoteConfirmed Outcome = "remote_confirmed"
	// OutcomeRemoteFailedLocalApplied: the remote call failed but the
	// local change landed anyway.
	OutcomeRemoteFailedLocalApplied Outcome = "remote_failed_local_applied"
)

// Coordinator runs each user intent through the same pipeline: validate,
// fetch a usable token, attempt the remote mirror, apply the local change,
// report. The local store update is the only guaranteed effect.
type Coordinator struct {
	store    *store.Store
	tokens   *TokenManager
	gateway  CalendarGateway
	notifier Notifier
}

func NewCoordinator(st *store.Store, tokens *TokenManager, gateway CalendarGateway, notifier Notifier) *Coordinator {
	return &Coordinator{
		store:    st,
		tokens:   tokens,
		gateway:  gateway,
		notifier: notifier,
	}
}

// AddEvent validates the draft, mirrors it remotely when possible, and
// appends it to the store. The remote id must be known before insertion,
// so this is the one flow where the remote call precedes the local apply.
func (c *Coordinator) AddEvent(ctx context.Context, draft models.Draft) (models.Event, Outcome, error) {
	if err := draft.Validate(); err != nil {
		return models.Event{}, "", err
	}

	event := models.NewEvent(draft)
	outcome := OutcomeLocalSuccess

	if token, err := c.tokens.UsableToken(ctx); err == nil {
		remoteID, rerr := c.gateway.Insert(ctx, token, EventFields{
			Title:    event.Title,
			Start:    event.Start,
			End:      event.End,
			Activity: event.Activity,
		})
		if rerr != nil {
			outcome = OutcomeRemoteFailedLocalApplied
			c.notifier.Notify(SeverityError, fmt.Sprintf("Failed to add event to Google Calendar: %v", rerr))
		} else {
			event.RemoteID = remoteID
			outcome = OutcomeRemoteConfirmed
		}
	}

	if err := c.store.Dispatch(store.Add{Event: event}); err != nil {
		var perr *store.PersistenceError
		if errors.As(err, &perr) {
			c.notifier.Notify(SeverityError, "Event added but could not be saved to disk; it will not survive a restart")
			return event, outcome, err
		}
		return models.Event{}, "", err
	}

	c.notifier.Notify(SeveritySuccess, "Event added successfully!")
	return event, outcome, nil
}

// UpdateEvent replaces the event's fields. The remote patch is attempted
// only when the event already has a remote mirror and a token is usable;
// the local edit always lands.
func (c *Coordinator) UpdateEvent(ctx context.Context, id string, draft models.Draft) (models.Event, Outcome, error) {
	if err := draft.Validate(); err != nil {
		return models.Event{}, "", err
	}

	current, exists := c.store.Get(id)
	outcome := OutcomeLocalSuccess

	if exists && current.RemoteID != "" {
		if token, err := c.tokens.UsableToken(ctx); err == nil {
			title := draft.Title
			start := draft.Start.UTC()
			end := draft.End.UTC()
			activity := draft.Activity
			rerr := c.gateway.Patch(ctx, token, current.RemoteID, EventPatch{
				Title:    &title,
				Start:    &start,
				End:      &end,
				Activity: &activity,
			})
			if rerr != nil {
				outcome = OutcomeRemoteFailedLocalApplied
				c.notifier.Notify(SeverityError, fmt.Sprintf("Failed to update event in Google Calendar: %v", rerr))
			} else {
				outcome = OutcomeRemoteConfirmed
			}
		}
	}

	updated := models.Event{
		ID:       id,
		Title:    draft.Title,
		Start:    draft.Start.UTC(),
		End:      draft.End.UTC(),
		Activity: draft.Activity,
		Mood:     draft.Mood,
		Theme:    draft.Theme,
		RemoteID: current.RemoteID,
	}

	// The event may have been removed while the remote call was in
	// flight; a late result against a missing id is discarded silently.
	_, stillExists := c.store.Get(id)
	if stillExists || !exists {
		if err := c.store.Dispatch(store.Update{Event: updated}); err != nil {
			var perr *store.PersistenceError
			if errors.As(err, &perr) {
				c.notifier.Notify(SeverityError, "Event updated but could not be saved to disk; the edit will not survive a restart")
				return updated, outcome, err
			}
			return models.Event{}, "", err
		}
	}

	c.notifier.Notify(SeveritySuccess, "Event updated successfully!")
	return updated, outcome, nil
}

// RemoveEvent deletes the event locally no matter what. When the event
// has a remote mirror and a token is usable, exactly one remote delete is
// attempted first; a failure leaves an orphaned remote entry, which is
// accepted and logged.
func (c *Coordinator) RemoveEvent(ctx context.Context, id string) (Outcome, error) {
	outcome := OutcomeLocalSuccess

	if event, ok := c.store.Get(id); ok && event.RemoteID != "" {
		if token, err := c.tokens.UsableToken(ctx); err == nil {
			if rerr := c.gateway.Delete(ctx, token, event.RemoteID); rerr != nil {
				outcome = OutcomeRemoteFailedLocalApplied
				log.Printf("remote event %s orphaned: %v", event.RemoteID, rerr)
				c.notifier.Notify(SeverityError, fmt.Sprintf("Failed to delete event from Google Calendar: %v", rerr))
			} else {
				outcome = OutcomeRemoteConfirmed
			}
		}
	}

	if err := c.store.Dispatch(store.Remove{ID: id}); err != nil {
		var perr *store.PersistenceError
		if errors.As(err, &perr) {
			c.notifier.Notify(SeverityError, "Event removed but the change could not be saved to disk")
			return outcome, err
		}
		return "", err
	}

	c.notifier.Notify(SeveritySuccess, "Event removed successfully!")
	return outcome, nil
}

// ReorderEvents replaces the collection order. Ordering is a local
// presentation concern and is never mirrored to the remote calendar.
func (c *Coordinator) ReorderEvents(ctx context.Context, events []models.Event) (Outcome, error) {
	if err := c.store.Dispatch(store.Reorder{Events: events}); err != nil {
		var perr *store.PersistenceError
		if errors.As(err, &perr) {
			c.notifier.Notify(SeverityError, "Event order changed but could not be saved to disk")
			return OutcomeLocalSuccess, err
		}
		return "", err
	}

	c.notifier.Notify(SeveritySuccess, "Event order updated")
	return OutcomeLocalSuccess, nil
}
