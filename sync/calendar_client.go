// ABOUTME: Stateless Google Calendar gateway for single-event mutations
// ABOUTME: Translates create/patch/delete calls and provider errors into uniform results
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/harperreed/weekendly/models"
)

// EventFields is the payload for creating a remote calendar event.
type EventFields struct {
	Title    string
	Start    time.Time
	End      time.Time
	Activity models.Activity
}

// EventPatch carries only the fields to change remotely; nil fields are
// left untouched on the remote event.
type EventPatch struct {
	Title    *string
	Start    *time.Time
	End      *time.Time
	Activity *models.Activity
}

// CalendarGateway mirrors single events onto the user's primary calendar.
// Implementations never retry; retry policy belongs to the caller.
type CalendarGateway interface {
	Insert(ctx context.Context, accessToken string, fields EventFields) (remoteID string, err error)
	Patch(ctx context.Context, accessToken, remoteID string, patch EventPatch) error
	Delete(ctx context.Context, accessToken, remoteID string) error
}

// GoogleCalendarGateway implements CalendarGateway against the Google
// Calendar v3 API. It holds no token state: every call builds a service
// from the access token it was handed.
type GoogleCalendarGateway struct{}

func NewGoogleCalendarGateway() *GoogleCalendarGateway {
	return &GoogleCalendarGateway{}
}

func (g *GoogleCalendarGateway) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	service, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}

// Insert creates a remote event and returns its id. A zero end time
// defaults to one hour after the start.
func (g *GoogleCalendarGateway) Insert(ctx context.Context, accessToken string, fields EventFields) (string, error) {
	service, err := g.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	end := fields.End
	if end.IsZero() {
		end = fields.Start.Add(time.Hour)
	}

	event := &calendar.Event{
		Summary:     fields.Title,
		Description: fmt.Sprintf("%s - Added from Weekendly!", fields.Activity),
		Start:       &calendar.EventDateTime{DateTime: fields.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	created, err := service.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError("create", err)
	}
	return created.Id, nil
}

// Patch updates only the supplied fields of the remote event; omitted
// fields are not overwritten.
func (g *GoogleCalendarGateway) Patch(ctx context.Context, accessToken, remoteID string, patch EventPatch) error {
	service, err := g.service(ctx, accessToken)
	if err != nil {
		return err
	}

	event := &calendar.Event{}
	if patch.Title != nil {
		event.Summary = *patch.Title
	}
	if patch.Activity != nil {
		event.Description = fmt.Sprintf("%s - Updated from Weekendly!", *patch.Activity)
	}
	if patch.Start != nil {
		event.Start = &calendar.EventDateTime{DateTime: patch.Start.Format(time.RFC3339)}
	}
	if patch.End != nil {
		event.End = &calendar.EventDateTime{DateTime: patch.End.Format(time.RFC3339)}
	}

	if _, err := service.Events.Patch("primary", remoteID, event).Context(ctx).Do(); err != nil {
		return wrapAPIError("update", err)
	}
	return nil
}

// Delete removes the remote event.
func (g *GoogleCalendarGateway) Delete(ctx context.Context, accessToken, remoteID string) error {
	service, err := g.service(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := service.Events.Delete("primary", remoteID).Context(ctx).Do(); err != nil {
		return wrapAPIError("delete", err)
	}
	return nil
}

// wrapAPIError turns provider errors into human-readable causes.
func wrapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("calendar %s rejected (HTTP %d): %w", op, apiErr.Code, err)
	}
	return fmt.Errorf("calendar %s failed: %w", op, err)
}
