// ABOUTME: Data models for weekend planning events
// ABOUTME: Defines Event, activity/mood/theme enumerations, and draft validation
package models

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Activity is the closed set of plannable weekend activities.
type Activity string

const (
	ActivityHiking  Activity = "HIKING_EVENT"
	ActivityBrunch  Activity = "BRUNCH_EVENT"
	ActivityMovie   Activity = "MOVIE_EVENT"
	ActivityFight   Activity = "FIGHT_EVENT"
	ActivityReading Activity = "READING_EVENT"
)

// ActivityEmojis maps each activity to its display emoji.
var ActivityEmojis = map[Activity]string{
	ActivityHiking:  "⛰️",
	ActivityBrunch:  "🥞",
	ActivityMovie:   "🎬",
	ActivityFight:   "🥊",
	ActivityReading: "📖",
}

// Activities lists every valid activity value.
var Activities = []Activity{
	ActivityHiking,
	ActivityBrunch,
	ActivityMovie,
	ActivityFight,
	ActivityReading,
}

// Valid reports whether the activity is a member of the closed set.
func (a Activity) Valid() bool {
	_, ok := ActivityEmojis[a]
	return ok
}

// Label returns a short human-readable name, e.g. "HIKING".
func (a Activity) Label() string {
	name, _, _ := strings.Cut(string(a), "_")
	return name
}

// Mood is an optional tag describing how the user expects to feel.
type Mood string

const (
	MoodHappy     Mood = "HAPPY"
	MoodRelaxed   Mood = "RELAXED"
	MoodEnergetic Mood = "ENERGETIC"
)

func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodRelaxed, MoodEnergetic:
		return true
	}
	return false
}

// Theme is an optional tag classifying the whole weekend.
type Theme string

const (
	ThemeLazy        Theme = "LAZY_WEEKEND"
	ThemeAdventurous Theme = "ADVENTUROUS_WEEKEND"
	ThemeFamily      Theme = "FAMILY_WEEKEND"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeLazy, ThemeAdventurous, ThemeFamily:
		return true
	}
	return false
}

// Event is one planned activity. JSON field names match the persisted
// document format: "date" is the start instant and "eventId" is the id of
// the mirrored remote-calendar entry (absent for local-only events).
type Event struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"date"`
	End      time.Time `json:"end"`
	Activity Activity  `json:"activity"`
	Mood     Mood      `json:"mood,omitempty"`
	Theme    Theme     `json:"theme,omitempty"`
	RemoteID string    `json:"eventId,omitempty"`
}

// Draft is unvalidated user input for a new or edited event.
type Draft struct {
	Title    string    `json:"title"`
	Start    time.Time `json:"date"`
	End      time.Time `json:"end"`
	Activity Activity  `json:"activity"`
	Mood     Mood      `json:"mood,omitempty"`
	Theme    Theme     `json:"theme,omitempty"`
}

// ValidationError reports bad user input. It blocks the action entirely;
// no local or remote state changes when validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the draft against the event invariants.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if d.Start.IsZero() || d.End.IsZero() {
		return &ValidationError{Field: "time", Reason: "start and end are required"}
	}
	if !d.Start.Before(d.End) {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	if !d.Activity.Valid() {
		return &ValidationError{Field: "activity", Reason: fmt.Sprintf("unknown activity %q", d.Activity)}
	}
	if d.Mood != "" && !d.Mood.Valid() {
		return &ValidationError{Field: "mood", Reason: fmt.Sprintf("unknown mood %q", d.Mood)}
	}
	if d.Theme != "" && !d.Theme.Valid() {
		return &ValidationError{Field: "theme", Reason: fmt.Sprintf("unknown theme %q", d.Theme)}
	}
	return nil
}

// NewEvent materializes a validated draft into an Event with a fresh id.
// Times are normalized to UTC so the persisted form is timezone-stable.
func NewEvent(d Draft) Event {
	return Event{
		ID:       NewEventID(),
		Title:    d.Title,
		Start:    d.Start.UTC(),
		End:      d.End.UTC(),
		Activity: d.Activity,
		Mood:     d.Mood,
		Theme:    d.Theme,
	}
}

// NewEventID generates a ULID: timestamp-ordered, unique, never reused.
func NewEventID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
