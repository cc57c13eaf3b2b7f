// ABOUTME: Event CLI commands for the weekend planner
// ABOUTME: Human-friendly add/list/update/remove/reorder over the sync coordinator
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/weekendly/models"
	"github.com/harperreed/weekendly/store"
	"github.com/harperreed/weekendly/sync"
)

// parseDraft builds a Draft from date/time flag values. The date is
// YYYY-MM-DD; start/end are HH:MM in local time.
func parseDraft(title, date, start, end, activity, mood, theme string) (models.Draft, error) {
	startAt, err := time.ParseInLocation("2006-01-02 15:04", date+" "+start, time.Local)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to parse start time: %w", err)
	}
	endAt, err := time.ParseInLocation("2006-01-02 15:04", date+" "+end, time.Local)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to parse end time: %w", err)
	}

	return models.Draft{
		Title:    title,
		Start:    startAt,
		End:      endAt,
		Activity: models.Activity(activity),
		Mood:     models.Mood(mood),
		Theme:    models.Theme(theme),
	}, nil
}

// AddEventCommand plans a new event.
func AddEventCommand(coordinator *sync.Coordinator, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	title := fs.String("title", "", "Event title (required)")
	date := fs.String("date", "", "Event date, YYYY-MM-DD (required)")
	start := fs.String("start", "", "Start time, HH:MM (required)")
	end := fs.String("end", "", "End time, HH:MM (required)")
	activity := fs.String("activity", "", activityUsage())
	mood := fs.String("mood", "", "Optional mood: HAPPY, RELAXED, ENERGETIC")
	theme := fs.String("theme", "", "Optional theme: LAZY_WEEKEND, ADVENTUROUS_WEEKEND, FAMILY_WEEKEND")
	_ = fs.Parse(args)

	draft, err := parseDraft(*title, *date, *start, *end, *activity, *mood, *theme)
	if err != nil {
		return err
	}

	event, outcome, err := coordinator.AddEvent(context.Background(), draft)
	if err != nil {
		return err
	}

	fmt.Printf("Added event %s (%s)\n", event.ID, event.Title)
	if outcome == sync.OutcomeRemoteConfirmed {
		fmt.Printf("Mirrored to Google Calendar as %s\n", event.RemoteID)
	}
	return nil
}

// ListEventsCommand prints the planned events in their stored order.
func ListEventsCommand(st *store.Store, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	_ = fs.Parse(args)

	events := st.Events()
	if len(events) == 0 {
		fmt.Println("No events planned. Add one with 'weekendly add'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tACTIVITY\tSTART\tEND\tSYNCED")
	for _, e := range events {
		synced := ""
		if e.RemoteID != "" {
			synced = "✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
			e.ID,
			e.Title,
			models.ActivityEmojis[e.Activity], e.Activity.Label(),
			e.Start.Local().Format("Mon Jan 2 15:04"),
			e.End.Local().Format("15:04"),
			synced,
		)
	}
	return w.Flush()
}

// UpdateEventCommand edits an existing event. Flags left empty keep the
// current value.
func UpdateEventCommand(coordinator *sync.Coordinator, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "Event id (required)")
	title := fs.String("title", "", "New title")
	date := fs.String("date", "", "New date, YYYY-MM-DD")
	start := fs.String("start", "", "New start time, HH:MM")
	end := fs.String("end", "", "New end time, HH:MM")
	activity := fs.String("activity", "", activityUsage())
	mood := fs.String("mood", "", "New mood")
	theme := fs.String("theme", "", "New theme")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	current, ok := st.Get(*id)
	if !ok {
		return fmt.Errorf("no event with id %s", *id)
	}

	if *title == "" {
		*title = current.Title
	}
	if *date == "" {
		*date = current.Start.Local().Format("2006-01-02")
	}
	if *start == "" {
		*start = current.Start.Local().Format("15:04")
	}
	if *end == "" {
		*end = current.End.Local().Format("15:04")
	}
	if *activity == "" {
		*activity = string(current.Activity)
	}
	if *mood == "" {
		*mood = string(current.Mood)
	}
	if *theme == "" {
		*theme = string(current.Theme)
	}

	draft, err := parseDraft(*title, *date, *start, *end, *activity, *mood, *theme)
	if err != nil {
		return err
	}

	event, outcome, err := coordinator.UpdateEvent(context.Background(), *id, draft)
	if err != nil {
		return err
	}

	fmt.Printf("Updated event %s (%s)\n", event.ID, event.Title)
	if outcome == sync.OutcomeRemoteFailedLocalApplied {
		fmt.Println("Note: the Google Calendar mirror was not updated")
	}
	return nil
}

// RemoveEventCommand deletes an event. Local deletion is never blocked by
// a failing remote delete.
func RemoveEventCommand(coordinator *sync.Coordinator, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	id := fs.String("id", "", "Event id (required)")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	if _, err := coordinator.RemoveEvent(context.Background(), *id); err != nil {
		return err
	}

	fmt.Printf("Removed event %s\n", *id)
	return nil
}

// ReorderEventsCommand replaces the display order with the given
// comma-separated id sequence.
func ReorderEventsCommand(coordinator *sync.Coordinator, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("reorder", flag.ExitOnError)
	order := fs.String("order", "", "Comma-separated event ids in the new order (required)")
	_ = fs.Parse(args)

	if *order == "" {
		return fmt.Errorf("--order is required")
	}

	byID := make(map[string]models.Event)
	for _, e := range st.Events() {
		byID[e.ID] = e
	}

	var sequence []models.Event
	for _, id := range strings.Split(*order, ",") {
		id = strings.TrimSpace(id)
		event, ok := byID[id]
		if !ok {
			return fmt.Errorf("no event with id %s", id)
		}
		sequence = append(sequence, event)
	}

	if _, err := coordinator.ReorderEvents(context.Background(), sequence); err != nil {
		return err
	}

	fmt.Println("Event order updated")
	return nil
}

func activityUsage() string {
	names := make([]string, len(models.Activities))
	for i, a := range models.Activities {
		names[i] = string(a)
	}
	return "Activity: " + strings.Join(names, ", ")
}
