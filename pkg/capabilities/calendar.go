package capabilities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/registry"
)

// CalendarTools returns create, list, update and delete over svc.Calendar.
func CalendarTools(svc Services) []registry.Capability {
	cal := svc.Calendar

	create := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "create_calendar_event",
			Description: "Create a calendar event.",
			Parameters: schema([]string{"title", "start_time"}, map[string]any{
				"title":            str("Event title."),
				"start_time":       str("Start, e.g. '2026-10-15 14:00' or 'tomorrow at 3pm'."),
				"duration_minutes": integer("Duration in minutes, default 60."),
				"description":      str("Optional description."),
				"location":         str("Optional location."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Title       string `mapstructure:"title"`
				StartTime   string `mapstructure:"start_time"`
				Duration    int    `mapstructure:"duration_minutes"`
				Description string `mapstructure:"description"`
				Location    string `mapstructure:"location"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if strings.TrimSpace(in.Title) == "" {
				return domain.Failure("title is required"), nil
			}
			start, err := parseWhen(in.StartTime, svc.now())
			if err != nil {
				return domain.Failure(err.Error()), nil
			}
			if in.Duration <= 0 {
				in.Duration = 60
			}
			ev, err := cal.Create(ctx, domain.CalendarEvent{
				Title:       in.Title,
				Start:       start,
				End:         start.Add(time.Duration(in.Duration) * time.Minute),
				Description: in.Description,
				Location:    in.Location,
			})
			if err != nil {
				return domain.Result{}, err
			}
			return domain.OK("Event created: " + formatEvent(ev)), nil
		},
	}

	list := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "list_calendar_events",
			Description: "List calendar events from a date for a number of days.",
			Parameters: schema(nil, map[string]any{
				"date":       str("Start date: today, tomorrow or YYYY-MM-DD. Default today."),
				"days_ahead": integer("Number of days, default 1."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Date      string `mapstructure:"date"`
				DaysAhead int    `mapstructure:"days_ahead"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if in.Date == "" {
				in.Date = "today"
			}
			if in.DaysAhead <= 0 {
				in.DaysAhead = 1
			}
			from, err := parseWhen(in.Date, svc.now())
			if err != nil {
				return domain.Failure(err.Error()), nil
			}
			from = midnight(from)
			events, err := cal.List(ctx, from, from.AddDate(0, 0, in.DaysAhead))
			if err != nil {
				return domain.Result{}, err
			}
			if len(events) == 0 {
				return domain.OK(fmt.Sprintf("No events from %s for %d day(s).", from.Format("Monday, January 2"), in.DaysAhead)), nil
			}
			lines := make([]string, len(events))
			for i, ev := range events {
				lines[i] = fmt.Sprintf("%d. %s", i+1, formatEvent(ev))
			}
			return domain.OK("Events:\n" + strings.Join(lines, "\n")), nil
		},
	}

	update := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "update_calendar_event",
			Description: "Update an event found with list_calendar_events. Only the given fields change.",
			Parameters: schema([]string{"event_id"}, map[string]any{
				"event_id":        str("Event id."),
				"new_title":       str("New title."),
				"new_time":        str("New start time."),
				"new_duration":    integer("New duration in minutes."),
				"new_description": str("New description."),
				"new_location":    str("New location."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				ID          string `mapstructure:"event_id"`
				Title       string `mapstructure:"new_title"`
				Time        string `mapstructure:"new_time"`
				Duration    int    `mapstructure:"new_duration"`
				Description string `mapstructure:"new_description"`
				Location    string `mapstructure:"new_location"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			ev, err := findEvent(ctx, svc, in.ID)
			if err != nil {
				return domain.Failure(err.Error()), nil
			}
			duration := ev.End.Sub(ev.Start)
			if in.Duration > 0 {
				duration = time.Duration(in.Duration) * time.Minute
			}
			if in.Time != "" {
				start, err := parseWhen(in.Time, svc.now())
				if err != nil {
					return domain.Failure(err.Error()), nil
				}
				ev.Start = start
			}
			ev.End = ev.Start.Add(duration)
			if in.Title != "" {
				ev.Title = in.Title
			}
			if in.Description != "" {
				ev.Description = in.Description
			}
			if in.Location != "" {
				ev.Location = in.Location
			}
			ev, err = cal.Update(ctx, ev)
			if err != nil {
				return domain.Failure(err.Error()), nil
			}
			return domain.OK("Event updated: " + formatEvent(ev)), nil
		},
	}

	del := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "delete_calendar_event",
			Description: "Delete an event by id, or by title when the id is unknown.",
			Parameters: schema(nil, map[string]any{
				"event_id":    str("Event id."),
				"event_title": str("Event title to search for in the next 30 days."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				ID    string `mapstructure:"event_id"`
				Title string `mapstructure:"event_title"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if in.ID == "" && in.Title == "" {
				return domain.Failure("event_id or event_title is required"), nil
			}
			var ev domain.CalendarEvent
			if in.ID != "" {
				ev = domain.CalendarEvent{ID: in.ID, Title: in.ID}
			} else {
				found, err := eventByTitle(ctx, svc, in.Title)
				if err != nil {
					return domain.Failure(err.Error()), nil
				}
				ev = found
			}
			if err := cal.Delete(ctx, ev.ID); err != nil {
				return domain.Failure(err.Error()), nil
			}
			return domain.OK("Event deleted: " + ev.Title), nil
		},
	}

	return []registry.Capability{create, list, update, del}
}

// findEvent looks id up in the 30 days around now; the calendar port has no Get.
func findEvent(ctx context.Context, svc Services, id string) (domain.CalendarEvent, error) {
	now := svc.now()
	events, err := svc.Calendar.List(ctx, now.AddDate(0, 0, -30), now.AddDate(0, 0, 30))
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	for _, ev := range events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return domain.CalendarEvent{}, fmt.Errorf("no event with id %q", id)
}

func eventByTitle(ctx context.Context, svc Services, title string) (domain.CalendarEvent, error) {
	now := svc.now()
	events, err := svc.Calendar.List(ctx, midnight(now), now.AddDate(0, 0, 30))
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	want := strings.ToLower(strings.TrimSpace(title))
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Title), want) {
			return ev, nil
		}
	}
	return domain.CalendarEvent{}, fmt.Errorf("no upcoming event titled %q", title)
}

func formatEvent(ev domain.CalendarEvent) string {
	s := fmt.Sprintf("%s on %s, %s-%s [id: %s]", ev.Title,
		ev.Start.Format("Mon Jan 2"), ev.Start.Format("15:04"), ev.End.Format("15:04"), ev.ID)
	if ev.Location != "" {
		s += " at " + ev.Location
	}
	return s
}
