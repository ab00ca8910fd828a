package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/google/uuid"
)

var _ ports.Calendar = (*Calendar)(nil)

// ErrEventNotFound is returned for unknown calendar event ids.
var ErrEventNotFound = errors.New("calendar event not found")

// Calendar implements ports.Calendar in memory.
type Calendar struct {
	mu     sync.RWMutex
	events map[string]domain.CalendarEvent
}

// NewCalendar creates an empty calendar.
func NewCalendar() *Calendar {
	return &Calendar{events: make(map[string]domain.CalendarEvent)}
}

// Create stores the event under a new id.
func (c *Calendar) Create(ctx context.Context, ev domain.CalendarEvent) (domain.CalendarEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[ev.ID] = ev
	return ev, nil
}

// List returns the events starting in [from, to), by start time.
func (c *Calendar) List(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.CalendarEvent
	for _, ev := range c.events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Start.Before(out[b].Start) })
	return out, nil
}

// Update replaces an existing event.
func (c *Calendar) Update(ctx context.Context, ev domain.CalendarEvent) (domain.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[ev.ID]; !ok {
		return domain.CalendarEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, ev.ID)
	}
	c.events[ev.ID] = ev
	return ev, nil
}

// Delete removes an event.
func (c *Calendar) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	delete(c.events, id)
	return nil
}
