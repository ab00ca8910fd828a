package domain

import (
	"fmt"
	"strings"
	"time"
)

// JournalKind separates the journals kept by the tracking sub-agents.
type JournalKind string

const (
	JournalNutrition JournalKind = "nutrition"
	JournalWorkout   JournalKind = "workout"
)

// JournalEntry is one logged meal or exercise.
type JournalEntry struct {
	ID       string             `json:"id"`
	UserID   string             `json:"user_id"`
	Kind     JournalKind        `json:"kind"`
	Title    string             `json:"title"`
	Quantity string             `json:"quantity,omitempty"`
	Category string             `json:"category,omitempty"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
	Notes    string             `json:"notes,omitempty"`
	LoggedAt time.Time          `json:"logged_at"`
}

// CalendarEvent is an entry of the user's calendar.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// Email is a message in the mailbox, either received or drafted.
type Email struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Draft     bool      `json:"draft,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the always-in-context core memory of one user, by category then key.
type Profile map[string]map[string]string

// Clone returns a deep copy of the profile. A nil profile clones to an empty one.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for category, facts := range p {
		copied := make(map[string]string, len(facts))
		for k, v := range facts {
			copied[k] = v
		}
		out[category] = copied
	}
	return out
}

// Set stores one fact, creating the category when needed.
func (p Profile) Set(category, key, value string) {
	facts, ok := p[category]
	if !ok {
		facts = make(map[string]string)
		p[category] = facts
	}
	facts[key] = value
}

// Memory is one remembered fact or experience, recalled by search rather than
// injected wholesale like the Profile.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShortID is the id prefix shown to the oracle.
func (m Memory) ShortID() string {
	if len(m.ID) > 8 {
		return m.ID[:8]
	}
	return m.ID
}

// ResolveMemory finds the memory whose id is ref or starts with it.
func ResolveMemory(memories []Memory, ref string) (Memory, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Memory{}, fmt.Errorf("%w: empty id", ErrMemoryNotFound)
	}
	var found []Memory
	for _, m := range memories {
		if m.ID == ref {
			return m, nil
		}
		if strings.HasPrefix(m.ID, ref) {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return Memory{}, fmt.Errorf("%w: %s", ErrMemoryNotFound, ref)
	case 1:
		return found[0], nil
	}
	return Memory{}, fmt.Errorf("%w: %s matches %d memories", ErrAmbiguousMemory, ref, len(found))
}

// SearchResult is one hit of a web search.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}
