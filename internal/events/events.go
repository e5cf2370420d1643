// Package events manages community events scheduled from map markers:
// creation, deletion, and the derived status, filter, and sort views the
// event panel shows.
package events

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citypath/overlay/internal/logging"
	"github.com/citypath/overlay/internal/metrics"
	"github.com/citypath/overlay/pkg/errors"
)

// Categories an event can carry, in form order. The first is the default.
var Categories = []string{
	"Town Hall",
	"Community Cleanup",
	"Health Camp",
	"Tree Planting",
	"Workshop",
	"Safety Meeting",
}

// Event is a scheduled community event. When and CreatedAt are absolute
// UTC instants; local wall time is resolved exactly once, at creation.
type Event struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	When       time.Time `json:"whenISO"`
	CreatedAt  time.Time `json:"createdAt"`
	SourceName string    `json:"sourceName"`
	SourceType string    `json:"sourceType"`
	Category   string    `json:"category"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Desc       string    `json:"desc"`
}

// CreateInput is the event form payload. Datetime is local wall time in
// the store's timezone, without offset, as a datetime picker produces it.
type CreateInput struct {
	Title      string
	Datetime   string
	Category   string
	Desc       string
	SourceName string
	SourceType string
	Lat        float64
	Lon        float64
}

// Accepted Datetime layouts, minute and second precision.
var datetimeLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// Store holds the session's events.
type Store struct {
	mu      sync.RWMutex
	events  map[string]Event
	loc     *time.Location
	now     func() time.Time
	log     logging.Logger
	metrics *metrics.Metrics
}

func NewStore(loc *time.Location, log logging.Logger, m *metrics.Metrics) *Store {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logging.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	s := &Store{
		events:  make(map[string]Event),
		loc:     loc,
		now:     time.Now,
		log:     log.Named("events"),
		metrics: m,
	}
	return s
}

// Create validates the input and stores a new event. The title must be
// non-blank and the datetime parseable; failures return CodeValidation and
// store nothing.
func (s *Store) Create(in CreateInput) (Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Event{}, errors.Validation("event title must not be blank")
	}
	when, err := s.parseLocal(in.Datetime)
	if err != nil {
		return Event{}, err
	}
	category := in.Category
	if category == "" {
		category = Categories[0]
	}

	e := Event{
		ID:         uuid.New().String(),
		Title:      title,
		When:       when,
		CreatedAt:  s.now().UTC(),
		SourceName: in.SourceName,
		SourceType: in.SourceType,
		Category:   category,
		Lat:        in.Lat,
		Lon:        in.Lon,
		Desc:       strings.TrimSpace(in.Desc),
	}

	s.mu.Lock()
	s.events[e.ID] = e
	s.mu.Unlock()

	s.metrics.EventsCreated.Inc()
	s.log.Info("event created",
		logging.String("id", e.ID),
		logging.String("title", e.Title),
		logging.String("category", e.Category),
		logging.String("when", e.When.Format(time.RFC3339)))
	return e, nil
}

// Remove deletes an event by identifier.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return errors.NotFound("no such event").WithDetail(id)
	}
	delete(s.events, id)
	s.log.Info("event removed", logging.String("id", id))
	return nil
}

// List returns every event, newest first by creation.
func (s *Store) List() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) parseLocal(dt string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, dt, s.loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Validation("event datetime is not a valid local date/time").WithDetail(dt)
}

// Status is the display state of an event relative to now. It is derived
// fresh each time it is shown, never stored.
type Status struct {
	Kind  string
	Text  string
	Color string
}

// DeriveStatus classifies the event against now. Future events count the
// remaining whole days, rounding up.
func DeriveStatus(e Event, now time.Time) Status {
	if e.When.After(now) {
		days := int(math.Ceil(e.When.Sub(now).Hours() / 24))
		text := "In " + strconv.Itoa(days) + " day"
		if days > 1 {
			text += "s"
		}
		return Status{Kind: "upcoming", Text: text, Color: "#10b981"}
	}
	return Status{Kind: "past", Text: "Past", Color: "#6b7280"}
}

// Filter views: the reserved names, or any category.
const (
	FilterAll      = "all"
	FilterUpcoming = "upcoming"
	FilterPast     = "past"
)

// Filter returns the events matching the view. Unknown filter names are
// treated as a category match.
func Filter(evts []Event, filter string, now time.Time) []Event {
	out := make([]Event, 0, len(evts))
	for _, e := range evts {
		switch filter {
		case FilterAll, "":
			out = append(out, e)
		case FilterUpcoming:
			if e.When.After(now) {
				out = append(out, e)
			}
		case FilterPast:
			if !e.When.After(now) {
				out = append(out, e)
			}
		default:
			if e.Category == filter {
				out = append(out, e)
			}
		}
	}
	return out
}

// Sort keys.
const (
	SortByDate    = "date"
	SortByTitle   = "title"
	SortByCreated = "created"
)

// SortEvents returns a sorted copy: date and created newest first, title
// ascending. Unknown keys keep the input order.
func SortEvents(evts []Event, by string) []Event {
	out := append([]Event(nil), evts...)
	switch by {
	case SortByDate:
		sort.SliceStable(out, func(i, j int) bool { return out[i].When.After(out[j].When) })
	case SortByTitle:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	case SortByCreated:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// Counts summarizes events for the panel badges.
func Counts(evts []Event, now time.Time) (total, upcoming, past int) {
	total = len(evts)
	for _, e := range evts {
		if e.When.After(now) {
			upcoming++
		} else {
			past++
		}
	}
	return total, upcoming, past
}
