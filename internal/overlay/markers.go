package overlay

import (
	"fmt"
	"sort"
	"sync"

	"github.com/citypath/overlay/internal/metrics"
	"github.com/citypath/overlay/pkg/types/geo"
)

// MarkerSource identifies which pipeline produced a marker. Markers from
// different sources live side by side and are replaced independently.
type MarkerSource string

const (
	SourceHotspot      MarkerSource = "hotspot"
	SourceAISuggestion MarkerSource = "ai-suggestion"
	SourceEvent        MarkerSource = "event"
)

// Suggestion intents. Intent is set on suggestion markers only; other
// sources leave it empty.
const (
	IntentParks   = "parks"
	IntentClinics = "clinics"
	IntentHeat    = "heat"
	IntentGeneral = "general"
)

// User roles.
const (
	RoleUrbanPlanner = "urban-planner"
	RoleLocalLeader  = "local-leader"
)

// Marker is one point on the overlay.
type Marker struct {
	ID     string
	HexID  string
	Source MarkerSource
	Intent string
	Lat    float64
	Lon    float64
	Score  float64
	Popup  string
}

// MarkerStyle is the circle-marker visual encoding.
type MarkerStyle struct {
	Color       string
	Radius      float64
	Weight      float64
	FillOpacity float64
}

// StyleFor returns the style for any source/intent pair. Every input maps
// to some style so a marker can never render unstyled.
func StyleFor(source MarkerSource, intent string) MarkerStyle {
	switch source {
	case SourceHotspot:
		return MarkerStyle{Color: "#d33", Radius: 6, Weight: 2, FillOpacity: 0.85}
	case SourceAISuggestion:
		if intent == IntentClinics {
			return MarkerStyle{Color: "#1f78ff", Radius: 7, Weight: 2, FillOpacity: 0.85}
		}
		return MarkerStyle{Color: "#7e3ff2", Radius: 7, Weight: 2, FillOpacity: 0.85}
	case SourceEvent:
		return MarkerStyle{Color: "#10b981", Radius: 8, Weight: 2, FillOpacity: 0.9}
	default:
		return MarkerStyle{Color: "#6b7280", Radius: 6, Weight: 1, FillOpacity: 0.7}
	}
}

// CanCreateEvent is the gate for starting event creation from a marker.
// Only local leaders create events, and only from hotspots or from park
// and clinic suggestions; general advisory markers are informational.
func CanCreateEvent(role string, m Marker) bool {
	if role != RoleLocalLeader {
		return false
	}
	switch m.Source {
	case SourceHotspot:
		return true
	case SourceAISuggestion:
		return m.Intent == IntentParks || m.Intent == IntentClinics
	default:
		return false
	}
}

// HotspotMarkers converts server hotspots into markers.
func HotspotMarkers(hs []geo.Hotspot) []Marker {
	out := make([]Marker, 0, len(hs))
	for _, h := range hs {
		out = append(out, Marker{
			ID:     "hot-" + h.HexID,
			HexID:  h.HexID,
			Source: SourceHotspot,
			Lat:    h.Lat,
			Lon:    h.Lon,
			Score:  h.Score,
		})
	}
	return out
}

// SuggestionMarkers converts suggestions into markers under one intent.
func SuggestionMarkers(suggestions []geo.Suggestion, intent string) []Marker {
	out := make([]Marker, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, Marker{
			ID:     intent + "-" + s.HexID,
			HexID:  s.HexID,
			Source: SourceAISuggestion,
			Intent: intent,
			Lat:    s.Lat,
			Lon:    s.Lon,
			Score:  s.Score,
			Popup:  suggestionPopup(intent, s),
		})
	}
	return out
}

// EventMarker builds the marker for a scheduled event.
func EventMarker(id, title string, lat, lon float64) Marker {
	return Marker{
		ID:     "event-" + id,
		Source: SourceEvent,
		Lat:    lat,
		Lon:    lon,
		Popup:  title,
	}
}

func suggestionPopup(intent string, s geo.Suggestion) string {
	label := "Suggested site"
	switch intent {
	case IntentParks:
		label = "Park candidate"
	case IntentClinics:
		label = "Clinic candidate"
	}
	var lst, ndvi, pop *float64
	if s.Why != nil {
		lst, ndvi, pop = s.Why.LSTDayMean, s.Why.NDVIMean, s.Why.PopDensity
	}
	return fmt.Sprintf("%s\nHex: %s\nLST: %s\nNDVI: %s\nPop: %s",
		label, s.HexID, metricString(lst), metricString(ndvi), metricString(pop))
}

// MarkerSet holds the live markers of all sources. Hotspots are set once
// per session, suggestions are replaced wholesale per turn, and events are
// keyed by identifier. All methods are safe for concurrent use.
type MarkerSet struct {
	mu          sync.RWMutex
	hotspots    []Marker
	suggestions []Marker
	events      map[string]Marker
	metrics     *metrics.Metrics
}

func NewMarkerSet(m *metrics.Metrics) *MarkerSet {
	if m == nil {
		m = metrics.NewNop()
	}
	return &MarkerSet{events: make(map[string]Marker), metrics: m}
}

func (s *MarkerSet) SetHotspots(ms []Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotspots = append([]Marker(nil), ms...)
	s.metrics.MarkersActive.WithLabelValues(string(SourceHotspot)).Set(float64(len(s.hotspots)))
}

// ReplaceSuggestions swaps the whole suggestion layer. An empty slice
// clears it; stale markers from the previous turn never survive the swap.
func (s *MarkerSet) ReplaceSuggestions(ms []Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append([]Marker(nil), ms...)
	s.metrics.MarkersActive.WithLabelValues(string(SourceAISuggestion)).Set(float64(len(s.suggestions)))
}

func (s *MarkerSet) ClearSuggestions() {
	s.ReplaceSuggestions(nil)
}

func (s *MarkerSet) UpsertEvent(m Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[m.ID] = m
	s.metrics.MarkersActive.WithLabelValues(string(SourceEvent)).Set(float64(len(s.events)))
}

func (s *MarkerSet) RemoveEvent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, "event-"+id)
	s.metrics.MarkersActive.WithLabelValues(string(SourceEvent)).Set(float64(len(s.events)))
}

// Snapshot returns all markers in a stable order: hotspots, then
// suggestions, then events by identifier.
func (s *MarkerSet) Snapshot() []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Marker, 0, len(s.hotspots)+len(s.suggestions)+len(s.events))
	out = append(out, s.hotspots...)
	out = append(out, s.suggestions...)
	eventIDs := make([]string, 0, len(s.events))
	for id := range s.events {
		eventIDs = append(eventIDs, id)
	}
	sort.Strings(eventIDs)
	for _, id := range eventIDs {
		out = append(out, s.events[id])
	}
	return out
}
