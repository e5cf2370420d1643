package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypath/overlay/pkg/types/geo"
)

func TestStyleFor_TotalOverSources(t *testing.T) {
	assert.Equal(t, "#d33", StyleFor(SourceHotspot, "").Color)
	assert.Equal(t, "#7e3ff2", StyleFor(SourceAISuggestion, IntentParks).Color)
	assert.Equal(t, "#1f78ff", StyleFor(SourceAISuggestion, IntentClinics).Color)
	assert.Equal(t, "#7e3ff2", StyleFor(SourceAISuggestion, IntentGeneral).Color)
	assert.Equal(t, "#10b981", StyleFor(SourceEvent, "").Color)

	// Even garbage input maps to a usable style.
	s := StyleFor(MarkerSource("unknown"), "whatever")
	assert.NotEmpty(t, s.Color)
	assert.Greater(t, s.Radius, float64(0))
}

func TestCanCreateEvent(t *testing.T) {
	hotspot := Marker{Source: SourceHotspot}
	parks := Marker{Source: SourceAISuggestion, Intent: IntentParks}
	clinics := Marker{Source: SourceAISuggestion, Intent: IntentClinics}
	general := Marker{Source: SourceAISuggestion, Intent: IntentGeneral}
	event := Marker{Source: SourceEvent}

	assert.True(t, CanCreateEvent(RoleLocalLeader, hotspot))
	assert.True(t, CanCreateEvent(RoleLocalLeader, parks))
	assert.True(t, CanCreateEvent(RoleLocalLeader, clinics))
	assert.False(t, CanCreateEvent(RoleLocalLeader, general))
	assert.False(t, CanCreateEvent(RoleLocalLeader, event))

	for _, m := range []Marker{hotspot, parks, clinics, general, event} {
		assert.False(t, CanCreateEvent(RoleUrbanPlanner, m))
		assert.False(t, CanCreateEvent("", m))
	}
}

func TestSuggestionMarkers_Popup(t *testing.T) {
	ms := SuggestionMarkers([]geo.Suggestion{
		{HexID: "abc", Lat: 1, Lon: 2, Score: 0.7, Why: &geo.WhyMetrics{LSTDayMean: fptr(42.1)}},
		{HexID: "def", Lat: 3, Lon: 4, Score: 0.5},
	}, IntentParks)

	require.Len(t, ms, 2)
	assert.Equal(t, "parks-abc", ms[0].ID)
	assert.Equal(t, SourceAISuggestion, ms[0].Source)
	assert.Contains(t, ms[0].Popup, "Park candidate")
	assert.Contains(t, ms[0].Popup, "LST: 42.1")
	assert.Contains(t, ms[1].Popup, "LST: —")
}

func TestMarkerSet_ReplaceAndSnapshot(t *testing.T) {
	set := NewMarkerSet(nil)

	set.SetHotspots(HotspotMarkers([]geo.Hotspot{{HexID: "h1", Lat: 1, Lon: 2, Score: 0.9}}))
	set.ReplaceSuggestions(SuggestionMarkers([]geo.Suggestion{{HexID: "s1"}}, IntentClinics))
	set.UpsertEvent(EventMarker("e1", "Tree Planting", 5, 6))

	snap := set.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, SourceHotspot, snap[0].Source)
	assert.Equal(t, SourceAISuggestion, snap[1].Source)
	assert.Equal(t, SourceEvent, snap[2].Source)

	// A new turn's suggestions fully replace the old ones.
	set.ReplaceSuggestions(SuggestionMarkers([]geo.Suggestion{{HexID: "s2"}, {HexID: "s3"}}, IntentParks))
	snap = set.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, "parks-s2", snap[1].ID)
	assert.Equal(t, "parks-s3", snap[2].ID)

	set.ClearSuggestions()
	assert.Len(t, set.Snapshot(), 2)
}

func TestMarkerSet_Events(t *testing.T) {
	set := NewMarkerSet(nil)
	set.UpsertEvent(EventMarker("b", "Second", 0, 0))
	set.UpsertEvent(EventMarker("a", "First", 0, 0))

	snap := set.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "event-a", snap[0].ID)
	assert.Equal(t, "event-b", snap[1].ID)

	set.RemoveEvent("a")
	snap = set.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "event-b", snap[0].ID)
}

func TestMarkerSet_SnapshotIsCopy(t *testing.T) {
	set := NewMarkerSet(nil)
	set.SetHotspots([]Marker{{ID: "hot-x", Source: SourceHotspot}})

	snap := set.Snapshot()
	snap[0].ID = "mutated"
	assert.Equal(t, "hot-x", set.Snapshot()[0].ID)
}
