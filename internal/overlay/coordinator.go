package overlay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citypath/overlay/internal/advisory"
	"github.com/citypath/overlay/internal/backend"
	"github.com/citypath/overlay/internal/config"
	"github.com/citypath/overlay/internal/events"
	"github.com/citypath/overlay/internal/logging"
	"github.com/citypath/overlay/internal/metrics"
	"github.com/citypath/overlay/pkg/errors"
	"github.com/citypath/overlay/pkg/types/geo"
)

// Backend is the slice of the backend client the coordinator uses.
type Backend interface {
	Hotspots(ctx context.Context, theme string, limit int) ([]geo.Hotspot, error)
	Stats(ctx context.Context, hexID string) (*geo.CellStats, error)
	Grid(ctx context.Context, limit int) ([]geo.CellRecord, error)
	SuggestParks(ctx context.Context, limit int) ([]geo.Suggestion, error)
	SuggestClinics(ctx context.Context, limit int) ([]geo.Suggestion, error)
	Layers(ctx context.Context) (*geo.LayerCatalog, error)
	StreamAdvice(ctx context.Context, question string, fn backend.StreamFunc) error
}

// Coordinator owns the session's overlay state: the cached grid and its
// scene, the marker layers, the advisory transcript, and the event store.
// It reconciles every source of markers so the map never shows a mix of
// two turns.
type Coordinator struct {
	backend    Backend
	choropleth *Choropleth
	markers    *MarkerSet
	transcript *advisory.Transcript
	classifier advisory.IntentClassifier
	events     *events.Store
	session    config.Session
	limits     config.BackendConfig
	log        logging.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	records []geo.CellRecord
	theme   Theme
	scene   *Scene

	hotspotsLoaded atomic.Bool
	turnSeq        atomic.Int64
}

// CoordinatorDeps collects the collaborators. Nil optional fields get
// working defaults.
type CoordinatorDeps struct {
	Backend    Backend
	Choropleth *Choropleth
	Events     *events.Store
	Classifier advisory.IntentClassifier
	Logger     logging.Logger
	Metrics    *metrics.Metrics
}

func NewCoordinator(cfg config.Config, deps CoordinatorDeps) (*Coordinator, error) {
	if deps.Backend == nil {
		return nil, errors.New(errors.CodeConfig, "coordinator needs a backend client")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}
	if deps.Choropleth == nil {
		deps.Choropleth = NewChoropleth(nil, deps.Logger, deps.Metrics)
	}
	if deps.Classifier == nil {
		deps.Classifier = advisory.NewKeywordClassifier()
	}
	if deps.Events == nil {
		loc := time.Local
		if cfg.Session.Timezone != "" {
			var err error
			loc, err = time.LoadLocation(cfg.Session.Timezone)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeConfig, "unknown session timezone")
			}
		}
		deps.Events = events.NewStore(loc, deps.Logger, deps.Metrics)
	}
	return &Coordinator{
		backend:    deps.Backend,
		choropleth: deps.Choropleth,
		markers:    NewMarkerSet(deps.Metrics),
		transcript: advisory.NewTranscript(),
		classifier: deps.Classifier,
		events:     deps.Events,
		session:    cfg.Session,
		limits:     cfg.Backend,
		log:        deps.Logger.Named("coordinator"),
		metrics:    deps.Metrics,
		theme:      ThemeHeat,
	}, nil
}

// LoadGrid fetches the cell dataset and rebuilds the scene under the
// current theme.
func (c *Coordinator) LoadGrid(ctx context.Context) error {
	records, err := c.backend.Grid(ctx, c.limits.GridLimit)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.records = records
	c.scene = c.choropleth.Build(c.records, c.theme)
	c.mu.Unlock()
	return nil
}

// SetTheme switches the choropleth theme and rebuilds the scene from the
// cached records. No refetch happens; the dataset is theme-independent.
func (c *Coordinator) SetTheme(theme Theme) *Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theme = theme
	c.scene = c.choropleth.Build(c.records, theme)
	return c.scene
}

// Scene returns the current scene, or nil before the first LoadGrid.
func (c *Coordinator) Scene() *Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scene
}

// LoadHotspots fetches the hotspot layer. It runs at most once per
// session; later calls are no-ops.
func (c *Coordinator) LoadHotspots(ctx context.Context) error {
	if !c.hotspotsLoaded.CompareAndSwap(false, true) {
		return nil
	}
	hs, err := c.backend.Hotspots(ctx, c.limits.HotspotTheme, c.limits.HotspotLimit)
	if err != nil {
		c.hotspotsLoaded.Store(false)
		return err
	}
	c.markers.SetHotspots(HotspotMarkers(hs))
	return nil
}

// SuggestSites fetches recommendation markers for the intent and replaces
// the suggestion layer with them. Only parks and clinics have a
// recommendation endpoint.
func (c *Coordinator) SuggestSites(ctx context.Context, intent string) ([]Marker, error) {
	var (
		suggestions []geo.Suggestion
		err         error
	)
	switch intent {
	case IntentParks:
		suggestions, err = c.backend.SuggestParks(ctx, c.limits.SuggestLimit)
	case IntentClinics:
		suggestions, err = c.backend.SuggestClinics(ctx, c.limits.SuggestLimit)
	default:
		return nil, errors.Validation("no recommendation endpoint for intent").WithDetail(intent)
	}
	if err != nil {
		return nil, err
	}
	ms := SuggestionMarkers(suggestions, intent)
	c.markers.ReplaceSuggestions(ms)
	return ms, nil
}

// Ask runs one advisory turn. Text deltas go to onDelta as they arrive and
// are never retracted. When the turn finishes with markers, the suggestion
// layer is replaced with them, unless a newer turn has started since; a
// stale turn's markers are dropped so the newest question always owns the
// map. The finished turn is appended to the transcript either way.
func (c *Coordinator) Ask(ctx context.Context, question string, onDelta func(delta string)) (advisory.Turn, error) {
	intent := c.classifier.Classify(question)
	seq := c.turnSeq.Add(1)

	turn := advisory.Turn{
		Question: question,
		Intent:   intent,
		AskedAt:  time.Now().UTC(),
	}

	err := c.backend.StreamAdvice(ctx, question, func(delta string, final bool, markers []geo.Suggestion) {
		turn.Answer += delta
		if onDelta != nil && delta != "" {
			onDelta(delta)
		}
		if final {
			turn.Markers = markers
			if c.turnSeq.Load() == seq {
				c.markers.ReplaceSuggestions(SuggestionMarkers(markers, intent))
			} else {
				c.log.Debug("dropping markers from superseded turn",
					logging.Int64("turn", seq), logging.Int("markers", len(markers)))
			}
		}
	})

	outcome := "ok"
	if err != nil {
		outcome = errors.GetCode(err).String()
		turn.Err = err.Error()
	}
	c.metrics.AdvisoryTurns.WithLabelValues(intent, outcome).Inc()
	c.transcript.Append(turn)
	return turn, err
}

// Transcript exposes the advisory transcript.
func (c *Coordinator) Transcript() *advisory.Transcript { return c.transcript }

// SelectCell resolves a click on a cell or hotspot into popup content. A
// missing cell comes back in the same shape with Err set, so the popup
// renders one way regardless.
func (c *Coordinator) SelectCell(ctx context.Context, hexID string) *geo.CellStats {
	stats, err := c.backend.Stats(ctx, hexID)
	if err == nil {
		return stats
	}
	msg := "Stats not found"
	if !errors.IsNotFound(err) {
		msg = errors.UserMessage(err)
		c.log.Warn("stats fetch failed", logging.String("hex_id", hexID), logging.Err(err))
	}
	return &geo.CellStats{HexID: hexID, Err: msg}
}

// Markers returns a stable snapshot of every marker layer.
func (c *Coordinator) Markers() []Marker {
	return c.markers.Snapshot()
}

// CreateEventFrom creates an event anchored at a marker, subject to the
// role gate. The marker's location seeds the event when the form leaves it
// unset.
func (c *Coordinator) CreateEventFrom(m Marker, in events.CreateInput) (events.Event, error) {
	if !CanCreateEvent(c.session.Role, m) {
		return events.Event{}, errors.Validation("this role cannot create an event from this marker").
			WithDetail(c.session.Role + "/" + string(m.Source))
	}
	if in.Lat == 0 && in.Lon == 0 {
		in.Lat, in.Lon = m.Lat, m.Lon
	}
	if in.SourceType == "" {
		in.SourceType = m.Intent
		if m.Source == SourceHotspot {
			in.SourceType = IntentHeat
		}
	}
	e, err := c.events.Create(in)
	if err != nil {
		return events.Event{}, err
	}
	c.markers.UpsertEvent(EventMarker(e.ID, e.Title, e.Lat, e.Lon))
	return e, nil
}

// RemoveEvent deletes an event and its marker.
func (c *Coordinator) RemoveEvent(id string) error {
	if err := c.events.Remove(id); err != nil {
		return err
	}
	c.markers.RemoveEvent(id)
	return nil
}

// EventPanel returns the filtered, sorted event list plus its counts, the
// way the panel displays it.
func (c *Coordinator) EventPanel(filter, sortBy string, now time.Time) ([]events.Event, int, int, int) {
	all := c.events.List()
	total, upcoming, past := events.Counts(all, now)
	return events.SortEvents(events.Filter(all, filter, now), sortBy), total, upcoming, past
}

// Layers passes through the layer catalog.
func (c *Coordinator) Layers(ctx context.Context) (*geo.LayerCatalog, error) {
	return c.backend.Layers(ctx)
}
