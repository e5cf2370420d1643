package overlay

import (
	"strconv"
	"strings"

	"github.com/citypath/overlay/internal/logging"
	"github.com/citypath/overlay/internal/metrics"
	"github.com/citypath/overlay/pkg/types/geo"
)

// Styling shared by every cell polygon.
const (
	StrokeColor  = "#222"
	StrokeWeight = 0.6
	FillOpacity  = 0.6
)

// noValue is the tooltip placeholder for a missing metric.
const noValue = "—"

// CellPolygon is one renderable hexagon: its boundary ring, fill, tooltip
// text, and the centroid reported on click.
type CellPolygon struct {
	HexID   string
	Ring    []geo.LatLng
	Fill    string
	Tooltip string
	Lat     float64
	Lon     float64
}

// Legend describes the active metric range so a legend view can label the
// color ramp. It is recomputed with every scene.
type Legend struct {
	Field   string
	Domain  Domain
	Samples int
}

// Scene is a complete choropleth frame. Scenes are immutable; a theme or
// dataset change produces a new one rather than patching the old.
type Scene struct {
	Theme    Theme
	Polygons []CellPolygon
	Legend   Legend
	Skipped  int
}

// Choropleth builds scenes from cell records.
type Choropleth struct {
	decoder BoundaryDecoder
	log     logging.Logger
	metrics *metrics.Metrics
}

func NewChoropleth(decoder BoundaryDecoder, log logging.Logger, m *metrics.Metrics) *Choropleth {
	if decoder == nil {
		decoder = NewChainDecoder()
	}
	if log == nil {
		log = logging.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Choropleth{decoder: decoder, log: log.Named("choropleth"), metrics: m}
}

// Build produces the scene for the records under the given theme. Cells
// whose boundary cannot be decoded are skipped, never fail the frame.
func (c *Choropleth) Build(records []geo.CellRecord, theme Theme) *Scene {
	field := theme.MetricField()
	domain, samples := ComputeDomain(records, field)
	scale := ColorScale{Domain: domain, Invert: theme.Inverted()}

	scene := &Scene{
		Theme:    theme,
		Polygons: make([]CellPolygon, 0, len(records)),
		Legend:   Legend{Field: field, Domain: domain, Samples: samples},
	}

	for i := range records {
		r := &records[i]
		ring, err := c.decoder.Boundary(r.HexID)
		if err != nil {
			scene.Skipped++
			c.metrics.CellsSkipped.Inc()
			c.log.Warn("skipping cell with undecodable boundary",
				logging.String("hex_id", r.HexID), logging.Err(err))
			continue
		}
		scene.Polygons = append(scene.Polygons, CellPolygon{
			HexID:   r.HexID,
			Ring:    ring,
			Fill:    scale.ColorFor(r.Metric(field)),
			Tooltip: cellTooltip(r),
			Lat:     r.Lat,
			Lon:     r.Lon,
		})
	}

	c.metrics.CellsRendered.Set(float64(len(scene.Polygons)))
	c.log.Info("scene built",
		logging.String("theme", string(theme)),
		logging.String("field", field),
		logging.Int("cells", len(scene.Polygons)),
		logging.Int("skipped", scene.Skipped),
		logging.Float64("min", domain.Min),
		logging.Float64("max", domain.Max))
	return scene
}

func cellTooltip(r *geo.CellRecord) string {
	var b strings.Builder
	b.WriteString("Hex: " + r.HexID)
	b.WriteString("\nLST (°C): " + metricString(r.LSTDayMean))
	b.WriteString("\nNDVI: " + metricString(r.NDVIMean))
	b.WriteString("\nPop: " + metricString(r.PopDensity))
	return b.String()
}

func metricString(v *float64) string {
	if v == nil {
		return noValue
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
