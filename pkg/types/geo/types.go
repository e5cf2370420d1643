// Package geo holds the wire-level data types exchanged with the analytics
// and advisory collaborator. Field names mirror the backend's JSON contract;
// nullable metrics stay pointers so that "no data" is never confused with
// zero.
package geo

// Metric names tracked per cell.
const (
	MetricLSTDayMean = "lst_day_mean" // land surface temperature proxy, °C
	MetricNDVIMean   = "ndvi_mean"    // vegetation index
	MetricPopDensity = "pop_density"  // population density
)

// TrackedMetrics lists every metric a cell record carries, in display order.
var TrackedMetrics = []string{MetricLSTDayMean, MetricNDVIMean, MetricPopDensity}

// CellRecord is one hexagonal cell of a dataset snapshot: the H3 identifier,
// its centroid, and the tracked metrics. Records are immutable once received
// and replaced wholesale on the next fetch.
type CellRecord struct {
	HexID      string   `json:"hex_id"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	LSTDayMean *float64 `json:"lst_day_mean"`
	NDVIMean   *float64 `json:"ndvi_mean"`
	PopDensity *float64 `json:"pop_density"`
}

// Metric returns the named metric value, or nil for unknown names and
// missing values.
func (r *CellRecord) Metric(name string) *float64 {
	switch name {
	case MetricLSTDayMean:
		return r.LSTDayMean
	case MetricNDVIMean:
		return r.NDVIMean
	case MetricPopDensity:
		return r.PopDensity
	default:
		return nil
	}
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Hotspot is one server-ranked point of interest.
type Hotspot struct {
	HexID string  `json:"hex_id"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Score float64 `json:"score"`
}

// CellStats is the per-cell detail payload. A lookup miss is represented in
// the same shape with Err set, so detail views render one consistent state.
type CellStats struct {
	HexID      string   `json:"hex_id"`
	LSTDayMean *float64 `json:"lst_day_mean,omitempty"`
	NDVIMean   *float64 `json:"ndvi_mean,omitempty"`
	PopDensity *float64 `json:"pop_density,omitempty"`
	Err        string   `json:"error,omitempty"`
}

// WhyMetrics is the explanatory payload attached to a suggestion: the
// metric values that justified it.
type WhyMetrics struct {
	LSTDayMean *float64 `json:"lst_day_mean"`
	NDVIMean   *float64 `json:"ndvi_mean"`
	PopDensity *float64 `json:"pop_density"`
}

// Suggestion is a recommended site, either from the recommend endpoints or
// from the advisory stream's trailing marker payload.
type Suggestion struct {
	HexID string      `json:"hex_id"`
	Lat   float64     `json:"lat"`
	Lon   float64     `json:"lon"`
	Score float64     `json:"score"`
	Why   *WhyMetrics `json:"why,omitempty"`
}

// LayerInfo describes one available map layer.
type LayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "metric" | "tile"
}

// LayerCatalog is the catalog served by the layers endpoint.
type LayerCatalog struct {
	City   string      `json:"city"`
	Layers []LayerInfo `json:"layers"`
}
