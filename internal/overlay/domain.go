// Package overlay builds the map overlay: the choropleth scene over the
// hexagonal grid, the marker set layered on top of it, and the coordinator
// that reconciles both against backend state.
package overlay

import (
	"fmt"
	"math"

	"github.com/citypath/overlay/pkg/types/geo"
)

// Theme selects which metric the choropleth draws and how its color ramp
// is oriented.
type Theme string

const (
	ThemeHeat       Theme = "heat"
	ThemeGreenspace Theme = "greenspace"
	ThemePopulation Theme = "population"
)

// MetricField maps a theme to the cell metric it visualizes. Unknown
// themes fall back to surface temperature, same as an unset theme.
func (t Theme) MetricField() string {
	switch t {
	case ThemeGreenspace:
		return geo.MetricNDVIMean
	case ThemePopulation:
		return geo.MetricPopDensity
	default:
		return geo.MetricLSTDayMean
	}
}

// Inverted reports whether the ramp runs high-to-low for this theme.
// Greenspace inverts so that greener cells draw greener.
func (t Theme) Inverted() bool {
	return t == ThemeGreenspace
}

// NeutralFill is the fill for cells with no value for the active metric.
const NeutralFill = "#cccccc"

// Domain is the observed value range of the active metric.
type Domain struct {
	Min float64
	Max float64
}

// DefaultDomain is used when no cell carries a value for the active
// metric, so rendering still produces a deterministic scene.
var DefaultDomain = Domain{Min: 0, Max: 1}

// ComputeDomain scans the records for the given metric, ignoring missing
// and NaN values. It also returns the number of values that contributed.
func ComputeDomain(records []geo.CellRecord, field string) (Domain, int) {
	d := Domain{Min: math.Inf(1), Max: math.Inf(-1)}
	n := 0
	for i := range records {
		v := records[i].Metric(field)
		if v == nil || math.IsNaN(*v) {
			continue
		}
		if *v < d.Min {
			d.Min = *v
		}
		if *v > d.Max {
			d.Max = *v
		}
		n++
	}
	if n == 0 {
		return DefaultDomain, 0
	}
	return d, n
}

// normalize maps v into [0,1] over the domain. A zero-width domain divides
// by one instead, so a uniform dataset renders uniformly at the low end
// rather than failing.
func (d Domain) normalize(v float64) float64 {
	width := d.Max - d.Min
	if width == 0 {
		width = 1
	}
	t := (v - d.Min) / width
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// ColorScale turns metric values into fill colors over a fixed domain.
type ColorScale struct {
	Domain Domain
	Invert bool
}

// ColorFor returns the fill for a metric value as "#rrggbb". Missing and
// NaN values get the neutral fill. The ramp runs red through yellow to
// green as t rises; Invert flips it.
func (s ColorScale) ColorFor(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return NeutralFill
	}
	t := s.Domain.normalize(*v)
	if s.Invert {
		t = 1 - t
	}
	r := int(math.Round(255 * (1 - t)))
	g := int(math.Round(255 * t))
	return fmt.Sprintf("#%02x%02x%02x", r, g, 90)
}
