package overlay

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/citypath/overlay/pkg/types/geo"
)

func fptr(v float64) *float64 { return &v }

func TestThemeMetricField(t *testing.T) {
	assert.Equal(t, geo.MetricLSTDayMean, ThemeHeat.MetricField())
	assert.Equal(t, geo.MetricNDVIMean, ThemeGreenspace.MetricField())
	assert.Equal(t, geo.MetricPopDensity, ThemePopulation.MetricField())
	assert.Equal(t, geo.MetricLSTDayMean, Theme("bogus").MetricField())

	assert.True(t, ThemeGreenspace.Inverted())
	assert.False(t, ThemeHeat.Inverted())
	assert.False(t, ThemePopulation.Inverted())
}

func TestComputeDomain(t *testing.T) {
	records := []geo.CellRecord{
		{HexID: "a", LSTDayMean: fptr(30)},
		{HexID: "b", LSTDayMean: fptr(45)},
		{HexID: "c", LSTDayMean: nil},
		{HexID: "d", LSTDayMean: fptr(math.NaN())},
		{HexID: "e", LSTDayMean: fptr(38)},
	}

	d, n := ComputeDomain(records, geo.MetricLSTDayMean)
	assert.Equal(t, 3, n)
	assert.Equal(t, Domain{Min: 30, Max: 45}, d)
}

func TestComputeDomain_NoValues(t *testing.T) {
	records := []geo.CellRecord{{HexID: "a"}, {HexID: "b"}}
	d, n := ComputeDomain(records, geo.MetricNDVIMean)
	assert.Equal(t, 0, n)
	assert.Equal(t, DefaultDomain, d)
}

func TestColorFor_Endpoints(t *testing.T) {
	s := ColorScale{Domain: Domain{Min: 0, Max: 100}}

	assert.Equal(t, "#ff005a", s.ColorFor(fptr(0)), "low end is red")
	assert.Equal(t, "#00ff5a", s.ColorFor(fptr(100)), "high end is green")
	assert.Equal(t, "#80805a", s.ColorFor(fptr(50)), "midpoint is yellowish")
}

func TestColorFor_ClampsOutOfDomain(t *testing.T) {
	s := ColorScale{Domain: Domain{Min: 10, Max: 20}}
	assert.Equal(t, s.ColorFor(fptr(10)), s.ColorFor(fptr(-100)))
	assert.Equal(t, s.ColorFor(fptr(20)), s.ColorFor(fptr(999)))
}

func TestColorFor_MissingAndNaN(t *testing.T) {
	s := ColorScale{Domain: Domain{Min: 0, Max: 1}}
	assert.Equal(t, NeutralFill, s.ColorFor(nil))
	assert.Equal(t, NeutralFill, s.ColorFor(fptr(math.NaN())))
}

func TestColorFor_Invert(t *testing.T) {
	plain := ColorScale{Domain: Domain{Min: 0, Max: 1}}
	inverted := ColorScale{Domain: Domain{Min: 0, Max: 1}, Invert: true}

	assert.Equal(t, plain.ColorFor(fptr(0)), inverted.ColorFor(fptr(1)))
	assert.Equal(t, plain.ColorFor(fptr(1)), inverted.ColorFor(fptr(0)))
}

func TestColorFor_ZeroWidthDomain(t *testing.T) {
	s := ColorScale{Domain: Domain{Min: 7, Max: 7}}
	// Uniform data renders uniformly at the low end of the ramp.
	assert.Equal(t, "#ff005a", s.ColorFor(fptr(7)))
}

func TestColorFor_GreenMonotonicity(t *testing.T) {
	s := ColorScale{Domain: Domain{Min: 0, Max: 1}}
	prevGreen := -1
	for _, v := range []float64{0, 0.25, 0.5, 0.75, 1} {
		c := s.ColorFor(fptr(v))
		g := hexByte(t, c[3:5])
		assert.Greater(t, g, prevGreen)
		prevGreen = g
	}
}

func hexByte(t *testing.T, s string) int {
	t.Helper()
	var v int
	for _, ch := range s {
		v <<= 4
		switch {
		case ch >= '0' && ch <= '9':
			v += int(ch - '0')
		case ch >= 'a' && ch <= 'f':
			v += int(ch-'a') + 10
		default:
			t.Fatalf("bad hex digit %q", ch)
		}
	}
	return v
}
