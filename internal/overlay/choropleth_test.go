package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypath/overlay/pkg/errors"
	"github.com/citypath/overlay/pkg/types/geo"
)

// mapDecoder serves fixed rings so scene tests do not depend on real H3
// indexes.
type mapDecoder map[string][]geo.LatLng

func (d mapDecoder) Boundary(hexID string) ([]geo.LatLng, error) {
	ring, ok := d[hexID]
	if !ok {
		return nil, errors.Geometry("unknown cell").WithDetail(hexID)
	}
	return ring, nil
}

func testRing() []geo.LatLng {
	return []geo.LatLng{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}}
}

func TestBuild_ColorsAndLegend(t *testing.T) {
	decoder := mapDecoder{"a": testRing(), "b": testRing(), "c": testRing()}
	ch := NewChoropleth(decoder, nil, nil)

	records := []geo.CellRecord{
		{HexID: "a", Lat: 1, Lon: 2, LSTDayMean: fptr(30)},
		{HexID: "b", Lat: 3, Lon: 4, LSTDayMean: fptr(45)},
		{HexID: "c", Lat: 5, Lon: 6}, // no value
	}

	scene := ch.Build(records, ThemeHeat)

	require.Len(t, scene.Polygons, 3)
	assert.Equal(t, 0, scene.Skipped)
	assert.Equal(t, geo.MetricLSTDayMean, scene.Legend.Field)
	assert.Equal(t, Domain{Min: 30, Max: 45}, scene.Legend.Domain)
	assert.Equal(t, 2, scene.Legend.Samples)

	assert.Equal(t, "#ff005a", scene.Polygons[0].Fill, "domain minimum is red")
	assert.Equal(t, "#00ff5a", scene.Polygons[1].Fill, "domain maximum is green")
	assert.Equal(t, NeutralFill, scene.Polygons[2].Fill)
}

func TestBuild_SkipsUndecodableCells(t *testing.T) {
	decoder := mapDecoder{"good": testRing()}
	ch := NewChoropleth(decoder, nil, nil)

	records := []geo.CellRecord{
		{HexID: "good", LSTDayMean: fptr(1)},
		{HexID: "bad", LSTDayMean: fptr(2)},
	}

	scene := ch.Build(records, ThemeHeat)

	require.Len(t, scene.Polygons, 1)
	assert.Equal(t, "good", scene.Polygons[0].HexID)
	assert.Equal(t, 1, scene.Skipped)
	// The skipped cell's value still shaped the domain.
	assert.Equal(t, Domain{Min: 1, Max: 2}, scene.Legend.Domain)
}

func TestBuild_ThemeSwitchRebuilds(t *testing.T) {
	decoder := mapDecoder{"a": testRing()}
	ch := NewChoropleth(decoder, nil, nil)

	records := []geo.CellRecord{
		{HexID: "a", LSTDayMean: fptr(40), NDVIMean: fptr(0.5)},
	}

	heat := ch.Build(records, ThemeHeat)
	green := ch.Build(records, ThemeGreenspace)

	assert.Equal(t, geo.MetricLSTDayMean, heat.Legend.Field)
	assert.Equal(t, geo.MetricNDVIMean, green.Legend.Field)
	// Building one theme leaves earlier scenes untouched.
	assert.Equal(t, geo.MetricLSTDayMean, heat.Legend.Field)
}

func TestBuild_Tooltip(t *testing.T) {
	decoder := mapDecoder{"a": testRing()}
	ch := NewChoropleth(decoder, nil, nil)

	records := []geo.CellRecord{
		{HexID: "a", LSTDayMean: fptr(41.5), PopDensity: fptr(12000)},
	}

	scene := ch.Build(records, ThemeHeat)
	require.Len(t, scene.Polygons, 1)

	tip := scene.Polygons[0].Tooltip
	assert.Contains(t, tip, "Hex: a")
	assert.Contains(t, tip, "LST (°C): 41.5")
	assert.Contains(t, tip, "NDVI: —")
	assert.Contains(t, tip, "Pop: 12000")
}

func TestBuild_EmptyDataset(t *testing.T) {
	ch := NewChoropleth(mapDecoder{}, nil, nil)
	scene := ch.Build(nil, ThemePopulation)

	assert.Empty(t, scene.Polygons)
	assert.Equal(t, DefaultDomain, scene.Legend.Domain)
	assert.Equal(t, 0, scene.Legend.Samples)
}
