package overlay

import (
	h3 "github.com/uber/h3-go/v4"

	"github.com/citypath/overlay/pkg/errors"
	"github.com/citypath/overlay/pkg/types/geo"
)

// BoundaryDecoder resolves a cell identifier to its boundary ring. A
// failure is scoped to that one cell; the scene builder skips it and keeps
// going.
type BoundaryDecoder interface {
	Boundary(hexID string) ([]geo.LatLng, error)
}

// H3Decoder decodes boundaries with the H3 library.
type H3Decoder struct{}

func (H3Decoder) Boundary(hexID string) ([]geo.LatLng, error) {
	cell := h3.Cell(h3.IndexFromString(hexID))
	if !cell.IsValid() {
		return nil, errors.Geometry("not a valid H3 cell index").WithDetail(hexID)
	}
	boundary := cell.Boundary()
	if len(boundary) == 0 {
		return nil, errors.Geometry("cell has no boundary").WithDetail(hexID)
	}
	ring := make([]geo.LatLng, len(boundary))
	for i, p := range boundary {
		ring[i] = geo.LatLng{Lat: p.Lat, Lon: p.Lng}
	}
	return ring, nil
}

// ChainDecoder tries each decoder in order and returns the first ring. It
// exists so an alternate index scheme can sit behind the primary decoder
// for datasets produced with older tooling.
type ChainDecoder struct {
	decoders []BoundaryDecoder
}

// NewChainDecoder builds a chain from the given decoders. With none given
// it falls back to the plain H3 decoder.
func NewChainDecoder(decoders ...BoundaryDecoder) *ChainDecoder {
	if len(decoders) == 0 {
		decoders = []BoundaryDecoder{H3Decoder{}}
	}
	return &ChainDecoder{decoders: decoders}
}

func (c *ChainDecoder) Boundary(hexID string) ([]geo.LatLng, error) {
	var lastErr error
	for _, d := range c.decoders {
		ring, err := d.Boundary(hexID)
		if err == nil {
			return ring, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.Geometry("no boundary decoder configured").WithDetail(hexID)
	}
	return nil, lastErr
}
