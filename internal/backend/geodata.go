package backend

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/citypath/overlay/internal/logging"
	"github.com/citypath/overlay/pkg/errors"
	"github.com/citypath/overlay/pkg/types/geo"
)

// itemsEnvelope is the wrapped list shape some endpoints use.
type itemsEnvelope[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// decodeItems accepts either a bare JSON array or an {items: [...]}
// envelope and returns the canonical slice. The rest of the engine never
// sees the difference.
func decodeItems[T any](raw []byte, endpoint string) ([]T, error) {
	var bare []T
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	var wrapped itemsEnvelope[T]
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, errors.Wrap(err, errors.CodeProtocol, "undecodable "+endpoint+" response")
	}
	return wrapped.Items, nil
}

// Hotspots fetches the server-ranked hotspots for a theme. Intended to be
// called once per session.
func (c *Client) Hotspots(ctx context.Context, theme string, limit int) ([]geo.Hotspot, error) {
	q := url.Values{}
	q.Set("theme", theme)
	q.Set("limit", strconv.Itoa(limit))

	raw, err := c.getRaw(ctx, "hotspots", "/api/hotspots/", q)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems[geo.Hotspot](raw, "hotspots")
	if err != nil {
		c.metrics.FetchErrors.WithLabelValues("hotspots", errors.CodeProtocol.String()).Inc()
		return nil, err
	}
	c.log.Info("hotspots loaded", logging.String("theme", theme), logging.Int("count", len(items)))
	return items, nil
}

// Stats fetches the metric record for one cell. A miss surfaces as a
// CodeNotFound error; the caller decides how to render it.
func (c *Client) Stats(ctx context.Context, hexID string) (*geo.CellStats, error) {
	q := url.Values{}
	q.Set("hex_id", hexID)

	var stats geo.CellStats
	if err := c.getJSON(ctx, "stats", "/api/stats/", q, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Grid fetches the cell dataset snapshot. Records without an identifier or
// centroid are dropped here so downstream code can rely on both.
func (c *Client) Grid(ctx context.Context, limit int) ([]geo.CellRecord, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	raw, err := c.getRaw(ctx, "grid", "/api/grid/", q)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems[geo.CellRecord](raw, "grid")
	if err != nil {
		c.metrics.FetchErrors.WithLabelValues("grid", errors.CodeProtocol.String()).Inc()
		return nil, err
	}

	cleaned := items[:0]
	for _, r := range items {
		if r.HexID == "" {
			continue
		}
		cleaned = append(cleaned, r)
	}
	c.log.Info("grid loaded", logging.Int("count", len(cleaned)))
	return cleaned, nil
}

// SuggestParks fetches candidate sites for parks or tree planting.
func (c *Client) SuggestParks(ctx context.Context, limit int) ([]geo.Suggestion, error) {
	return c.suggest(ctx, "parks", limit)
}

// SuggestClinics fetches candidate clinic sites.
func (c *Client) SuggestClinics(ctx context.Context, limit int) ([]geo.Suggestion, error) {
	return c.suggest(ctx, "clinics", limit)
}

func (c *Client) suggest(ctx context.Context, kind string, limit int) ([]geo.Suggestion, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	raw, err := c.getRaw(ctx, "recommend/"+kind, "/api/recommend/"+kind, q)
	if err != nil {
		return nil, err
	}
	return decodeItems[geo.Suggestion](raw, "recommend/"+kind)
}

// Layers fetches the catalog of available map layers.
func (c *Client) Layers(ctx context.Context) (*geo.LayerCatalog, error) {
	var catalog geo.LayerCatalog
	if err := c.getJSON(ctx, "layers", "/api/layers", nil, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}
