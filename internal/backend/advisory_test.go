package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypath/overlay/internal/config"
	"github.com/citypath/overlay/pkg/errors"
	"github.com/citypath/overlay/pkg/types/geo"
)

// chunkReader yields each scripted chunk from exactly one Read call, the
// way a chunked HTTP body arrives.
type chunkReader struct {
	chunks []string
	pos    int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.chunks) {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[c.pos])
	c.pos++
	return n, nil
}

type streamRecord struct {
	delta   string
	final   bool
	markers []geo.Suggestion
}

func collectStream(t *testing.T, chunks ...string) ([]streamRecord, error) {
	t.Helper()
	var got []streamRecord
	err := decodeAdvisoryStream(&chunkReader{chunks: chunks}, func(delta string, final bool, markers []geo.Suggestion) {
		got = append(got, streamRecord{delta, final, markers})
	})
	return got, err
}

func TestDecodeAdvisoryStream_TextThenMarkers(t *testing.T) {
	got, err := collectStream(t, "hello", "[MARKERS]", `[{"hex_id":"8928308280fffff","lat":1,"lon":2,"score":0.9}]`)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, streamRecord{delta: "hello", final: false}, got[0])
	assert.True(t, got[1].final)
	assert.Empty(t, got[1].delta)
	require.Len(t, got[1].markers, 1)
	assert.Equal(t, "8928308280fffff", got[1].markers[0].HexID)
}

func TestDecodeAdvisoryStream_NoSentinel(t *testing.T) {
	got, err := collectStream(t, "ab", "cd")
	require.NoError(t, err)

	assert.Equal(t, []streamRecord{
		{delta: "ab", final: false},
		{delta: "cd", final: false},
	}, got)
}

func TestDecodeAdvisoryStream_SentinelSplitAcrossChunks(t *testing.T) {
	got, err := collectStream(t, "foo[MAR", "KERS][{\"hex_id\":\"abc\",\"lat\":0,\"lon\":0,\"score\":1}]")
	require.NoError(t, err)

	// "foo[MAR" is held back entirely, so the final event carries "foo".
	require.Len(t, got, 1)
	assert.True(t, got[0].final)
	assert.Equal(t, "foo", got[0].delta)
	require.Len(t, got[0].markers, 1)
	assert.Equal(t, "abc", got[0].markers[0].HexID)
}

func TestDecodeAdvisoryStream_PayloadSplitAcrossChunks(t *testing.T) {
	got, err := collectStream(t, "ok[MARKERS][{\"hex_id\":", "\"abc\",\"lat\":0,\"lon\":0,\"score\":1}]")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.True(t, got[0].final)
	assert.Equal(t, "ok", got[0].delta)
	require.Len(t, got[0].markers, 1)
}

func TestDecodeAdvisoryStream_EmptyMarkerList(t *testing.T) {
	got, err := collectStream(t, "done[MARKERS][]")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.True(t, got[0].final)
	assert.NotNil(t, got[0].markers)
	assert.Empty(t, got[0].markers)
}

func TestDecodeAdvisoryStream_MalformedPayload(t *testing.T) {
	got, err := collectStream(t, "bad[MARKERS][{broken")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeProtocol))
	// No final event is delivered; only text emitted before the sentinel
	// survives, and here none was flushed.
	for _, rec := range got {
		assert.False(t, rec.final)
	}
}

func TestDecodeAdvisoryStream_HeldBackTextFlushedAtEOF(t *testing.T) {
	// A trailing "[" could grow into a sentinel, so it is held back, then
	// flushed when the stream ends without one.
	got, err := collectStream(t, "maybe [")
	require.NoError(t, err)

	assert.Equal(t, []streamRecord{{delta: "maybe [", final: false}}, got)
}

func TestSentinelHoldback(t *testing.T) {
	assert.Equal(t, 0, sentinelHoldback("hello"))
	assert.Equal(t, 1, sentinelHoldback("foo["))
	assert.Equal(t, 4, sentinelHoldback("foo[MAR"))
	assert.Equal(t, 8, sentinelHoldback("[MARKERS"))
	// A complete sentinel is not a proper prefix.
	assert.Equal(t, 0, sentinelHoldback("x[MARKERS]"))
}

func TestStreamAdvice_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat/", r.URL.Path)

		flusher := w.(http.Flusher)
		io.WriteString(w, "Plant trees in the north ward.")
		flusher.Flush()
		io.WriteString(w, "[MARKERS][{\"hex_id\":\"8928308280fffff\",\"lat\":12.9,\"lon\":77.6,\"score\":0.8}]")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var got []streamRecord
	err := c.StreamAdvice(context.Background(), "where should we plant trees?", func(delta string, final bool, markers []geo.Suggestion) {
		got = append(got, streamRecord{delta, final, markers})
	})
	require.NoError(t, err)

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.True(t, last.final)
	require.Len(t, last.markers, 1)
	assert.Equal(t, "8928308280fffff", last.markers[0].HexID)

	var text string
	for _, rec := range got {
		text += rec.delta
	}
	assert.Equal(t, "Plant trees in the north ward.", text)
}

func TestStreamAdvice_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.StreamAdvice(context.Background(), "q", func(string, bool, []geo.Suggestion) {
		t.Fatal("no events expected on transport failure")
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeTransport))
}

func TestAdviceEvents_Channel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "short answer[MARKERS][]")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	events, errc := c.AdviceEvents(context.Background(), "q")

	var got []StreamEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.NoError(t, <-errc)

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.True(t, last.Final)
	assert.Equal(t, "short answer", last.Delta)
	assert.Empty(t, last.Markers)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	cfg.Backend.BaseURL = baseURL

	c, err := New(cfg.Backend, nil, nil)
	require.NoError(t, err)
	return c
}
