package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/citypath/overlay/internal/logging"
	"github.com/citypath/overlay/pkg/errors"
	"github.com/citypath/overlay/pkg/types/geo"
)

// MarkerSentinel separates the free-text answer from the trailing JSON
// marker payload in the advisory stream. It is appended by the server only
// when the turn has follow-up map suggestions.
const MarkerSentinel = "[MARKERS]"

// StreamFunc receives advisory stream events. While the stream is open and
// no sentinel has been seen, it is invoked with (delta, false, nil) for
// each delivered text chunk. When the sentinel and its payload have been
// read, it is invoked exactly once with (remainingText, true, markers);
// markers is non-nil (possibly empty) on that call.
type StreamFunc func(delta string, final bool, markers []geo.Suggestion)

// StreamEvent is the channel form of a stream callback.
type StreamEvent struct {
	Delta   string
	Final   bool
	Markers []geo.Suggestion
}

// StreamAdvice posts the question to the advisory endpoint and decodes the
// chunked response into fn invocations. Text already delivered is never
// retracted. A network failure fails the whole call with CodeTransport;
// malformed JSON after the sentinel fails it with CodeProtocol and no
// marker list is delivered. A stream that ends without a sentinel is not an
// error: the caller treats end-of-stream as turn completion.
func (c *Client) StreamAdvice(ctx context.Context, question string, fn StreamFunc) error {
	payload, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode advisory question")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to build advisory request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		c.metrics.FetchErrors.WithLabelValues("chat", errors.CodeTransport.String()).Inc()
		return errors.Wrap(err, errors.CodeTransport, "advisory request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchErrors.WithLabelValues("chat", errors.CodeTransport.String()).Inc()
		return errors.Newf(errors.CodeTransport, "advisory endpoint returned HTTP %d", resp.StatusCode)
	}

	counted := func(delta string, final bool, markers []geo.Suggestion) {
		c.metrics.AdvisoryChunks.Inc()
		fn(delta, final, markers)
	}
	if err := decodeAdvisoryStream(resp.Body, counted); err != nil {
		c.metrics.FetchErrors.WithLabelValues("chat", errors.GetCode(err).String()).Inc()
		return err
	}
	c.log.Debug("advisory stream finished", logging.Int("question_len", len(question)))
	return nil
}

// AdviceEvents is the channel form of StreamAdvice: a finite, ordered
// sequence of events terminated either by a final event or by stream
// close. The returned error channel delivers at most one terminal error
// after the event channel closes. Canceling ctx closes the underlying
// stream and suppresses further delivery.
func (c *Client) AdviceEvents(ctx context.Context, question string) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent)
	errc := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errc)
		err := c.StreamAdvice(ctx, question, func(delta string, final bool, markers []geo.Suggestion) {
			select {
			case events <- StreamEvent{Delta: delta, Final: final, Markers: markers}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			errc <- err
		}
	}()
	return events, errc
}

// sentinelHoldback returns the length of the longest suffix of buf that is
// a proper prefix of the sentinel. While such a suffix exists the buffer
// may still grow into a sentinel, so nothing is delivered: the final
// callback must carry the complete remaining pre-sentinel text even when
// the sentinel is split across reads.
func sentinelHoldback(buf string) int {
	max := len(MarkerSentinel) - 1
	if len(buf) < max {
		max = len(buf)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(buf, MarkerSentinel[:n]) {
			return n
		}
	}
	return 0
}

// decodeAdvisoryStream consumes r chunk by chunk. Chunk boundaries carry
// no meaning: text is buffered until it can neither contain nor grow into
// a sentinel, and the post-sentinel payload is accumulated to end of
// stream before the single final callback.
func decodeAdvisoryStream(r io.Reader, fn StreamFunc) error {
	var (
		buf          strings.Builder // undelivered pre-sentinel text
		payload      bytes.Buffer    // bytes after the sentinel
		finalText    string
		sentinelSeen bool
	)
	chunk := make([]byte, 4096)

	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			if sentinelSeen {
				payload.Write(chunk[:n])
			} else {
				buf.WriteString(string(chunk[:n]))
				s := buf.String()
				if idx := strings.Index(s, MarkerSentinel); idx >= 0 {
					finalText = s[:idx]
					payload.WriteString(s[idx+len(MarkerSentinel):])
					sentinelSeen = true
					buf.Reset()
				} else if sentinelHoldback(s) == 0 && len(s) > 0 {
					fn(s, false, nil)
					buf.Reset()
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.Wrap(readErr, errors.CodeTransport, "advisory stream read failed")
		}
	}

	if !sentinelSeen {
		if rest := buf.String(); rest != "" {
			fn(rest, false, nil)
		}
		return nil
	}

	raw := strings.TrimSpace(payload.String())
	var markers []geo.Suggestion
	if err := json.Unmarshal([]byte(raw), &markers); err != nil {
		return errors.Wrap(err, errors.CodeProtocol, "malformed marker payload after sentinel")
	}
	if markers == nil {
		markers = []geo.Suggestion{}
	}
	fn(finalText, true, markers)
	return nil
}
