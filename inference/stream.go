package inference

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// wordSmoother re-chunks an incoming text stream on word boundaries so the
// client sees steady per-word deltas instead of whatever chunk sizes the
// provider happened to flush. Invariant: the concatenation of everything
// returned by Push and Flush equals, byte for byte, the concatenation of
// everything pushed in.
type wordSmoother struct {
	pending strings.Builder
}

// Push appends a chunk and returns the complete words now available, each
// including its trailing whitespace. A trailing partial word stays buffered.
func (s *wordSmoother) Push(chunk string) []string {
	s.pending.WriteString(chunk)
	buf := s.pending.String()

	cut := strings.LastIndexAny(buf, " \t\n")
	if cut < 0 {
		return nil
	}
	ready, rest := buf[:cut+1], buf[cut+1:]
	s.pending.Reset()
	s.pending.WriteString(rest)

	var words []string
	for len(ready) > 0 {
		i := strings.IndexAny(ready, " \t\n")
		words = append(words, ready[:i+1])
		ready = ready[i+1:]
	}
	return words
}

// Flush returns whatever partial word remains.
func (s *wordSmoother) Flush() string {
	rest := s.pending.String()
	s.pending.Reset()
	return rest
}

// sseWriter emits OpenAI-style SSE chunks to the client and tracks the first
// write error so the reader loop can stop pumping a dead connection.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	err     error

	// emitted counts content bytes delivered, for usage estimation when the
	// provider never reports usage.
	emitted int
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

// start sends the streaming headers. Must precede any chunk.
func (s *sseWriter) start() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// content emits one text delta.
func (s *sseWriter) content(text string) {
	if s.err != nil || text == "" {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"delta": map[string]string{"content": text}},
		},
	})
	if err != nil {
		s.err = err
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.err = err
		return
	}
	s.emitted += len(text)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// done terminates the stream.
func (s *sseWriter) done() {
	if s.err != nil {
		return
	}
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		s.err = err
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
