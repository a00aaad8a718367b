package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const logMaxLineBytes = 64 * 1024

// LogBuffer keeps the most recent log lines in a fixed ring so /api/logs can
// show what a headless bridge has been doing. It implements io.Writer and is
// installed as a tee on the standard logger.
type LogBuffer struct {
	mu      sync.Mutex
	ring    []string
	head    int // next slot to write
	count   int // filled slots, up to len(ring)
	dropped uint64
	pending []byte // bytes of the current unterminated line
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &LogBuffer{ring: make([]string, maxLines)}
}

// Write implements io.Writer. Input is split on newlines; an unterminated
// tail is held back until the rest of its line arrives.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, p...)
	for {
		nl := bytes.IndexByte(b.pending, '\n')
		if nl < 0 {
			break
		}
		b.pushLocked(string(b.pending[:nl]))
		b.pending = b.pending[nl+1:]
	}
	// A writer that never sends a newline must not grow pending forever.
	if len(b.pending) > logMaxLineBytes {
		b.pushLocked(string(b.pending))
		b.pending = b.pending[:0]
	}
	return len(p), nil
}

func (b *LogBuffer) pushLocked(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	b.ring[b.head] = line
	b.head = (b.head + 1) % len(b.ring)
	if b.count < len(b.ring) {
		b.count++
	} else {
		b.dropped++
	}
}

// Tail returns up to n of the most recent lines, oldest first, plus how many
// older lines the ring has evicted overall.
func (b *LogBuffer) Tail(n int) (lines []string, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > b.count {
		n = b.count
	}
	lines = make([]string, 0, n)
	start := b.head - n
	if start < 0 {
		start += len(b.ring)
	}
	for i := 0; i < n; i++ {
		lines = append(lines, b.ring[(start+i)%len(b.ring)])
	}
	return lines, b.dropped
}

type LogsResponse struct {
	NowUTC  string   `json:"now_utc"`
	Dropped uint64   `json:"dropped"`
	Lines   []string `json:"lines"`
}

func (b *LogBuffer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		tail := 200
		if s := strings.TrimSpace(r.URL.Query().Get("tail")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 5000 {
				http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
				return
			}
			tail = v
		}

		lines, dropped := b.Tail(tail)
		if strings.EqualFold(r.URL.Query().Get("format"), "text") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			if dropped > 0 {
				_, _ = fmt.Fprintf(w, "[dropped=%d]\n", dropped)
			}
			for _, line := range lines {
				_, _ = w.Write([]byte(line))
				_, _ = w.Write([]byte("\n"))
			}
			return
		}

		resp := LogsResponse{
			NowUTC:  time.Now().UTC().Format(time.RFC3339Nano),
			Dropped: dropped,
			Lines:   lines,
		}
		bts, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(bts)
		_, _ = w.Write([]byte("\n"))
	})
}
