package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

func Handler(status *Status, logs *LogBuffer, feed *Feed, feedPath string) http.Handler {
	mux := http.NewServeMux()

	if feed != nil && feedPath != "" {
		mux.Handle(feedPath, feed.Handler())
	}

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.Handle("/api/about", AboutHandler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>simbridge</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>simbridge</h1>")
		_, _ = fmt.Fprintf(w, "<p>Telemetry feed: <code>ws://%s%s</code></p>", r.Host, snap.FeedPath)
		_, _ = fmt.Fprintf(w, "<p>Diagnostics: <a href=\"/api/status\">/api/status</a> &middot; <a href=\"/api/logs?format=text\">/api/logs</a> &middot; <a href=\"/api/about\">/api/about</a></p>")
		_, _ = fmt.Fprintf(w, "<pre>mode=%s\nudp_listen=%s\ninterval=%s\nclients=%d\nframes_sent_total=%d\nlast_tick_utc=%s</pre>",
			snap.Mode, snap.UDPListen, snap.Interval, snap.Clients, snap.FramesSentTotal, snap.LastTickUTC,
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

// Serve runs the HTTP server on an already bound listener until ctx ends,
// then drains with a short shutdown grace. Binding happens at the caller so
// a bad feed.listen fails startup instead of surfacing later.
func Serve(ctx context.Context, ln net.Listener, status *Status, logs *LogBuffer, feed *Feed, feedPath string) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Handler:           Handler(status, logs, feed, feedPath),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
		// No ReadTimeout/WriteTimeout here: the feed endpoint hijacks its
		// connections and holds them open for the life of the client.
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
