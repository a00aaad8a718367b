package udp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

type ListenerConfig struct {
	// Listen is the UDP bind address, e.g. ":49002".
	Listen string

	// MaxDatagramBytes bounds the receive buffer; the kernel truncates
	// anything longer.
	MaxDatagramBytes int

	// RetryDelay spaces out retries after a transient receive error.
	RetryDelay time.Duration
}

// Listener binds a UDP socket and hands every newline-separated sentence of
// every datagram to a callback. Sender identity is ignored: whoever hits the
// port is the simulator.
type Listener struct {
	cfg ListenerConfig

	started atomic.Bool
	closed  atomic.Bool

	mu        sync.RWMutex
	conn      net.PacketConn
	state     string
	lastErr   string
	lastSeen  time.Time
	datagrams uint64
	lines     uint64
	readErrs  uint64

	cancel context.CancelFunc
	done   chan struct{}
}

type ListenerSnapshot struct {
	Listen      string `json:"listen"`
	State       string `json:"state"`
	LastError   string `json:"last_error,omitempty"`
	LastSeenUTC string `json:"last_seen_utc,omitempty"`
	Datagrams   uint64 `json:"datagrams"`
	Lines       uint64 `json:"lines"`
	ReadErrors  uint64 `json:"read_errors"`
}

func NewListener(cfg ListenerConfig) (*Listener, error) {
	if cfg.Listen == "" {
		return nil, fmt.Errorf("listener listen address is required")
	}
	if cfg.MaxDatagramBytes <= 0 {
		cfg.MaxDatagramBytes = 4096
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	return &Listener{cfg: cfg, state: "stopped", done: make(chan struct{})}, nil
}

// Start binds the socket and begins delivering sentences. Each datagram is
// split on newlines; onLine receives a copy of every non-empty line with
// surrounding whitespace trimmed.
//
// A bind failure is returned immediately. Receive errors after a successful
// bind are recorded in the snapshot and retried; they never end the loop.
// onLine should be fast and must handle its own parse failures.
func (l *Listener) Start(ctx context.Context, onLine func(line []byte) error) error {
	if l == nil {
		return fmt.Errorf("listener is nil")
	}
	if l.closed.Load() {
		return fmt.Errorf("listener is closed")
	}
	if onLine == nil {
		return fmt.Errorf("listener onLine is nil")
	}
	if l.started.Swap(true) {
		return fmt.Errorf("listener already started")
	}

	lc := net.ListenConfig{Control: listenControl}
	conn, err := lc.ListenPacket(ctx, "udp", l.cfg.Listen)
	if err != nil {
		l.setState("error", err.Error())
		close(l.done)
		return fmt.Errorf("bind %s: %w", l.cfg.Listen, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.setState("listening", "")

	// ReadFrom has no deadline; closing the socket is what unblocks it
	// when the context ends.
	go func() {
		<-runCtx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(l.done)
		l.runLoop(runCtx, conn, onLine)
	}()
	return nil
}

// Addr reports the bound address, or nil before Start. It is how callers
// learn the real port when Listen used port 0.
func (l *Listener) Addr() net.Addr {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

func (l *Listener) Close() {
	if l == nil {
		return
	}
	if l.closed.Swap(true) {
		return
	}
	if l.cancel != nil {
		l.cancel()
	}
	if l.started.Load() {
		<-l.done
	}
}

func (l *Listener) Snapshot() ListenerSnapshot {
	if l == nil {
		return ListenerSnapshot{}
	}
	l.mu.RLock()
	state := l.state
	lastErr := l.lastErr
	lastSeen := l.lastSeen
	datagrams := l.datagrams
	lines := l.lines
	readErrs := l.readErrs
	l.mu.RUnlock()

	out := ListenerSnapshot{
		Listen:     l.cfg.Listen,
		State:      state,
		LastError:  lastErr,
		Datagrams:  datagrams,
		Lines:      lines,
		ReadErrors: readErrs,
	}
	if !lastSeen.IsZero() {
		out.LastSeenUTC = lastSeen.UTC().Format(time.RFC3339Nano)
	}
	return out
}

func (l *Listener) runLoop(ctx context.Context, conn net.PacketConn, onLine func(line []byte) error) {
	buf := make([]byte, l.cfg.MaxDatagramBytes)

	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.setState("stopped", "")
				return
			}
			l.mu.Lock()
			l.readErrs++
			l.mu.Unlock()
			l.setState("error", err.Error())
			if !sleepCtx(ctx, l.cfg.RetryDelay) {
				l.setState("stopped", "")
				return
			}
			continue
		}

		emitted := uint64(0)
		handlerFailed := false
		for _, chunk := range bytes.Split(buf[:n], []byte{'\n'}) {
			line := bytes.TrimSpace(chunk)
			if len(line) == 0 {
				continue
			}
			raw := append([]byte(nil), line...)
			if err := onLine(raw); err != nil {
				l.setState("error", "handler: "+err.Error())
				handlerFailed = true
				continue
			}
			emitted++
		}

		// A handler error sticks in the snapshot until a datagram goes
		// through clean.
		now := time.Now().UTC()
		l.mu.Lock()
		if !handlerFailed {
			l.state = "listening"
			l.lastErr = ""
		}
		if emitted > 0 {
			l.lastSeen = now
		}
		l.datagrams++
		l.lines += emitted
		l.mu.Unlock()
	}
}

func (l *Listener) setState(state string, lastErr string) {
	l.mu.Lock()
	l.state = state
	if lastErr != "" {
		l.lastErr = lastErr
	} else {
		// Clear stale errors on healthy/neutral states so status output doesn't
		// look broken after a transient receive failure.
		if state == "listening" || state == "stopped" {
			l.lastErr = ""
		}
	}
	l.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
