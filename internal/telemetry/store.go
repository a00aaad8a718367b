package telemetry

import (
	"sync"
	"time"

	"simbridge/internal/foreflight"
)

// Position is the most recent position report accepted from the simulator.
type Position struct {
	SimName  string
	LatDeg   float64
	LonDeg   float64
	AltMSLFt float64
	TrackDeg float64
	GroundKt float64
	SeenAt   time.Time
}

// Attitude is the most recent attitude report accepted from the simulator.
type Attitude struct {
	SimName    string
	HeadingDeg float64
	PitchDeg   float64
	RollDeg    float64
	SeenAt     time.Time
}

// Snapshot is a copy of the store contents at one instant. A nil section
// means that category has never been received.
type Snapshot struct {
	Position *Position
	Attitude *Attitude
}

// Store keeps the latest position and attitude. The two slots are
// independent and each write replaces its slot wholesale; values are never
// merged, aged out, or defaulted.
type Store struct {
	mu       sync.RWMutex
	position *Position
	attitude *Attitude
}

func NewStore() *Store {
	return &Store{}
}

// SetPosition replaces the position slot. A zero nowUTC means time.Now.
func (s *Store) SetPosition(nowUTC time.Time, simName string, p foreflight.Position) {
	if s == nil {
		return
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	rec := &Position{
		SimName:  simName,
		LatDeg:   p.LatDeg,
		LonDeg:   p.LonDeg,
		AltMSLFt: p.AltMSLFt,
		TrackDeg: p.TrackDeg,
		GroundKt: p.GroundKt,
		SeenAt:   nowUTC.UTC(),
	}
	s.mu.Lock()
	s.position = rec
	s.mu.Unlock()
}

// SetAttitude replaces the attitude slot. A zero nowUTC means time.Now.
func (s *Store) SetAttitude(nowUTC time.Time, simName string, a foreflight.Attitude) {
	if s == nil {
		return
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	rec := &Attitude{
		SimName:    simName,
		HeadingDeg: a.HeadingDeg,
		PitchDeg:   a.PitchDeg,
		RollDeg:    a.RollDeg,
		SeenAt:     nowUTC.UTC(),
	}
	s.mu.Lock()
	s.attitude = rec
	s.mu.Unlock()
}

// Snapshot returns copies, so callers can serialize without racing writers.
func (s *Store) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out Snapshot
	if s.position != nil {
		p := *s.position
		out.Position = &p
	}
	if s.attitude != nil {
		a := *s.attitude
		out.Attitude = &a
	}
	return out
}
