package web

import (
	"sync/atomic"
	"time"

	"simbridge/internal/telemetry"
	"simbridge/internal/udp"
)

// Status aggregates bridge diagnostics for /api/status. Counters are updated
// from the ingest callback and the broadcast tick without shared locks.
type Status struct {
	startUnixNano int64
	framesSent    uint64
	lastTickNano  int64
	clients       int64

	positions uint64
	attitudes uint64
	unknown   uint64
	malformed uint64

	mode       atomic.Value // string
	udpListen  atomic.Value // string
	feedListen atomic.Value // string
	feedPath   atomic.Value // string
	interval   atomic.Value // string
	ingest     atomic.Value // udp.ListenerSnapshot
	telemetry  atomic.Value // TelemetryStatus
}

func NewStatus() *Status {
	s := &Status{}
	now := time.Now().UTC()
	atomic.StoreInt64(&s.startUnixNano, now.UnixNano())
	atomic.StoreInt64(&s.lastTickNano, 0)
	s.mode.Store("")
	s.udpListen.Store("")
	s.feedListen.Store("")
	s.feedPath.Store("")
	s.interval.Store("")
	s.ingest.Store(udp.ListenerSnapshot{})
	s.telemetry.Store(TelemetryStatus{})
	return s
}

// TelemetryStatus is a status-page view of the latest stored telemetry. It is
// for humans checking the bridge, not the feed contract.
type TelemetryStatus struct {
	Position *PositionStatus `json:"position,omitempty"`
	Attitude *AttitudeStatus `json:"attitude,omitempty"`
}

type PositionStatus struct {
	SimName  string  `json:"sim_name,omitempty"`
	LatDeg   float64 `json:"lat_deg"`
	LonDeg   float64 `json:"lon_deg"`
	AltMSLFt float64 `json:"alt_msl_ft"`
	TrackDeg float64 `json:"track_deg"`
	GroundKt float64 `json:"ground_kt"`
	SeenUTC  string  `json:"seen_utc,omitempty"`
}

type AttitudeStatus struct {
	SimName    string  `json:"sim_name,omitempty"`
	HeadingDeg float64 `json:"heading_deg"`
	PitchDeg   float64 `json:"pitch_deg"`
	RollDeg    float64 `json:"roll_deg"`
	SeenUTC    string  `json:"seen_utc,omitempty"`
}

// TelemetryStatusOf converts a store snapshot into the status-page view.
func TelemetryStatusOf(snap telemetry.Snapshot) TelemetryStatus {
	var out TelemetryStatus
	if p := snap.Position; p != nil {
		out.Position = &PositionStatus{
			SimName:  p.SimName,
			LatDeg:   p.LatDeg,
			LonDeg:   p.LonDeg,
			AltMSLFt: p.AltMSLFt,
			TrackDeg: p.TrackDeg,
			GroundKt: p.GroundKt,
		}
		if !p.SeenAt.IsZero() {
			out.Position.SeenUTC = p.SeenAt.UTC().Format(time.RFC3339Nano)
		}
	}
	if a := snap.Attitude; a != nil {
		out.Attitude = &AttitudeStatus{
			SimName:    a.SimName,
			HeadingDeg: a.HeadingDeg,
			PitchDeg:   a.PitchDeg,
			RollDeg:    a.RollDeg,
		}
		if !a.SeenAt.IsZero() {
			out.Attitude.SeenUTC = a.SeenAt.UTC().Format(time.RFC3339Nano)
		}
	}
	return out
}

func (s *Status) SetStatic(mode, udpListen, feedListen, feedPath, interval string) {
	if mode != "" {
		s.mode.Store(mode)
	}
	if udpListen != "" {
		s.udpListen.Store(udpListen)
	}
	if feedListen != "" {
		s.feedListen.Store(feedListen)
	}
	if feedPath != "" {
		s.feedPath.Store(feedPath)
	}
	if interval != "" {
		s.interval.Store(interval)
	}
}

func (s *Status) CountPosition()  { atomic.AddUint64(&s.positions, 1) }
func (s *Status) CountAttitude()  { atomic.AddUint64(&s.attitudes, 1) }
func (s *Status) CountUnknown()   { atomic.AddUint64(&s.unknown, 1) }
func (s *Status) CountMalformed() { atomic.AddUint64(&s.malformed, 1) }

func (s *Status) MarkTick(nowUTC time.Time, framesSentThisTick int) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.lastTickNano, nowUTC.UnixNano())
	if framesSentThisTick > 0 {
		atomic.AddUint64(&s.framesSent, uint64(framesSentThisTick))
	}
}

func (s *Status) SetClients(n int) {
	atomic.StoreInt64(&s.clients, int64(n))
}

func (s *Status) SetIngest(snap udp.ListenerSnapshot) {
	s.ingest.Store(snap)
}

func (s *Status) SetTelemetry(ts TelemetryStatus) {
	s.telemetry.Store(ts)
}

type SentenceCounts struct {
	Positions uint64 `json:"positions"`
	Attitudes uint64 `json:"attitudes"`
	Unknown   uint64 `json:"unknown"`
	Malformed uint64 `json:"malformed"`
}

type StatusSnapshot struct {
	Service         string               `json:"service"`
	NowUTC          string               `json:"now_utc"`
	UptimeSec       int64                `json:"uptime_sec"`
	Mode            string               `json:"mode"`
	UDPListen       string               `json:"udp_listen"`
	FeedListen      string               `json:"feed_listen"`
	FeedPath        string               `json:"feed_path"`
	Interval        string               `json:"interval"`
	Clients         int64                `json:"clients"`
	FramesSentTotal uint64               `json:"frames_sent_total"`
	LastTickUTC     string               `json:"last_tick_utc,omitempty"`
	Sentences       SentenceCounts       `json:"sentences"`
	Ingest          udp.ListenerSnapshot `json:"ingest"`
	Telemetry       TelemetryStatus      `json:"telemetry"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	uptime := nowUTC.Sub(start)
	lastTick := atomic.LoadInt64(&s.lastTickNano)

	snap := StatusSnapshot{
		Service:         "simbridge",
		NowUTC:          nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:       int64(uptime.Seconds()),
		Mode:            s.mode.Load().(string),
		UDPListen:       s.udpListen.Load().(string),
		FeedListen:      s.feedListen.Load().(string),
		FeedPath:        s.feedPath.Load().(string),
		Interval:        s.interval.Load().(string),
		Clients:         atomic.LoadInt64(&s.clients),
		FramesSentTotal: atomic.LoadUint64(&s.framesSent),
		Sentences: SentenceCounts{
			Positions: atomic.LoadUint64(&s.positions),
			Attitudes: atomic.LoadUint64(&s.attitudes),
			Unknown:   atomic.LoadUint64(&s.unknown),
			Malformed: atomic.LoadUint64(&s.malformed),
		},
		Ingest:    s.ingest.Load().(udp.ListenerSnapshot),
		Telemetry: s.telemetry.Load().(TelemetryStatus),
	}
	if lastTick != 0 {
		snap.LastTickUTC = time.Unix(0, lastTick).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
