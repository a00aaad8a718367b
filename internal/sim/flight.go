package sim

import (
	"fmt"
	"math"
	"time"
)

const (
	mPerSecPerKt  = 0.514444
	ftPerSecPerKt = 1.68781
	mPerNm        = 1852.0
	gMPerSec2     = 9.80665
)

// Flight flies a clockwise circle of RadiusNm around the configured center
// at constant ground speed, with a gentle sinusoidal altitude profile. The
// attitude is derived from the motion: a constant coordinated right bank and
// a pitch that follows the climb.
type Flight struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltFeet      int
	GroundKt     int
	RadiusNm     float64
	Period       time.Duration
}

// State is one instant of the generated flight.
type State struct {
	LatDeg     float64
	LonDeg     float64
	AltMSLFt   float64
	TrackDeg   float64
	GroundKt   float64
	HeadingDeg float64
	PitchDeg   float64
	RollDeg    float64
}

// At returns the flight state for the given instant. The path is a function
// of absolute time, so a restarted bridge resumes mid-circle instead of
// snapping back to the start.
func (f Flight) At(now time.Time) State {
	period := f.Period
	if period <= 0 {
		period = 120 * time.Second
	}
	radiusNm := f.RadiusNm
	if radiusNm <= 0 {
		radiusNm = 0.5
	}
	groundKt := float64(f.GroundKt)
	if groundKt <= 0 {
		groundKt = 90
	}
	baseAlt := float64(f.AltFeet)
	if baseAlt == 0 {
		baseAlt = 3000
	}

	// Convert NM to degrees latitude (~60 NM per degree).
	radiusDeg := radiusNm / 60.0

	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase

	// Clockwise circle: north of the center at w=0, heading east.
	lat := f.CenterLatDeg + radiusDeg*math.Cos(w)
	lon := f.CenterLonDeg + (radiusDeg*math.Sin(w))/math.Cos(f.CenterLatDeg*math.Pi/180.0)

	// Track from instantaneous velocity (atan2(east, north)).
	trackRad := math.Atan2(math.Cos(w), -math.Sin(w))
	track := math.Mod((trackRad*180/math.Pi)+360, 360)

	// Vertical period is decoupled from horizontal to avoid repetitive sync.
	vp := period / 2
	if vp < 30*time.Second {
		vp = 30 * time.Second
	}
	const climbAmpFt = 200.0

	vphase := float64(now.UnixNano()%vp.Nanoseconds()) / float64(vp.Nanoseconds())
	vw := 2 * math.Pi * vphase
	alt := baseAlt + climbAmpFt*math.Sin(vw)

	// Bank for a coordinated turn at this speed and radius, right wing down
	// in a clockwise circle: atan(v^2 / (g*r)).
	v := groundKt * mPerSecPerKt
	r := radiusNm * mPerNm
	roll := math.Atan2(v*v, gMPerSec2*r) * 180 / math.Pi

	// Pitch follows the climb: d/dt (amp*sin(vw)) over ground speed.
	climbFtPerSec := climbAmpFt * (2 * math.Pi / vp.Seconds()) * math.Cos(vw)
	pitch := math.Atan2(climbFtPerSec, groundKt*ftPerSecPerKt) * 180 / math.Pi

	return State{
		LatDeg:     lat,
		LonDeg:     lon,
		AltMSLFt:   alt,
		TrackDeg:   track,
		GroundKt:   groundKt,
		HeadingDeg: track,
		PitchDeg:   pitch,
		RollDeg:    roll,
	}
}

// Datagram renders the state at now as one XGPS and one XATT sentence in a
// single newline-separated payload, the way simulators batch their
// broadcast. Longitude comes first in the XGPS field order.
func (f Flight) Datagram(name string, now time.Time) []byte {
	st := f.At(now)
	return []byte(fmt.Sprintf("XGPS%s,%.6f,%.6f,%.1f,%.2f,%.1f\nXATT%s,%.1f,%.1f,%.1f\n",
		name, st.LonDeg, st.LatDeg, st.AltMSLFt, st.TrackDeg, st.GroundKt,
		name, st.HeadingDeg, st.PitchDeg, st.RollDeg))
}
