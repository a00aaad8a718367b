package telemetry

// Frame is the JSON document pushed to every feed client on each broadcast
// tick. Sections are omitted until their category has been received at least
// once, so a bridge with no traffic yet serializes as {}.
type Frame struct {
	Position *FramePosition `json:"position,omitempty"`
	Attitude *FrameAttitude `json:"attitude,omitempty"`
}

// FramePosition uses the consumer contract's field names. Latitude leads
// here even though the UDP sentence carries longitude first.
type FramePosition struct {
	LatitudeDeg       float64 `json:"latitudeDeg"`
	LongitudeDeg      float64 `json:"longitudeDeg"`
	MSLAltitudeFt     float64 `json:"mslAltitudeFt"`
	GPSGroundSpeedKts float64 `json:"gpsGroundSpeedKts"`
}

type FrameAttitude struct {
	RollAngleDegRight float64 `json:"rollAngleDegRight"`
	PitchAngleDegUp   float64 `json:"pitchAngleDegUp"`
	TrueHeadingDeg    float64 `json:"trueHeadingDeg"`
}

// BuildFrame maps a snapshot onto the wire shape. Values pass through
// unmodified: no unit conversion, no rounding. Track over ground is not part
// of the frame; heading travels in the attitude section only.
func BuildFrame(snap Snapshot) Frame {
	var f Frame
	if p := snap.Position; p != nil {
		f.Position = &FramePosition{
			LatitudeDeg:       p.LatDeg,
			LongitudeDeg:      p.LonDeg,
			MSLAltitudeFt:     p.AltMSLFt,
			GPSGroundSpeedKts: p.GroundKt,
		}
	}
	if a := snap.Attitude; a != nil {
		f.Attitude = &FrameAttitude{
			RollAngleDegRight: a.RollDeg,
			PitchAngleDegUp:   a.PitchDeg,
			TrueHeadingDeg:    a.HeadingDeg,
		}
	}
	return f
}
