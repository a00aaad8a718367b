package foreflight

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which telemetry category a sentence carried.
type Kind int

const (
	// KindUnknown marks a line whose prefix matches no recognized tag.
	KindUnknown Kind = iota
	KindPosition
	KindAttitude
)

func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "position"
	case KindAttitude:
		return "attitude"
	default:
		return "unknown"
	}
}

// Position is a decoded XGPS sentence. Field order on the wire, after the
// simulator name:
//
//	1: longitude (degrees, east positive)
//	2: latitude (degrees, north positive)
//	3: altitude MSL (feet)
//	4: true track over ground (degrees)
//	5: ground speed (knots)
//
// Note the wire carries longitude before latitude.
type Position struct {
	LonDeg   float64
	LatDeg   float64
	AltMSLFt float64
	TrackDeg float64
	GroundKt float64
}

// Attitude is a decoded XATT sentence. Field order on the wire, after the
// simulator name:
//
//	1: true heading (degrees)
//	2: pitch (degrees, nose up positive)
//	3: roll (degrees, right wing down positive)
type Attitude struct {
	HeadingDeg float64
	PitchDeg   float64
	RollDeg    float64
}

// Sentence is one classified line of the telemetry protocol. SimName is the
// free-form text the simulator appends to the tag ("XGPSMySim" carries
// SimName "MySim"); it is reported, never validated.
type Sentence struct {
	Kind    Kind
	SimName string

	Position Position // set when Kind is KindPosition
	Attitude Attitude // set when Kind is KindAttitude
}

// sentenceSpecs is the closed set of recognized sentence shapes. Arity counts
// the numeric fields after the name field.
var sentenceSpecs = []struct {
	tag   string
	kind  Kind
	arity int
}{
	{"XGPS", KindPosition, 5},
	{"XATT", KindAttitude, 3},
}

// Parse classifies and decodes one telemetry line.
//
// A line whose prefix matches no recognized tag yields KindUnknown and a nil
// error; whether to log it is the caller's call. A line with a recognized tag
// but the wrong field count, or a field that does not parse as a number,
// yields an error and carries no values.
func Parse(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	for _, spec := range sentenceSpecs {
		if !strings.HasPrefix(line, spec.tag) {
			continue
		}
		parts := strings.Split(line, ",")
		name := strings.TrimPrefix(parts[0], spec.tag)
		fields := parts[1:]
		if len(fields) != spec.arity {
			return Sentence{}, fmt.Errorf("%s: %d fields, want %d", spec.tag, len(fields), spec.arity)
		}
		vals := make([]float64, len(fields))
		for i, f := range fields {
			v, ok := parseFloat(f)
			if !ok {
				return Sentence{}, fmt.Errorf("%s: field %d %q is not numeric", spec.tag, i+1, f)
			}
			vals[i] = v
		}
		s := Sentence{Kind: spec.kind, SimName: name}
		switch spec.kind {
		case KindPosition:
			s.Position = Position{
				LonDeg:   vals[0],
				LatDeg:   vals[1],
				AltMSLFt: vals[2],
				TrackDeg: vals[3],
				GroundKt: vals[4],
			}
		case KindAttitude:
			s.Attitude = Attitude{
				HeadingDeg: vals[0],
				PitchDeg:   vals[1],
				RollDeg:    vals[2],
			}
		}
		return s, nil
	}
	return Sentence{Kind: KindUnknown}, nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	// ParseFloat accepts NaN and the infinities; the JSON frame cannot
	// represent them, so they count as unparseable.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
