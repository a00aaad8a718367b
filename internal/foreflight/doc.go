package foreflight

// Package foreflight parses the ForeFlight-style telemetry sentences that
// flight simulators broadcast over UDP:
// - XGPS lines carry position, altitude, track and ground speed
// - XATT lines carry heading, pitch and roll
// - anything else is classified unknown so callers can drop it quietly
