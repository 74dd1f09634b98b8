package irrigation

import "time"

// ZoneState is a snapshot of a zone as last seen by its controller.
type ZoneState struct {
	Zone                      int       `json:"zone"`
	Running                   bool      `json:"running"`
	RemainingSeconds          int       `json:"remaining_seconds"`
	ConfiguredDurationSeconds int       `json:"configured_duration_seconds"`
	UpdatedAt                 time.Time `json:"updated_at"`
	// Starts counts acknowledged starts since the controller was created.
	Starts    int       `json:"starts"`
	StartedAt time.Time `json:"started_at"`
}

// Level is the remaining fraction of the current run scaled to 0..255,
// the way a dimmable light would show it.
func (s ZoneState) Level() uint8 {
	if s.Running == false || s.ConfiguredDurationSeconds <= 0 || s.RemainingSeconds <= 0 {
		return 0
	}
	if s.RemainingSeconds >= s.ConfiguredDurationSeconds {
		return 255
	}
	return uint8(s.RemainingSeconds * 255 / s.ConfiguredDurationSeconds)
}

// LevelDuration converts a 0..255 level into a run duration, as a share
// of defaultDuration.
func LevelDuration(level uint8, defaultDuration int) int {
	return int(float64(level) / 255.0 * float64(defaultDuration))
}
