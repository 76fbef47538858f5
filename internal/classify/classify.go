package classify

import "fmt"

const (
	StatusSafe    = "safe"
	StatusWarning = "warning"
	StatusDanger  = "danger"
)

const (
	TypeFire  = "fire"
	TypeSmoke = "smoke"
)

// Fixed sensor thresholds. Devices in the field depend on these exact
// values, do not tune without a coordinated firmware release.
const (
	gasDangerAbove  = 700.0
	gasWarningAbove = 400.0
	// Flame sensor is inverted: lower reading = stronger flame signal.
	flameDangerBelow  = 200.0
	flameWarningBelow = 500.0
)

const (
	levelDanger  = 100
	levelWarning = 60
	levelSafe    = 0
)

// Classification is the result of evaluating one pair of sensor readings.
type Classification struct {
	GasReading   float64 `json:"gas"`
	GasStatus    string  `json:"gasStatus"`
	FlameReading float64 `json:"flame"`
	FlameStatus  string  `json:"flameStatus"`
	Level        int     `json:"level"`
	Type         string  `json:"type"`
	Message      string  `json:"message"`
	IsAlarm      bool    `json:"isAlarm"`
}

// Classify maps raw gas and flame readings to a danger classification.
// It is pure and deterministic; negative readings clamp to zero.
func Classify(gas, flame float64) Classification {
	if gas < 0 {
		gas = 0
	}
	if flame < 0 {
		flame = 0
	}

	gasStatus := StatusSafe
	switch {
	case gas > gasDangerAbove:
		gasStatus = StatusDanger
	case gas > gasWarningAbove:
		gasStatus = StatusWarning
	}

	flameStatus := StatusSafe
	switch {
	case flame < flameDangerBelow:
		flameStatus = StatusDanger
	case flame < flameWarningBelow:
		flameStatus = StatusWarning
	}

	gasLevel := statusLevel(gasStatus)
	flameLevel := statusLevel(flameStatus)
	level := gasLevel
	if flameLevel > level {
		level = flameLevel
	}

	// Any flame signal wins; the final smoke fallback is unreachable while
	// isAlarm requires a non-zero level, kept for wire compatibility.
	alertType := TypeSmoke
	if flameLevel > 0 {
		alertType = TypeFire
	}

	return Classification{
		GasReading:   gas,
		GasStatus:    gasStatus,
		FlameReading: flame,
		FlameStatus:  flameStatus,
		Level:        level,
		Type:         alertType,
		Message:      fmt.Sprintf("Gas: %v (%s), Flame: %v (%s)", gas, gasStatus, flame, flameStatus),
		IsAlarm:      level > 0,
	}
}

func statusLevel(status string) int {
	switch status {
	case StatusDanger:
		return levelDanger
	case StatusWarning:
		return levelWarning
	default:
		return levelSafe
	}
}
