package devices

import "time"

// Outcome tags the result of a sensor-event transition so callers handle
// all three cases exhaustively instead of juggling booleans.
type Outcome int

const (
	// OutcomeNoAlarm means the readings were below every alarm threshold.
	OutcomeNoAlarm Outcome = iota
	// OutcomeSuppressed means alarm-level readings arrived inside an open
	// suppression window; no alert is raised.
	OutcomeSuppressed
	// OutcomeAlarm means an alert must be created and broadcast.
	OutcomeAlarm
)

// Transition is the decision for one incoming event or heartbeat.
type Transition struct {
	NextStatus       string
	Outcome          Outcome
	ClearSuppression bool
	// SuppressUntil echoes the window end when Outcome is OutcomeSuppressed.
	SuppressUntil time.Time
}

// EvaluateSensor decides the next device status for a classified sensor
// event. An expired window is cleared before evaluation; an active window
// forces status safe and blocks alert creation entirely.
func EvaluateSensor(d Device, isAlarm bool, now time.Time) Transition {
	tr := Transition{ClearSuppression: d.SuppressionExpired(now)}

	if d.SuppressionActive(now) {
		tr.NextStatus = StatusSafe
		if isAlarm {
			tr.Outcome = OutcomeSuppressed
			tr.SuppressUntil = d.SuppressUntil
		}
		return tr
	}

	if isAlarm {
		tr.NextStatus = StatusAlarm
		tr.Outcome = OutcomeAlarm
		return tr
	}
	tr.NextStatus = StatusOK
	return tr
}

// EvaluateHeartbeat decides the next status for a liveness ping. Alarm is
// sticky: a heartbeat never escalates and never clears it. Otherwise the
// device resolves to safe while suppressed, ok when not.
func EvaluateHeartbeat(d Device, now time.Time) Transition {
	tr := Transition{
		Outcome:          OutcomeNoAlarm,
		ClearSuppression: d.SuppressionExpired(now),
	}
	switch {
	case d.Status == StatusAlarm:
		tr.NextStatus = StatusAlarm
	case d.SuppressionActive(now):
		tr.NextStatus = StatusSafe
	default:
		tr.NextStatus = StatusOK
	}
	return tr
}
