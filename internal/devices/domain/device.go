package devices

import "time"

const (
	StatusOK    = "ok"
	StatusSafe  = "safe"
	StatusAlarm = "alarm"
)

// Device represents a registered or unclaimed fire/smoke sensor unit.
// OwnerUserID is zero while the device is unclaimed; SuppressUntil is the
// zero time when no suppression window is open.
type Device struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Location      string    `json:"location,omitempty"`
	OwnerUserID   int64     `json:"owner_user_id,omitempty"`
	Status        string    `json:"status"`
	LastSeen      time.Time `json:"last_seen,omitempty"`
	SuppressUntil time.Time `json:"suppress_until,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Claimed reports whether the device has an owner.
func (d Device) Claimed() bool {
	return d.OwnerUserID != 0
}

// SuppressionActive reports whether a suppression window is open at now.
func (d Device) SuppressionActive(now time.Time) bool {
	return !d.SuppressUntil.IsZero() && d.SuppressUntil.After(now)
}

// SuppressionExpired reports whether a past window is still recorded and
// should be cleared on the next write.
func (d Device) SuppressionExpired(now time.Time) bool {
	return !d.SuppressUntil.IsZero() && !d.SuppressUntil.After(now)
}

// UnclaimedName is the placeholder name given to auto-created devices.
func UnclaimedName(code string) string {
	return "Unclaimed " + code
}
