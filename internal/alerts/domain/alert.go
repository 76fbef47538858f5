package alerts

import (
	"errors"
	"time"
)

const (
	TypeFire  = "fire"
	TypeSmoke = "smoke"
)

// Alert is one persisted alert record. The Device* fields are joined
// device summary columns filled by list/get queries; alerts are never
// deleted, acknowledging only flips IsActive off.
type Alert struct {
	ID          int64     `json:"id"`
	DeviceID    int64     `json:"device_id"`
	Type        string    `json:"type"`
	Level       int       `json:"level"`
	Message     string    `json:"message,omitempty"`
	IsActive    bool      `json:"is_active"`
	AckByUserID int64     `json:"ack_by_user_id,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	DeviceCode     string `json:"code,omitempty"`
	DeviceName     string `json:"device_name,omitempty"`
	DeviceLocation string `json:"location,omitempty"`
}

var (
	// ErrNotFound is returned for missing alerts and for alerts on devices
	// the caller does not own.
	ErrNotFound = errors.New("alerts: not found")
)

// ValidType reports whether t is a supported alert type.
func ValidType(t string) bool {
	return t == TypeFire || t == TypeSmoke
}
