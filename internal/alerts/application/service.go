package application

import (
	"context"
	"errors"
	"time"

	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
	"github.com/dangdich07/fire-alert/internal/observability/metrics"
)

// Event is one realtime update addressed to a single user's subscribers.
type Event struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Notifier publishes alert lifecycle events. Implementations must never
// block or fail the caller's request path.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// AlertStore is the persistence surface the service needs.
type AlertStore interface {
	Create(ctx context.Context, alert *alerts.Alert) error
	GetByID(ctx context.Context, id int64) (*alerts.Alert, error)
	OwnedBy(ctx context.Context, alertID, userID int64) (bool, error)
	MarkAcknowledged(ctx context.Context, id, userID int64, at time.Time) error
	ListByOwner(ctx context.Context, userID int64, activeOnly bool) ([]alerts.Alert, error)
	ResolveActiveForDevice(ctx context.Context, deviceID, userID int64, at time.Time) error
}

// DeviceFinder resolves devices for manual alert creation.
type DeviceFinder interface {
	GetByID(ctx context.Context, id int64) (*devices.Device, error)
	GetByCode(ctx context.Context, code string) (*devices.Device, error)
}

// ErrNotAllowed is returned when a user targets a device owned by someone
// else through the manual-creation path.
var ErrNotAllowed = errors.New("alerts: not allowed")

// Service owns the alert lifecycle: creation, listing, acknowledge and
// bulk resolution, plus realtime publication to the owning user.
type Service struct {
	store    AlertStore
	finder   DeviceFinder
	notifier Notifier
	clock    Clock
}

// ServiceOption customizes the alert service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs an alert service.
func NewService(store AlertStore, finder DeviceFinder, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("alerts: nil store")
	}
	if finder == nil {
		return nil, errors.New("alerts: nil device finder")
	}
	service := &Service{store: store, finder: finder, clock: systemClock{}}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create persists a new active alert for a device. The returned record
// carries the device summary fields; no event is published here, callers
// own the payload shape.
func (s *Service) Create(ctx context.Context, device *devices.Device, alertType string, level int, message string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if device == nil || device.ID == 0 {
		return nil, errors.New("alerts: nil device")
	}
	if !alerts.ValidType(alertType) {
		return nil, errors.New("alerts: invalid type")
	}
	if level < 0 || level > 100 {
		return nil, errors.New("alerts: level out of range")
	}
	alert := &alerts.Alert{
		DeviceID:       device.ID,
		Type:           alertType,
		Level:          level,
		Message:        message,
		DeviceCode:     device.Code,
		DeviceName:     device.Name,
		DeviceLocation: device.Location,
	}
	if err := s.store.Create(ctx, alert); err != nil {
		return nil, err
	}
	metrics.IncAlertEvent("created")
	return alert, nil
}

// CreateManual creates an alert on behalf of a user, resolving the device
// by id or code. The caller must own the device (or the device must be
// unclaimed); the new alert is broadcast to the owner.
func (s *Service) CreateManual(ctx context.Context, userID, deviceID int64, code, alertType string, level int, message string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	var device *devices.Device
	var err error
	switch {
	case deviceID != 0:
		device, err = s.finder.GetByID(ctx, deviceID)
	case code != "":
		device, err = s.finder.GetByCode(ctx, code)
	default:
		return nil, errors.New("alerts: missing device identifier")
	}
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, devices.ErrNotFound
	}
	if device.Claimed() && device.OwnerUserID != userID {
		return nil, ErrNotAllowed
	}

	alert, err := s.Create(ctx, device, alertType, level, message)
	if err != nil {
		return nil, err
	}
	if device.Claimed() {
		s.Publish(ctx, device.OwnerUserID, "alert", alert)
	}
	return alert, nil
}

// ListAlerts returns alerts for devices owned by userID, newest first.
func (s *Service) ListAlerts(ctx context.Context, userID int64, activeOnly bool) ([]alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if userID == 0 {
		return nil, errors.New("alerts: user id required")
	}
	return s.store.ListByOwner(ctx, userID, activeOnly)
}

// Acknowledge deactivates an alert on behalf of the device owner. A
// foreign or missing alert yields ErrNotFound either way.
func (s *Service) Acknowledge(ctx context.Context, id, userID int64) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	owned, err := s.store.OwnedBy(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, alerts.ErrNotFound
	}
	if err := s.store.MarkAcknowledged(ctx, id, userID, s.clock.Now().UTC()); err != nil {
		return nil, err
	}
	alert, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, alerts.ErrNotFound
	}
	metrics.IncAlertEvent("acknowledged")
	s.Publish(ctx, userID, "alert_update", alert)
	return alert, nil
}

// ResolveForDevice deactivates every active alert of the device, with
// userID recorded as acker. Used by mark-safe.
func (s *Service) ResolveForDevice(ctx context.Context, deviceID, userID int64) error {
	if s == nil {
		return errors.New("alerts: nil service")
	}
	if err := s.store.ResolveActiveForDevice(ctx, deviceID, userID, s.clock.Now().UTC()); err != nil {
		return err
	}
	metrics.IncAlertEvent("resolved")
	return nil
}

// Publish fans out a named event to the user's live subscribers. A no-op
// without a notifier or a recipient; never returns an error.
func (s *Service) Publish(ctx context.Context, userID int64, name string, payload any) {
	if s == nil || s.notifier == nil || userID == 0 {
		return
	}
	s.notifier.Notify(ctx, Event{UserID: userID, Name: name, Payload: payload})
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
