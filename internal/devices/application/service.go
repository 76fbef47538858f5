package application

import (
	"context"
	"errors"
	"time"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
)

// DefaultSuppressWindow is how long mark-safe silences a device.
const DefaultSuppressWindow = 60 * time.Second

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// DeviceStore is the persistence surface the service needs.
type DeviceStore interface {
	GetByCode(ctx context.Context, code string) (*devices.Device, error)
	GetByID(ctx context.Context, id int64) (*devices.Device, error)
	GetOwned(ctx context.Context, id, ownerID int64) (*devices.Device, error)
	Insert(ctx context.Context, device *devices.Device) error
	Claim(ctx context.Context, code string, ownerID int64, name, location string) error
	ListByOwner(ctx context.Context, ownerID int64) ([]devices.Device, error)
	OpenSuppression(ctx context.Context, id int64, until time.Time) error
}

// Service handles user-facing device operations: claim, list, mark-safe.
type Service struct {
	store          DeviceStore
	alerts         *alertapp.Service
	clock          Clock
	suppressWindow time.Duration
}

// ServiceOption customizes the device service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithSuppressWindow overrides the mark-safe suppression window.
func WithSuppressWindow(window time.Duration) ServiceOption {
	return func(s *Service) {
		if window > 0 {
			s.suppressWindow = window
		}
	}
}

// NewService constructs a device service.
func NewService(store DeviceStore, alerts *alertapp.Service, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("devices: nil store")
	}
	if alerts == nil {
		return nil, errors.New("devices: nil alert service")
	}
	service := &Service{
		store:          store,
		alerts:         alerts,
		clock:          systemClock{},
		suppressWindow: DefaultSuppressWindow,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Claim registers a device under the caller. An existing unclaimed device
// (or one already owned by the caller) is claimed in place with the new
// name and location; a device owned by someone else is a conflict; an
// unknown code creates the device outright.
func (s *Service) Claim(ctx context.Context, userID int64, code, name, location string) (*devices.Device, error) {
	if s == nil {
		return nil, errors.New("devices: nil service")
	}
	if userID == 0 || code == "" || name == "" {
		return nil, errors.New("devices: missing fields")
	}
	existing, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Claimed() && existing.OwnerUserID != userID {
			return nil, devices.ErrAlreadyClaimed
		}
		if err := s.store.Claim(ctx, code, userID, name, location); err != nil {
			return nil, err
		}
		return s.store.GetByCode(ctx, code)
	}
	device := &devices.Device{
		Code:        code,
		Name:        name,
		Location:    location,
		OwnerUserID: userID,
		Status:      devices.StatusOK,
	}
	if err := s.store.Insert(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// List returns the caller's devices, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]devices.Device, error) {
	if s == nil {
		return nil, errors.New("devices: nil service")
	}
	if userID == 0 {
		return nil, errors.New("devices: user id required")
	}
	return s.store.ListByOwner(ctx, userID)
}

// MarkSafe is the user's "I checked, we are fine" action: the device goes
// safe, a suppression window opens, and every active alert is resolved
// with the caller as acker. Subscribers get a device_update event.
func (s *Service) MarkSafe(ctx context.Context, userID, deviceID int64) (*devices.Device, error) {
	if s == nil {
		return nil, errors.New("devices: nil service")
	}
	device, err := s.store.GetOwned(ctx, deviceID, userID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, devices.ErrNotFound
	}

	until := s.clock.Now().UTC().Add(s.suppressWindow)
	if err := s.store.OpenSuppression(ctx, device.ID, until); err != nil {
		return nil, err
	}
	if err := s.alerts.ResolveForDevice(ctx, device.ID, userID); err != nil {
		return nil, err
	}
	device.Status = devices.StatusSafe
	device.SuppressUntil = until

	s.alerts.Publish(ctx, userID, "device_update", deviceUpdate{
		ID:            device.ID,
		Status:        device.Status,
		SuppressUntil: until,
	})
	return device, nil
}

type deviceUpdate struct {
	ID            int64     `json:"id"`
	Status        string    `json:"status"`
	SuppressUntil time.Time `json:"suppress_until"`
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
