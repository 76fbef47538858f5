// Package application orchestrates device ingestion: classifying raw
// sensor readings, advancing the device state machine and raising alerts
// for claimed devices.
package application

import (
	"context"
	"errors"
	"log"
	"time"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
	"github.com/dangdich07/fire-alert/internal/classify"
	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
	"github.com/dangdich07/fire-alert/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// DeviceStore is the persistence surface ingestion needs.
type DeviceStore interface {
	EnsureByCode(ctx context.Context, code string) (*devices.Device, error)
	SetStatusSeen(ctx context.Context, id int64, status string, seenAt time.Time, clearSuppression bool) error
}

// Result is the outcome of one ingested event or heartbeat. Suppressed
// reports whether the device's suppression window was open when the
// message arrived, regardless of the outcome.
type Result struct {
	Outcome    devices.Outcome
	Device     *devices.Device
	Readings   *classify.Classification
	AlertID    int64
	Suppressed bool
}

// Service processes raw device traffic. Unknown codes are auto-registered
// as unclaimed devices so hardware can ship before anyone signs up.
type Service struct {
	store  DeviceStore
	alerts *alertapp.Service
	clock  Clock
}

// ServiceOption customizes the ingest service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs an ingest service.
func NewService(store DeviceStore, alertSvc *alertapp.Service, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("ingest: nil store")
	}
	if alertSvc == nil {
		return nil, errors.New("ingest: nil alert service")
	}
	service := &Service{store: store, alerts: alertSvc, clock: systemClock{}}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// HandleEvent classifies the readings, advances the device and, when the
// readings are alarm-level outside a suppression window, raises an alert.
// Claimed owners get the alert broadcast with the full reading context.
func (s *Service) HandleEvent(ctx context.Context, code string, gas, flame float64) (*Result, error) {
	if s == nil {
		return nil, errors.New("ingest: nil service")
	}
	start := time.Now()
	result, err := s.handleEvent(ctx, code, gas, flame)
	metrics.ObserveIngest(resultLabel(result, err), time.Since(start).Seconds())
	return result, err
}

func (s *Service) handleEvent(ctx context.Context, code string, gas, flame float64) (*Result, error) {
	reading := classify.Classify(gas, flame)

	device, err := s.store.EnsureByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	tr := devices.EvaluateSensor(*device, reading.IsAlarm, now)
	if err := s.store.SetStatusSeen(ctx, device.ID, tr.NextStatus, now, tr.ClearSuppression); err != nil {
		return nil, err
	}
	device.Status = tr.NextStatus
	device.LastSeen = now
	if tr.ClearSuppression {
		device.SuppressUntil = time.Time{}
	}

	result := &Result{
		Outcome:    tr.Outcome,
		Device:     device,
		Readings:   &reading,
		Suppressed: device.SuppressionActive(now),
	}
	if tr.Outcome != devices.OutcomeAlarm {
		return result, nil
	}

	alert, err := s.alerts.Create(ctx, device, reading.Type, reading.Level, reading.Message)
	if err != nil {
		return nil, err
	}
	result.AlertID = alert.ID

	if device.Claimed() {
		s.alerts.Publish(ctx, device.OwnerUserID, "alert", alertPayload(alert, device, reading))
	} else {
		log.Printf("ingest: alert %d on unclaimed device %s", alert.ID, device.Code)
	}
	return result, nil
}

// HandleHeartbeat records liveness without readings. Alarm state is
// sticky; only an expired suppression window changes anything else.
func (s *Service) HandleHeartbeat(ctx context.Context, code string) (*Result, error) {
	if s == nil {
		return nil, errors.New("ingest: nil service")
	}
	device, err := s.store.EnsureByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	tr := devices.EvaluateHeartbeat(*device, now)
	if err := s.store.SetStatusSeen(ctx, device.ID, tr.NextStatus, now, tr.ClearSuppression); err != nil {
		return nil, err
	}
	device.Status = tr.NextStatus
	device.LastSeen = now
	if tr.ClearSuppression {
		device.SuppressUntil = time.Time{}
	}
	return &Result{
		Outcome:    tr.Outcome,
		Device:     device,
		Suppressed: device.SuppressionActive(now),
	}, nil
}

// alertPayload is the realtime frame for a sensor-raised alert: the alert
// record plus the readings that triggered it, mirroring what the device
// just sent.
func alertPayload(alert *alerts.Alert, device *devices.Device, reading classify.Classification) map[string]any {
	return map[string]any{
		"id":          alert.ID,
		"device_id":   device.ID,
		"code":        device.Code,
		"device_name": device.Name,
		"location":    device.Location,
		"type":        alert.Type,
		"level":       alert.Level,
		"message":     alert.Message,
		"is_active":   alert.IsActive,
		"created_at":  alert.CreatedAt,
		"gas":         reading.GasReading,
		"gasStatus":   reading.GasStatus,
		"flame":       reading.FlameReading,
		"flameStatus": reading.FlameStatus,
	}
}

func resultLabel(result *Result, err error) string {
	switch {
	case err != nil:
		return metrics.ResultError
	case result == nil:
		return metrics.ResultError
	case result.Outcome == devices.OutcomeAlarm:
		return metrics.ResultAlert
	case result.Outcome == devices.OutcomeSuppressed:
		return metrics.ResultSuppressed
	default:
		return metrics.ResultOK
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
