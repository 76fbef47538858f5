package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	alerts "github.com/dangdich07/fire-alert/internal/alerts/domain"
)

const alertJoinedColumns = `a.id, a.device_id, a.type, a.level, a.message, a.is_active,
	a.ack_by_user_id, a.resolved_at, a.created_at, d.code, d.name, d.location`

// AlertRepository is a Postgres repository for alerts.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new active alert; fills ID and CreatedAt.
func (r *AlertRepository) Create(ctx context.Context, alert *alerts.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	if alert.DeviceID == 0 || alert.Type == "" {
		return errors.New("alert repo: missing fields")
	}
	alert.IsActive = true
	return r.db.QueryRowContext(ctx, `
INSERT INTO alerts (device_id, type, level, message, is_active)
VALUES ($1, $2, $3, $4, TRUE)
RETURNING id, created_at`,
		alert.DeviceID,
		alert.Type,
		alert.Level,
		nullableString(alert.Message),
	).Scan(&alert.ID, &alert.CreatedAt)
}

// GetByID fetches an alert joined with its device summary; nil when absent.
func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+alertJoinedColumns+`
FROM alerts a
JOIN devices d ON d.id = a.device_id
WHERE a.id = $1`, id)
	return scanAlert(row)
}

// OwnedBy reports whether the alert's device belongs to userID. Ownership
// is checked live on every call, never cached.
func (r *AlertRepository) OwnedBy(ctx context.Context, alertID, userID int64) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("alert repo: nil db")
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
SELECT a.id
FROM alerts a
JOIN devices d ON d.id = a.device_id
WHERE a.id = $1 AND d.owner_user_id = $2`, alertID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkAcknowledged deactivates the alert and records the acker.
func (r *AlertRepository) MarkAcknowledged(ctx context.Context, id, userID int64, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE alerts
SET is_active = FALSE, ack_by_user_id = $1, resolved_at = $2
WHERE id = $3`, userID, at, id)
	return err
}

// ListByOwner lists alerts for devices owned by userID, newest first,
// optionally restricted to active ones.
func (r *AlertRepository) ListByOwner(ctx context.Context, userID int64, activeOnly bool) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	query := `
SELECT ` + alertJoinedColumns + `
FROM alerts a
JOIN devices d ON d.id = a.device_id
WHERE d.owner_user_id = $1`
	if activeOnly {
		query += " AND a.is_active = TRUE"
	}
	query += " ORDER BY a.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []alerts.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveActiveForDevice deactivates every active alert of a device in one
// statement, recording userID as acker. Used by mark-safe.
func (r *AlertRepository) ResolveActiveForDevice(ctx context.Context, deviceID, userID int64, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE alerts
SET is_active = FALSE, ack_by_user_id = $1, resolved_at = $2
WHERE device_id = $3 AND is_active = TRUE`, userID, at, deviceID)
	return err
}

type alertScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row alertScanner) (*alerts.Alert, error) {
	var alert alerts.Alert
	var message sql.NullString
	var ackBy sql.NullInt64
	var resolvedAt sql.NullTime
	var location sql.NullString
	if err := row.Scan(
		&alert.ID,
		&alert.DeviceID,
		&alert.Type,
		&alert.Level,
		&message,
		&alert.IsActive,
		&ackBy,
		&resolvedAt,
		&alert.CreatedAt,
		&alert.DeviceCode,
		&alert.DeviceName,
		&location,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	alert.Message = message.String
	alert.AckByUserID = ackBy.Int64
	if resolvedAt.Valid {
		alert.ResolvedAt = resolvedAt.Time.UTC()
	}
	alert.CreatedAt = alert.CreatedAt.UTC()
	alert.DeviceLocation = location.String
	return &alert, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
