package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	devices "github.com/dangdich07/fire-alert/internal/devices/domain"
)

const deviceColumns = `id, code, name, location, owner_user_id, status, last_seen, suppress_until, created_at`

// DeviceRepository is a Postgres repository for devices.
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// GetByCode fetches a device by its immutable code; nil when absent.
func (r *DeviceRepository) GetByCode(ctx context.Context, code string) (*devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if code == "" {
		return nil, errors.New("device repo: empty code")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE code = $1`, code)
	return scanDevice(row)
}

// GetByID fetches a device by id; nil when absent.
func (r *DeviceRepository) GetByID(ctx context.Context, id int64) (*devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE id = $1`, id)
	return scanDevice(row)
}

// GetOwned fetches a device only when it belongs to ownerID; nil otherwise,
// so callers cannot distinguish foreign devices from missing ones.
func (r *DeviceRepository) GetOwned(ctx context.Context, id, ownerID int64) (*devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE id = $1 AND owner_user_id = $2`, id, ownerID)
	return scanDevice(row)
}

// EnsureByCode returns the device for code, creating an unclaimed record
// with placeholder name and ok status on first contact. The insert relies
// on the code uniqueness constraint, so two racing ingests converge on a
// single row.
func (r *DeviceRepository) EnsureByCode(ctx context.Context, code string) (*devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if code == "" {
		return nil, errors.New("device repo: empty code")
	}
	device, err := r.GetByCode(ctx, code)
	if err != nil || device != nil {
		return device, err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO devices (code, name, status)
VALUES ($1, $2, $3)
ON CONFLICT (code) DO NOTHING`, code, devices.UnclaimedName(code), devices.StatusOK)
	if err != nil {
		return nil, err
	}
	return r.GetByCode(ctx, code)
}

// Insert creates a device owned by a user; fills ID and CreatedAt.
func (r *DeviceRepository) Insert(ctx context.Context, device *devices.Device) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if device == nil {
		return errors.New("device repo: nil device")
	}
	if device.Code == "" || device.Name == "" {
		return errors.New("device repo: missing fields")
	}
	status := device.Status
	if status == "" {
		status = devices.StatusOK
	}
	return r.db.QueryRowContext(ctx, `
INSERT INTO devices (code, name, location, owner_user_id, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`,
		device.Code,
		device.Name,
		nullableString(device.Location),
		nullableID(device.OwnerUserID),
		status,
	).Scan(&device.ID, &device.CreatedAt)
}

// Claim attaches an owner to an existing device and refreshes its
// user-facing name and location.
func (r *DeviceRepository) Claim(ctx context.Context, code string, ownerID int64, name, location string) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE devices
SET name = $1, location = $2, owner_user_id = $3
WHERE code = $4`, name, nullableString(location), ownerID, code)
	return err
}

// ListByOwner lists a user's devices, newest first.
func (r *DeviceRepository) ListByOwner(ctx context.Context, ownerID int64) ([]devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE owner_user_id = $1
ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []devices.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetStatusSeen updates status and last-seen, optionally clearing an
// expired suppression window in the same statement.
func (r *DeviceRepository) SetStatusSeen(ctx context.Context, id int64, status string, seenAt time.Time, clearSuppression bool) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if clearSuppression {
		_, err := r.db.ExecContext(ctx, `
UPDATE devices
SET status = $1, last_seen = $2, suppress_until = NULL
WHERE id = $3`, status, seenAt, id)
		return err
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE devices
SET status = $1, last_seen = $2
WHERE id = $3`, status, seenAt, id)
	return err
}

// OpenSuppression marks the device safe and opens a suppression window.
func (r *DeviceRepository) OpenSuppression(ctx context.Context, id int64, until time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE devices
SET status = $1, suppress_until = $2
WHERE id = $3`, devices.StatusSafe, until, id)
	return err
}

type deviceScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row deviceScanner) (*devices.Device, error) {
	var device devices.Device
	var location sql.NullString
	var owner sql.NullInt64
	var lastSeen sql.NullTime
	var suppressUntil sql.NullTime
	if err := row.Scan(
		&device.ID,
		&device.Code,
		&device.Name,
		&location,
		&owner,
		&device.Status,
		&lastSeen,
		&suppressUntil,
		&device.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	device.Location = location.String
	device.OwnerUserID = owner.Int64
	if lastSeen.Valid {
		device.LastSeen = lastSeen.Time.UTC()
	}
	if suppressUntil.Valid {
		device.SuppressUntil = suppressUntil.Time.UTC()
	}
	device.CreatedAt = device.CreatedAt.UTC()
	return &device, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullableID(value int64) sql.NullInt64 {
	if value == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: value, Valid: true}
}
