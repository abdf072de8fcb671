package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const pgUniqueViolation = "23505"

// PostgresStore implements the directory and store ports on PostgreSQL.
// Methods that take several statements run them in one transaction.
type PostgresStore struct {
	DB *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// --- DepotDirectory

type depotRow struct {
	ID        string  `db:"id"`
	Name      string  `db:"name"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
	Kind      string  `db:"kind"`
	City      string  `db:"city"`
	IsActive  bool    `db:"is_active"`
}

func (r depotRow) toDomain() domain.Depot {
	return domain.Depot{
		ID:       r.ID,
		Name:     r.Name,
		Location: domain.Coordinates{Lon: r.Longitude, Lat: r.Latitude},
		Kind:     domain.DepotKind(r.Kind),
		City:     r.City,
		Active:   r.IsActive,
	}
}

const depotColumns = `id, name, latitude, longitude, kind, city, is_active`

// ListActiveDepots orders by creation time then id so nearest-depot ties are stable.
func (s *PostgresStore) ListActiveDepots(ctx context.Context) ([]domain.Depot, error) {
	var rows []depotRow
	err := s.DB.SelectContext(ctx, &rows, `
	SELECT `+depotColumns+`
	FROM depots
	WHERE is_active
	ORDER BY created_at, id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list active depots: %w", err)
	}

	out := make([]domain.Depot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *PostgresStore) GetDepot(ctx context.Context, id string) (domain.Depot, error) {
	var row depotRow
	err := s.DB.GetContext(ctx, &row, `SELECT `+depotColumns+` FROM depots WHERE id = $1;`, id)
	if err != nil {
		return domain.Depot{}, notFound(err, "depot", id)
	}
	return row.toDomain(), nil
}

// --- VehicleDirectory

type vehicleRow struct {
	ID                string         `db:"id"`
	LicensePlate      string         `db:"license_plate"`
	VehicleType       string         `db:"vehicle_type"`
	WeightCapacityKg  float64        `db:"weight_capacity_kg"`
	VolumeCapacityCbm float64        `db:"volume_capacity_cbm"`
	HomeDepotID       sql.NullString `db:"home_depot_id"`
	Status            string         `db:"status"`
}

func (r vehicleRow) toDomain() domain.Vehicle {
	return domain.Vehicle{
		ID:               r.ID,
		Plate:            r.LicensePlate,
		Class:            domain.VehicleClass(r.VehicleType),
		WeightCapacityKg: r.WeightCapacityKg,
		VolumeCapacityM3: r.VolumeCapacityCbm,
		HomeDepotID:      nullString(r.HomeDepotID),
		Status:           domain.VehicleStatus(r.Status),
	}
}

const vehicleColumns = `id, license_plate, vehicle_type, weight_capacity_kg, volume_capacity_cbm, home_depot_id, status`

func (s *PostgresStore) ListAvailableVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	var rows []vehicleRow
	err := s.DB.SelectContext(ctx, &rows, `
	SELECT `+vehicleColumns+`
	FROM vehicles
	WHERE status = 'available'
	ORDER BY created_at, id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list available vehicles: %w", err)
	}

	out := make([]domain.Vehicle, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *PostgresStore) GetVehicle(ctx context.Context, id string) (domain.Vehicle, error) {
	var row vehicleRow
	err := s.DB.GetContext(ctx, &row, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1;`, id)
	if err != nil {
		return domain.Vehicle{}, notFound(err, "vehicle", id)
	}
	return row.toDomain(), nil
}

func (s *PostgresStore) CurrentLoad(ctx context.Context, vehicleID string) (domain.Load, error) {
	var row struct {
		WeightKg  float64 `db:"weight_kg"`
		VolumeCbm float64 `db:"volume_cbm"`
	}
	err := s.DB.GetContext(ctx, &row, `
	SELECT COALESCE(SUM(weight_kg), 0) AS weight_kg, COALESCE(SUM(volume_cbm), 0) AS volume_cbm
	FROM packages
	WHERE assigned_vehicle_id = $1
		AND current_status NOT IN ('delivered', 'returned', 'cancelled');
	`, vehicleID)
	if err != nil {
		return domain.Load{}, fmt.Errorf("current load for vehicle %s: %w", vehicleID, err)
	}
	return domain.Load{WeightKg: row.WeightKg, VolumeM3: row.VolumeCbm}, nil
}

// --- DriverDirectory

func (s *PostgresStore) ActiveDriverForVehicle(ctx context.Context, vehicleID string) (domain.Driver, error) {
	var row struct {
		ID        string         `db:"id"`
		FullName  string         `db:"full_name"`
		VehicleID sql.NullString `db:"vehicle_id"`
		IsActive  bool           `db:"is_active"`
	}
	err := s.DB.GetContext(ctx, &row, `
	SELECT id, full_name, vehicle_id, is_active
	FROM drivers
	WHERE vehicle_id = $1 AND is_active
	ORDER BY id
	LIMIT 1;
	`, vehicleID)
	if err != nil {
		return domain.Driver{}, notFound(err, "driver for vehicle", vehicleID)
	}
	return domain.Driver{
		ID:        row.ID,
		Name:      row.FullName,
		VehicleID: nullString(row.VehicleID),
		Active:    row.IsActive,
	}, nil
}
