package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"parcel-dispatch-service/internal/domain"
	"strings"

	"github.com/jmoiron/sqlx"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS depots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('regional_hub', 'local_depot')),
		city TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		license_plate TEXT NOT NULL UNIQUE,
		vehicle_type TEXT NOT NULL CHECK (vehicle_type IN ('van', 'truck', 'motorcycle')),
		weight_capacity_kg DOUBLE PRECISION NOT NULL,
		volume_capacity_cbm DOUBLE PRECISION NOT NULL,
		home_depot_id TEXT REFERENCES depots(id),
		status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'in_transit', 'maintenance')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		vehicle_id TEXT REFERENCES vehicles(id),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);`,
	`CREATE TABLE IF NOT EXISTS packages (
		id TEXT PRIMARY KEY,
		tracking_number TEXT NOT NULL UNIQUE,
		origin_address TEXT NOT NULL,
		destination_address TEXT NOT NULL,
		origin_latitude DOUBLE PRECISION,
		origin_longitude DOUBLE PRECISION,
		destination_latitude DOUBLE PRECISION,
		destination_longitude DOUBLE PRECISION,
		contents TEXT NOT NULL DEFAULT '',
		weight_kg DOUBLE PRECISION NOT NULL,
		volume_cbm DOUBLE PRECISION NOT NULL,
		current_status TEXT NOT NULL,
		assigned_vehicle_id TEXT REFERENCES vehicles(id),
		origin_depot_id TEXT REFERENCES depots(id),
		destination_depot_id TEXT REFERENCES depots(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_packages_assigned_vehicle
		ON packages (assigned_vehicle_id) WHERE assigned_vehicle_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS package_status_history (
		id BIGSERIAL PRIMARY KEY,
		package_id TEXT NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		changed_by TEXT,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
		driver_id TEXT NOT NULL REFERENCES drivers(id),
		route_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (vehicle_id, route_date)
	);`,
	`CREATE TABLE IF NOT EXISTS route_stops (
		id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		depot_id TEXT NOT NULL REFERENCES depots(id),
		stop_order INTEGER NOT NULL,
		arrived_at TIMESTAMPTZ,
		departed_at TIMESTAMPTZ,
		UNIQUE (route_id, stop_order)
	);`,
	`CREATE TABLE IF NOT EXISTS route_packages (
		route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		package_id TEXT NOT NULL REFERENCES packages(id),
		pickup_stop_id TEXT NOT NULL REFERENCES route_stops(id),
		dropoff_stop_id TEXT NOT NULL REFERENCES route_stops(id),
		PRIMARY KEY (route_id, package_id)
	);`,
	`CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
}

// InitSchema creates every table the service uses. It is idempotent.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}

// FleetSeed is the JSON document accepted by SeedFromJSON.
type FleetSeed struct {
	Depots []struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
		Kind   string  `json:"kind"`
		City   string  `json:"city"`
		Active *bool   `json:"active"`
	} `json:"depots"`
	Vehicles []struct {
		ID          string  `json:"id"`
		Plate       string  `json:"plate"`
		Class       string  `json:"class"`
		WeightKg    float64 `json:"weight_capacity_kg"`
		VolumeM3    float64 `json:"volume_capacity_m3"`
		HomeDepotID *string `json:"home_depot_id"`
		Status      string  `json:"status"`
	} `json:"vehicles"`
	Drivers []struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		VehicleID *string `json:"vehicle_id"`
		Active    *bool   `json:"active"`
	} `json:"drivers"`
}

// LoadFleetSeed reads and validates a fleet seed file into domain values.
func LoadFleetSeed(path string) ([]domain.Depot, []domain.Vehicle, []domain.Driver, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("seed fleet: read %q: %w", path, err)
	}

	var seed FleetSeed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, nil, nil, fmt.Errorf("seed fleet: parse json: %w", err)
	}

	depots := make([]domain.Depot, 0, len(seed.Depots))
	for i, d := range seed.Depots {
		if strings.TrimSpace(d.ID) == "" {
			return nil, nil, nil, fmt.Errorf("seed fleet: depot at index %d: id cannot be empty", i+1)
		}
		kind := domain.DepotKind(d.Kind)
		if kind != domain.DepotKindRegionalHub && kind != domain.DepotKindLocalDepot {
			return nil, nil, nil, fmt.Errorf("seed fleet: depot %s: unknown kind %q", d.ID, d.Kind)
		}
		depots = append(depots, domain.Depot{
			ID:       d.ID,
			Name:     d.Name,
			Location: domain.Coordinates{Lon: d.Lon, Lat: d.Lat},
			Kind:     kind,
			City:     d.City,
			Active:   d.Active == nil || *d.Active,
		})
	}

	vehicles := make([]domain.Vehicle, 0, len(seed.Vehicles))
	for i, v := range seed.Vehicles {
		if strings.TrimSpace(v.ID) == "" || strings.TrimSpace(v.Plate) == "" {
			return nil, nil, nil, fmt.Errorf("seed fleet: vehicle at index %d: id and plate are required", i+1)
		}
		status := domain.VehicleStatus(v.Status)
		if status == "" {
			status = domain.VehicleStatusAvailable
		}
		vehicles = append(vehicles, domain.Vehicle{
			ID:               v.ID,
			Plate:            v.Plate,
			Class:            domain.VehicleClass(v.Class),
			WeightCapacityKg: v.WeightKg,
			VolumeCapacityM3: v.VolumeM3,
			HomeDepotID:      v.HomeDepotID,
			Status:           status,
		})
	}

	drivers := make([]domain.Driver, 0, len(seed.Drivers))
	for i, d := range seed.Drivers {
		if strings.TrimSpace(d.ID) == "" {
			return nil, nil, nil, fmt.Errorf("seed fleet: driver at index %d: id cannot be empty", i+1)
		}
		drivers = append(drivers, domain.Driver{
			ID:        d.ID,
			Name:      d.Name,
			VehicleID: d.VehicleID,
			Active:    d.Active == nil || *d.Active,
		})
	}

	return depots, vehicles, drivers, nil
}

// SeedFromJSON upserts depots, vehicles and drivers from a fleet seed file.
func SeedFromJSON(ctx context.Context, db *sqlx.DB, path string) error {
	depots, vehicles, drivers, err := LoadFleetSeed(path)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed fleet: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range depots {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO depots (id, name, latitude, longitude, kind, city, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			kind = EXCLUDED.kind, city = EXCLUDED.city, is_active = EXCLUDED.is_active;
		`, d.ID, d.Name, d.Location.Lat, d.Location.Lon, string(d.Kind), d.City, d.Active)
		if err != nil {
			return fmt.Errorf("seed fleet: depot %s: %w", d.ID, err)
		}
	}

	for _, v := range vehicles {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO vehicles (id, license_plate, vehicle_type, weight_capacity_kg, volume_capacity_cbm, home_depot_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET license_plate = EXCLUDED.license_plate, vehicle_type = EXCLUDED.vehicle_type,
			weight_capacity_kg = EXCLUDED.weight_capacity_kg, volume_capacity_cbm = EXCLUDED.volume_capacity_cbm,
			home_depot_id = EXCLUDED.home_depot_id, status = EXCLUDED.status;
		`, v.ID, v.Plate, string(v.Class), v.WeightCapacityKg, v.VolumeCapacityM3, v.HomeDepotID, string(v.Status))
		if err != nil {
			return fmt.Errorf("seed fleet: vehicle %s: %w", v.ID, err)
		}
	}

	for _, d := range drivers {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO drivers (id, full_name, vehicle_id, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name, vehicle_id = EXCLUDED.vehicle_id, is_active = EXCLUDED.is_active;
		`, d.ID, d.Name, d.VehicleID, d.Active)
		if err != nil {
			return fmt.Errorf("seed fleet: driver %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed fleet: commit tx: %w", err)
	}
	return nil
}
