package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"time"

	"github.com/jmoiron/sqlx"
)

type packageRow struct {
	ID                   string          `db:"id"`
	TrackingNumber       string          `db:"tracking_number"`
	OriginAddress        string          `db:"origin_address"`
	DestinationAddress   string          `db:"destination_address"`
	OriginLatitude       sql.NullFloat64 `db:"origin_latitude"`
	OriginLongitude      sql.NullFloat64 `db:"origin_longitude"`
	DestinationLatitude  sql.NullFloat64 `db:"destination_latitude"`
	DestinationLongitude sql.NullFloat64 `db:"destination_longitude"`
	Contents             string          `db:"contents"`
	WeightKg             float64         `db:"weight_kg"`
	VolumeCbm            float64         `db:"volume_cbm"`
	CurrentStatus        string          `db:"current_status"`
	AssignedVehicleID    sql.NullString  `db:"assigned_vehicle_id"`
	OriginDepotID        sql.NullString  `db:"origin_depot_id"`
	DestinationDepotID   sql.NullString  `db:"destination_depot_id"`
	CreatedAt            time.Time       `db:"created_at"`
}

func nullCoordinates(lat, lon sql.NullFloat64) *domain.Coordinates {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &domain.Coordinates{Lon: lon.Float64, Lat: lat.Float64}
}

func (r packageRow) toDomain() domain.Package {
	return domain.Package{
		ID:                 r.ID,
		TrackingCode:       r.TrackingNumber,
		OriginAddress:      r.OriginAddress,
		DestinationAddress: r.DestinationAddress,
		Origin:             nullCoordinates(r.OriginLatitude, r.OriginLongitude),
		Destination:        nullCoordinates(r.DestinationLatitude, r.DestinationLongitude),
		Contents:           r.Contents,
		WeightKg:           r.WeightKg,
		VolumeM3:           r.VolumeCbm,
		Status:             domain.PackageStatus(r.CurrentStatus),
		AssignedVehicleID:  nullString(r.AssignedVehicleID),
		OriginDepotID:      nullString(r.OriginDepotID),
		DestinationDepotID: nullString(r.DestinationDepotID),
		CreatedAt:          r.CreatedAt,
	}
}

func latLon(c *domain.Coordinates) (lat, lon any) {
	if c == nil {
		return nil, nil
	}
	return c.Lat, c.Lon
}

func (s *PostgresStore) CreatePackage(ctx context.Context, p domain.Package) (domain.Package, error) {
	p.ID = newID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	oLat, oLon := latLon(p.Origin)
	dLat, dLon := latLon(p.Destination)

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO packages (
		id, tracking_number, origin_address, destination_address,
		origin_latitude, origin_longitude, destination_latitude, destination_longitude,
		contents, weight_kg, volume_cbm, current_status,
		assigned_vehicle_id, origin_depot_id, destination_depot_id, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`,
		p.ID, p.TrackingCode, p.OriginAddress, p.DestinationAddress,
		oLat, oLon, dLat, dLon,
		p.Contents, p.WeightKg, p.VolumeM3, string(p.Status),
		p.AssignedVehicleID, p.OriginDepotID, p.DestinationDepotID, p.CreatedAt,
	)
	if err != nil {
		return domain.Package{}, fmt.Errorf("create package %s: %w", p.ID, err)
	}
	return p, nil
}

func (s *PostgresStore) GetPackage(ctx context.Context, id string) (domain.Package, error) {
	var row packageRow
	err := s.DB.GetContext(ctx, &row, `
	SELECT
		id, tracking_number, origin_address, destination_address,
		origin_latitude, origin_longitude, destination_latitude, destination_longitude,
		contents, weight_kg, volume_cbm, current_status,
		assigned_vehicle_id, origin_depot_id, destination_depot_id, created_at
	FROM packages
	WHERE id = $1;
	`, id)
	if err != nil {
		return domain.Package{}, notFound(err, "package", id)
	}
	return row.toDomain(), nil
}

// execPackage runs a single-row update and maps zero affected rows to ErrNotFound.
func execPackage(ctx context.Context, ex sqlx.ExecerContext, op, id, query string, args ...any) error {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: package %s: %w", op, id, domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpdateCoordinates(ctx context.Context, id string, origin, destination *domain.Coordinates) error {
	oLat, oLon := latLon(origin)
	dLat, dLon := latLon(destination)
	return execPackage(ctx, s.DB, "update coordinates", id, `
	UPDATE packages
	SET origin_latitude = COALESCE($2, origin_latitude),
		origin_longitude = COALESCE($3, origin_longitude),
		destination_latitude = COALESCE($4, destination_latitude),
		destination_longitude = COALESCE($5, destination_longitude)
	WHERE id = $1;
	`, id, oLat, oLon, dLat, dLon)
}

func (s *PostgresStore) SetDepots(ctx context.Context, id string, originDepotID, destinationDepotID *string) error {
	return execPackage(ctx, s.DB, "set depots", id, `
	UPDATE packages SET origin_depot_id = $2, destination_depot_id = $3 WHERE id = $1;
	`, id, originDepotID, destinationDepotID)
}

func (s *PostgresStore) SetAssignedVehicle(ctx context.Context, id string, vehicleID string) error {
	return execPackage(ctx, s.DB, "set assigned vehicle", id, `
	UPDATE packages SET assigned_vehicle_id = $2 WHERE id = $1;
	`, id, vehicleID)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, entry domain.StatusEntry) error {
	return s.inTx(ctx, "update status", entry.PackageID, func(tx *sqlx.Tx) error {
		return writeStatus(ctx, tx, entry)
	})
}

// AssignVehicle sets the vehicle, status and history row in one transaction.
func (s *PostgresStore) AssignVehicle(ctx context.Context, vehicleID string, entry domain.StatusEntry) error {
	return s.inTx(ctx, "assign vehicle", entry.PackageID, func(tx *sqlx.Tx) error {
		err := execPackage(ctx, tx, "assign vehicle", entry.PackageID, `
		UPDATE packages SET assigned_vehicle_id = $2 WHERE id = $1;
		`, entry.PackageID, vehicleID)
		if err != nil {
			return err
		}
		return writeStatus(ctx, tx, entry)
	})
}

func (s *PostgresStore) inTx(ctx context.Context, op, packageID string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s %s: begin tx: %w", op, packageID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s %s: commit tx: %w", op, packageID, err)
	}
	return nil
}

func writeStatus(ctx context.Context, tx *sqlx.Tx, entry domain.StatusEntry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	err := execPackage(ctx, tx, "update status", entry.PackageID, `
	UPDATE packages SET current_status = $2 WHERE id = $1;
	`, entry.PackageID, string(entry.Status))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO package_status_history (package_id, status, changed_by, notes, created_at)
	VALUES ($1, $2, $3, $4, $5);
	`, entry.PackageID, string(entry.Status), entry.ActorID, entry.Note, at)
	if err != nil {
		return fmt.Errorf("update status %s: insert history: %w", entry.PackageID, err)
	}
	return nil
}

func (s *PostgresStore) ListStatusHistory(ctx context.Context, id string) ([]domain.StatusEntry, error) {
	if _, err := s.GetPackage(ctx, id); err != nil {
		return nil, err
	}

	var rows []struct {
		PackageID string         `db:"package_id"`
		Status    string         `db:"status"`
		ChangedBy sql.NullString `db:"changed_by"`
		Notes     string         `db:"notes"`
		CreatedAt time.Time      `db:"created_at"`
	}
	err := s.DB.SelectContext(ctx, &rows, `
	SELECT package_id, status, changed_by, notes, created_at
	FROM package_status_history
	WHERE package_id = $1
	ORDER BY id;
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list status history %s: %w", id, err)
	}

	out := make([]domain.StatusEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.StatusEntry{
			PackageID: r.PackageID,
			Status:    domain.PackageStatus(r.Status),
			ActorID:   nullString(r.ChangedBy),
			Note:      r.Notes,
			At:        r.CreatedAt,
		})
	}
	return out, nil
}
