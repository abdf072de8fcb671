package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"time"
)

type routeRow struct {
	ID        string    `db:"id"`
	VehicleID string    `db:"vehicle_id"`
	DriverID  string    `db:"driver_id"`
	RouteDate string    `db:"route_date"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (r routeRow) toDomain() domain.Route {
	return domain.Route{
		ID:          r.ID,
		VehicleID:   r.VehicleID,
		DriverID:    r.DriverID,
		ServiceDate: r.RouteDate,
		Status:      domain.RouteStatus(r.Status),
		CreatedAt:   r.CreatedAt,
	}
}

const routeColumns = `id, vehicle_id, driver_id, to_char(route_date, 'YYYY-MM-DD') AS route_date, status, created_at`

func (s *PostgresStore) GetRoute(ctx context.Context, id string) (domain.Route, error) {
	var row routeRow
	err := s.DB.GetContext(ctx, &row, `SELECT `+routeColumns+` FROM routes WHERE id = $1;`, id)
	if err != nil {
		return domain.Route{}, notFound(err, "route", id)
	}
	return row.toDomain(), nil
}

func (s *PostgresStore) FindRoute(ctx context.Context, vehicleID, serviceDate string) (domain.Route, error) {
	var row routeRow
	err := s.DB.GetContext(ctx, &row, `
	SELECT `+routeColumns+`
	FROM routes
	WHERE vehicle_id = $1 AND route_date = $2::date;
	`, vehicleID, serviceDate)
	if err != nil {
		return domain.Route{}, notFound(err, "route for vehicle "+vehicleID+" on", serviceDate)
	}
	return row.toDomain(), nil
}

func (s *PostgresStore) CreateRoute(ctx context.Context, r domain.Route) (domain.Route, error) {
	r.ID = newID(r.ID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO routes (id, vehicle_id, driver_id, route_date, status, created_at)
	VALUES ($1, $2, $3, $4::date, $5, $6);
	`, r.ID, r.VehicleID, r.DriverID, r.ServiceDate, string(r.Status), r.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Route{}, fmt.Errorf("create route vehicle=%s date=%s: %w", r.VehicleID, r.ServiceDate, domain.ErrRouteExists)
	}
	if err != nil {
		return domain.Route{}, fmt.Errorf("create route vehicle=%s date=%s: %w", r.VehicleID, r.ServiceDate, err)
	}
	return r, nil
}

func (s *PostgresStore) ListPendingRoutes(ctx context.Context, serviceDate string) ([]domain.Route, error) {
	var rows []routeRow
	err := s.DB.SelectContext(ctx, &rows, `
	SELECT `+routeColumns+`
	FROM routes
	WHERE route_date = $1::date AND status = 'pending'
	ORDER BY created_at, id;
	`, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("list pending routes %s: %w", serviceDate, err)
	}

	out := make([]domain.Route, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// SetRouteStatus moves a route through approval. The engine never calls it;
// it exists for dispatch tooling and tests.
func (s *PostgresStore) SetRouteStatus(ctx context.Context, routeID string, status domain.RouteStatus) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE routes SET status = $2 WHERE id = $1;`, routeID, string(status))
	if err != nil {
		return fmt.Errorf("set route status %s: %w", routeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set route status: route %s: %w", routeID, domain.ErrNotFound)
	}
	return nil
}

type stopRow struct {
	ID         string       `db:"id"`
	RouteID    string       `db:"route_id"`
	DepotID    string       `db:"depot_id"`
	StopOrder  int          `db:"stop_order"`
	ArrivedAt  sql.NullTime `db:"arrived_at"`
	DepartedAt sql.NullTime `db:"departed_at"`
}

func (s *PostgresStore) ListStops(ctx context.Context, routeID string) ([]domain.RouteStop, error) {
	var rows []stopRow
	err := s.DB.SelectContext(ctx, &rows, `
	SELECT id, route_id, depot_id, stop_order, arrived_at, departed_at
	FROM route_stops
	WHERE route_id = $1
	ORDER BY stop_order;
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("list stops %s: %w", routeID, err)
	}

	out := make([]domain.RouteStop, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.RouteStop{
			ID:         r.ID,
			RouteID:    r.RouteID,
			DepotID:    r.DepotID,
			Order:      r.StopOrder,
			ArrivedAt:  nullTime(r.ArrivedAt),
			DepartedAt: nullTime(r.DepartedAt),
		})
	}
	return out, nil
}

func (s *PostgresStore) AddStop(ctx context.Context, stop domain.RouteStop) (domain.RouteStop, error) {
	stop.ID = newID(stop.ID)
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO route_stops (id, route_id, depot_id, stop_order, arrived_at, departed_at)
	VALUES ($1, $2, $3, $4, $5, $6);
	`, stop.ID, stop.RouteID, stop.DepotID, stop.Order, stop.ArrivedAt, stop.DepartedAt)
	if isUniqueViolation(err) {
		return domain.RouteStop{}, fmt.Errorf("add stop route=%s order=%d: %w", stop.RouteID, stop.Order, domain.ErrStopOrderConflict)
	}
	if err != nil {
		return domain.RouteStop{}, fmt.Errorf("add stop route=%s order=%d: %w", stop.RouteID, stop.Order, err)
	}
	return stop, nil
}

// SetStopOrders issues one UPDATE for all rows. The (route_id, stop_order)
// constraint is not deferrable, so PostgreSQL checks it row by row and the
// caller must pass orders that never collide mid-statement.
func (s *PostgresStore) SetStopOrders(ctx context.Context, routeID string, orders map[string]int) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	values := make([]int32, 0, len(orders))
	for id, order := range orders {
		ids = append(ids, id)
		values = append(values, int32(order))
	}

	res, err := s.DB.ExecContext(ctx, `
	UPDATE route_stops AS rs
	SET stop_order = v.stop_order
	FROM unnest($2::text[], $3::int[]) AS v(id, stop_order)
	WHERE rs.route_id = $1 AND rs.id = v.id;
	`, routeID, ids, values)
	if isUniqueViolation(err) {
		return fmt.Errorf("set stop orders route=%s: %w", routeID, domain.ErrStopOrderConflict)
	}
	if err != nil {
		return fmt.Errorf("set stop orders route=%s: %w", routeID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set stop orders route=%s: rows affected: %w", routeID, err)
	}
	if int(n) != len(orders) {
		return fmt.Errorf("set stop orders route=%s: updated %d of %d stops: %w", routeID, n, len(orders), domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListRoutePackages(ctx context.Context, routeID string) ([]domain.RoutePackage, error) {
	var rows []struct {
		RouteID       string `db:"route_id"`
		PackageID     string `db:"package_id"`
		PickupStopID  string `db:"pickup_stop_id"`
		DropoffStopID string `db:"dropoff_stop_id"`
	}
	err := s.DB.SelectContext(ctx, &rows, `
	SELECT route_id, package_id, pickup_stop_id, dropoff_stop_id
	FROM route_packages
	WHERE route_id = $1
	ORDER BY package_id;
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("list route packages %s: %w", routeID, err)
	}

	out := make([]domain.RoutePackage, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.RoutePackage{
			RouteID:       r.RouteID,
			PackageID:     r.PackageID,
			PickupStopID:  r.PickupStopID,
			DropoffStopID: r.DropoffStopID,
		})
	}
	return out, nil
}

// LinkPackage rejects stops that belong to another route. Linking a package
// that is already on the route replaces its stops.
func (s *PostgresStore) LinkPackage(ctx context.Context, link domain.RoutePackage) error {
	res, err := s.DB.ExecContext(ctx, `
	INSERT INTO route_packages (route_id, package_id, pickup_stop_id, dropoff_stop_id)
	SELECT $1::text, $2::text, $3::text, $4::text
	WHERE EXISTS (SELECT 1 FROM route_stops WHERE id = $3 AND route_id = $1)
		AND EXISTS (SELECT 1 FROM route_stops WHERE id = $4 AND route_id = $1)
	ON CONFLICT (route_id, package_id) DO UPDATE
		SET pickup_stop_id = EXCLUDED.pickup_stop_id, dropoff_stop_id = EXCLUDED.dropoff_stop_id;
	`, link.RouteID, link.PackageID, link.PickupStopID, link.DropoffStopID)
	if err != nil {
		return fmt.Errorf("link package %s to route %s: %w", link.PackageID, link.RouteID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link package %s: rows affected: %w", link.PackageID, err)
	}
	if n == 0 {
		return fmt.Errorf("link package %s: stops not in route %s: %w", link.PackageID, link.RouteID, domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UnlinkPackage(ctx context.Context, routeID, packageID string) error {
	_, err := s.DB.ExecContext(ctx, `
	DELETE FROM route_packages WHERE route_id = $1 AND package_id = $2;
	`, routeID, packageID)
	if err != nil {
		return fmt.Errorf("unlink package %s from route %s: %w", packageID, routeID, err)
	}
	return nil
}
