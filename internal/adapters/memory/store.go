// Package memory provides in-process implementations of the store ports.
// It backs local runs without DATABASE_URL and the service tests.
package memory

import (
	"context"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Store implements every directory and store port behind one mutex.
// Slices preserve insertion order so listings are stable.
type Store struct {
	mu sync.Mutex

	depots   []domain.Depot
	vehicles []domain.Vehicle
	drivers  []domain.Driver

	packages map[string]domain.Package
	history  map[string][]domain.StatusEntry

	routes     map[string]domain.Route
	routeOrder []string
	stops      map[string][]domain.RouteStop
	links      map[string][]domain.RoutePackage
}

func NewStore() *Store {
	return &Store{
		packages: make(map[string]domain.Package),
		history:  make(map[string][]domain.StatusEntry),
		routes:   make(map[string]domain.Route),
		stops:    make(map[string][]domain.RouteStop),
		links:    make(map[string][]domain.RoutePackage),
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// AddDepot registers a depot, assigning an id when empty.
func (s *Store) AddDepot(d domain.Depot) domain.Depot {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = newID(d.ID)
	s.depots = append(s.depots, d)
	return d
}

func (s *Store) AddVehicle(v domain.Vehicle) domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = newID(v.ID)
	s.vehicles = append(s.vehicles, v)
	return v
}

func (s *Store) AddDriver(d domain.Driver) domain.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = newID(d.ID)
	s.drivers = append(s.drivers, d)
	return d
}

// SetRouteStatus moves a route through its approval lifecycle.
func (s *Store) SetRouteStatus(ctx context.Context, routeID string, status domain.RouteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[routeID]
	if !ok {
		return fmt.Errorf("route %s: %w", routeID, domain.ErrNotFound)
	}
	r.Status = status
	s.routes[routeID] = r
	return nil
}

// --- DepotDirectory

func (s *Store) ListActiveDepots(ctx context.Context) ([]domain.Depot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Depot, 0, len(s.depots))
	for _, d := range s.depots {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) GetDepot(ctx context.Context, id string) (domain.Depot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.depots {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Depot{}, fmt.Errorf("depot %s: %w", id, domain.ErrNotFound)
}

// --- VehicleDirectory

func (s *Store) ListAvailableVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		if v.Status == domain.VehicleStatusAvailable {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) GetVehicle(ctx context.Context, id string) (domain.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return domain.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, domain.ErrNotFound)
}

func (s *Store) CurrentLoad(ctx context.Context, vehicleID string) (domain.Load, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var load domain.Load
	for _, p := range s.packages {
		if p.AssignedVehicleID == nil || *p.AssignedVehicleID != vehicleID || p.Status.IsTerminal() {
			continue
		}
		load.WeightKg += p.WeightKg
		load.VolumeM3 += p.VolumeM3
	}
	return load, nil
}

// --- DriverDirectory

func (s *Store) ActiveDriverForVehicle(ctx context.Context, vehicleID string) (domain.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drivers {
		if d.Active && d.VehicleID != nil && *d.VehicleID == vehicleID {
			return d, nil
		}
	}
	return domain.Driver{}, fmt.Errorf("driver for vehicle %s: %w", vehicleID, domain.ErrNotFound)
}

// --- PackageStore

func (s *Store) CreatePackage(ctx context.Context, p domain.Package) (domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID(p.ID)
	if _, exists := s.packages[p.ID]; exists {
		return domain.Package{}, fmt.Errorf("create package %s: duplicate id", p.ID)
	}
	s.packages[p.ID] = p
	return p, nil
}

func (s *Store) GetPackage(ctx context.Context, id string) (domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[id]
	if !ok {
		return domain.Package{}, fmt.Errorf("package %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (s *Store) updatePackage(id string, fn func(*domain.Package)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[id]
	if !ok {
		return fmt.Errorf("package %s: %w", id, domain.ErrNotFound)
	}
	fn(&p)
	s.packages[id] = p
	return nil
}

func (s *Store) UpdateCoordinates(ctx context.Context, id string, origin, destination *domain.Coordinates) error {
	return s.updatePackage(id, func(p *domain.Package) {
		if origin != nil {
			p.Origin = origin
		}
		if destination != nil {
			p.Destination = destination
		}
	})
}

func (s *Store) SetDepots(ctx context.Context, id string, originDepotID, destinationDepotID *string) error {
	return s.updatePackage(id, func(p *domain.Package) {
		p.OriginDepotID = originDepotID
		p.DestinationDepotID = destinationDepotID
	})
}

func (s *Store) SetAssignedVehicle(ctx context.Context, id string, vehicleID string) error {
	return s.updatePackage(id, func(p *domain.Package) {
		p.AssignedVehicleID = &vehicleID
	})
}

func (s *Store) UpdateStatus(ctx context.Context, entry domain.StatusEntry) error {
	return s.writeStatus(entry, nil)
}

func (s *Store) AssignVehicle(ctx context.Context, vehicleID string, entry domain.StatusEntry) error {
	return s.writeStatus(entry, &vehicleID)
}

// writeStatus updates the package and its history under one lock.
func (s *Store) writeStatus(entry domain.StatusEntry, vehicleID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[entry.PackageID]
	if !ok {
		return fmt.Errorf("package %s: %w", entry.PackageID, domain.ErrNotFound)
	}
	if vehicleID != nil {
		p.AssignedVehicleID = vehicleID
	}
	p.Status = entry.Status
	s.packages[entry.PackageID] = p
	s.history[entry.PackageID] = append(s.history[entry.PackageID], entry)
	return nil
}

func (s *Store) ListStatusHistory(ctx context.Context, id string) ([]domain.StatusEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packages[id]; !ok {
		return nil, fmt.Errorf("package %s: %w", id, domain.ErrNotFound)
	}
	return slices.Clone(s.history[id]), nil
}

// --- RouteStore

func (s *Store) GetRoute(ctx context.Context, id string) (domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return domain.Route{}, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *Store) FindRoute(ctx context.Context, vehicleID, serviceDate string) (domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.routeOrder {
		r := s.routes[id]
		if r.VehicleID == vehicleID && r.ServiceDate == serviceDate {
			return r, nil
		}
	}
	return domain.Route{}, fmt.Errorf("route for vehicle %s on %s: %w", vehicleID, serviceDate, domain.ErrNotFound)
}

func (s *Store) CreateRoute(ctx context.Context, r domain.Route) (domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.routeOrder {
		existing := s.routes[id]
		if existing.VehicleID == r.VehicleID && existing.ServiceDate == r.ServiceDate {
			return domain.Route{}, fmt.Errorf("create route vehicle=%s date=%s: %w", r.VehicleID, r.ServiceDate, domain.ErrRouteExists)
		}
	}
	r.ID = newID(r.ID)
	s.routes[r.ID] = r
	s.routeOrder = append(s.routeOrder, r.ID)
	return r, nil
}

func (s *Store) ListPendingRoutes(ctx context.Context, serviceDate string) ([]domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Route, 0)
	for _, id := range s.routeOrder {
		r := s.routes[id]
		if r.ServiceDate == serviceDate && r.IsPending() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListStops(ctx context.Context, routeID string) ([]domain.RouteStop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.stops[routeID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) AddStop(ctx context.Context, stop domain.RouteStop) (domain.RouteStop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[stop.RouteID]; !ok {
		return domain.RouteStop{}, fmt.Errorf("add stop: route %s: %w", stop.RouteID, domain.ErrNotFound)
	}
	for _, existing := range s.stops[stop.RouteID] {
		if existing.Order == stop.Order {
			return domain.RouteStop{}, fmt.Errorf("add stop route=%s order=%d: %w", stop.RouteID, stop.Order, domain.ErrStopOrderConflict)
		}
	}
	stop.ID = newID(stop.ID)
	s.stops[stop.RouteID] = append(s.stops[stop.RouteID], stop)
	return stop, nil
}

// SetStopOrders applies one row at a time and enforces (route, order)
// uniqueness after each row. On conflict the route's stops are restored.
func (s *Store) SetStopOrders(ctx context.Context, routeID string, orders map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stops := s.stops[routeID]
	snapshot := slices.Clone(stops)

	ids := make([]string, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		idx := slices.IndexFunc(stops, func(st domain.RouteStop) bool { return st.ID == id })
		if idx < 0 {
			s.stops[routeID] = snapshot
			return fmt.Errorf("set stop orders: stop %s in route %s: %w", id, routeID, domain.ErrNotFound)
		}
		for j, other := range stops {
			if j != idx && other.Order == orders[id] {
				s.stops[routeID] = snapshot
				return fmt.Errorf("set stop orders route=%s order=%d: %w", routeID, orders[id], domain.ErrStopOrderConflict)
			}
		}
		stops[idx].Order = orders[id]
	}

	return nil
}

func (s *Store) ListRoutePackages(ctx context.Context, routeID string) ([]domain.RoutePackage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.links[routeID]), nil
}

func (s *Store) LinkPackage(ctx context.Context, link domain.RoutePackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stops := s.stops[link.RouteID]
	for _, id := range []string{link.PickupStopID, link.DropoffStopID} {
		if !slices.ContainsFunc(stops, func(st domain.RouteStop) bool { return st.ID == id }) {
			return fmt.Errorf("link package %s: stop %s not in route %s: %w", link.PackageID, id, link.RouteID, domain.ErrNotFound)
		}
	}
	links := s.links[link.RouteID]
	if i := slices.IndexFunc(links, func(l domain.RoutePackage) bool { return l.PackageID == link.PackageID }); i >= 0 {
		links[i] = link
		return nil
	}

	s.links[link.RouteID] = append(links, link)
	return nil
}

func (s *Store) UnlinkPackage(ctx context.Context, routeID, packageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[routeID] = slices.DeleteFunc(s.links[routeID], func(l domain.RoutePackage) bool {
		return l.PackageID == packageID
	})
	return nil
}
