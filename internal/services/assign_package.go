package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/obs"
	"parcel-dispatch-service/internal/ports"
	"strings"
	"time"
)

type Outcome string

const (
	OutcomeAssigned     Outcome = "assigned"
	OutcomeConsolidated Outcome = "consolidated"
	OutcomeUnassigned   Outcome = "unassigned"
)

// Reason explains an unassigned outcome. Every reason leaves the package
// in a valid state that a later retry can pick up.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonPackageNotFound   Reason = "package_not_found"
	ReasonPackageClosed     Reason = "package_closed"
	ReasonAlreadyAssigned   Reason = "already_assigned"
	ReasonNoActiveDepots    Reason = "no_active_depots"
	ReasonNoEligibleVehicle Reason = "no_eligible_vehicle"
	ReasonNoDriver          Reason = "no_driver"
)

// Assignment is the engine's answer for one package.
type Assignment struct {
	PackageID          string
	Outcome            Outcome
	Reason             Reason
	VehicleID          string
	VehiclePlate       string
	RouteID            string
	OriginDepotID      string
	DestinationDepotID string
	Score              float64
}

func (a Assignment) Assigned() bool { return a.Outcome != OutcomeUnassigned }

// Recorder observes finished assignment decisions.
type Recorder interface {
	ObserveAssignment(outcome Outcome, reason Reason, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAssignment(Outcome, Reason, time.Duration) {}

// EngineDeps lists the collaborators of the assignment engine.
// Geocoder, Fallback, Recorder and Now are optional.
type EngineDeps struct {
	Depots   ports.DepotDirectory
	Vehicles ports.VehicleDirectory
	Drivers  ports.DriverDirectory
	Packages ports.PackageStore
	Routes   ports.RouteStore
	Locker   ports.VehicleLocker
	Geocoder ports.Geocoder
	Fallback DepotFallback
	Recorder Recorder
	Tuning   config.Tuning
	Now      func() time.Time
}

// Engine assigns packages to vehicles and keeps routes sequenced.
//
// Candidate ranking happens without locks. Each candidate is then re-checked
// and committed under its vehicle lock; a candidate that stopped fitting in the
// meantime is skipped in favour of the next one.
type Engine struct {
	depots   ports.DepotDirectory
	vehicles ports.VehicleDirectory
	packages ports.PackageStore
	routes   ports.RouteStore
	locker   ports.VehicleLocker
	geocoder ports.Geocoder
	recorder Recorder
	now      func() time.Time

	resolver      DepotResolver
	ledger        CapacityLedger
	scorer        VehicleScorer
	consolidation ConsolidationEvaluator
	builder       RouteBuilder
}

func NewEngine(d EngineDeps) (*Engine, error) {
	if d.Depots == nil || d.Vehicles == nil || d.Drivers == nil || d.Packages == nil || d.Routes == nil {
		return nil, errors.New("new engine: stores must be non-nil")
	}
	if d.Locker == nil {
		return nil, errors.New("new engine: vehicle locker must be non-nil")
	}

	now := d.Now
	if now == nil {
		now = time.Now
	}
	recorder := d.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}

	ledger := CapacityLedger{Vehicles: d.Vehicles}
	sequencer := StopSequencer{Routes: d.Routes, Depots: d.Depots, Tuning: d.Tuning.Sequencer}

	return &Engine{
		depots:   d.Depots,
		vehicles: d.Vehicles,
		packages: d.Packages,
		routes:   d.Routes,
		locker:   d.Locker,
		geocoder: d.Geocoder,
		recorder: recorder,
		now:      now,
		resolver: DepotResolver{Fallback: d.Fallback},
		ledger:   ledger,
		scorer:   VehicleScorer{Tuning: d.Tuning.Scoring},
		consolidation: ConsolidationEvaluator{
			Routes:   d.Routes,
			Vehicles: d.Vehicles,
			Ledger:   ledger,
			Tuning:   d.Tuning.Consolidation,
		},
		builder: RouteBuilder{
			Routes:    d.Routes,
			Drivers:   d.Drivers,
			Sequencer: sequencer,
			Now:       now,
		},
	}, nil
}

// ServiceDate returns today's date in the engine clock.
func (e *Engine) ServiceDate() string {
	return e.now().Format(domain.ServiceDateLayout)
}

// AssignPackage places a package on a vehicle's route for today.
//
// Business failures (missing data, no capacity, no driver) come back as an
// unassigned Assignment with a nil error. The error is reserved for
// infrastructure failures. The engine never retries.
func (e *Engine) AssignPackage(ctx context.Context, packageID string) (a Assignment, err error) {
	defer obs.Time(ctx, "engine.AssignPackage")(&err)

	start := time.Now()
	defer func() {
		if err == nil {
			e.recorder.ObserveAssignment(a.Outcome, a.Reason, time.Since(start))
		}
	}()

	a = Assignment{PackageID: packageID, Outcome: OutcomeUnassigned}

	pkg, err := e.packages.GetPackage(ctx, packageID)
	if errors.Is(err, domain.ErrNotFound) {
		return e.unassigned(a, ReasonPackageNotFound), nil
	}
	if err != nil {
		return Assignment{}, fmt.Errorf("assign package %s: get package: %w", packageID, err)
	}

	if pkg.Status.IsTerminal() {
		return e.unassigned(a, ReasonPackageClosed), nil
	}
	if pkg.AssignedVehicleID != nil && pkg.Status != domain.PackageStatusRegistered {
		a.Outcome = OutcomeAssigned
		a.Reason = ReasonAlreadyAssigned
		a.VehicleID = *pkg.AssignedVehicleID
		return a, nil
	}

	pkg = e.fillCoordinates(ctx, pkg)

	depots, err := e.depots.ListActiveDepots(ctx)
	if err != nil {
		return Assignment{}, fmt.Errorf("assign package %s: list depots: %w", packageID, err)
	}

	pair, ok := e.resolver.Resolve(pkg, depots)
	if !ok {
		return e.unassigned(a, ReasonNoActiveDepots), nil
	}

	a.OriginDepotID = pair.Origin.ID
	var destID *string
	if pair.Destination != nil {
		a.DestinationDepotID = pair.Destination.ID
		destID = &pair.Destination.ID
	}
	if err := e.packages.SetDepots(ctx, packageID, &pair.Origin.ID, destID); err != nil {
		return Assignment{}, fmt.Errorf("assign package %s: set depots: %w", packageID, err)
	}

	index := NewDepotIndex(e.depots, depots)
	date := e.ServiceDate()

	done, err := e.consolidate(ctx, &a, pkg, pair, date, index)
	if err != nil {
		return Assignment{}, fmt.Errorf("assign package %s: %w", packageID, err)
	}
	if done {
		return a, nil
	}

	if err := e.assignFromFleet(ctx, &a, pkg, pair, date, index); err != nil {
		return Assignment{}, fmt.Errorf("assign package %s: %w", packageID, err)
	}
	return a, nil
}

func (e *Engine) unassigned(a Assignment, reason Reason) Assignment {
	a.Outcome = OutcomeUnassigned
	a.Reason = reason
	log.Printf("op=assign package_id=%s outcome=%s reason=%s", a.PackageID, a.Outcome, reason)
	return a
}

// consolidate tries pending routes best-first and reports whether one took the package.
func (e *Engine) consolidate(
	ctx context.Context,
	a *Assignment,
	pkg domain.Package,
	pair DepotPair,
	date string,
	index *DepotIndex,
) (bool, error) {
	candidates, err := e.consolidation.Evaluate(ctx, pkg, pair, date, index)
	if err != nil {
		return false, err
	}

	for _, c := range candidates {
		committed := false
		err := e.locker.WithVehicleLock(ctx, c.Vehicle.ID, func(ctx context.Context) error {
			route, err := e.routes.GetRoute(ctx, c.Route.ID)
			if err != nil {
				return fmt.Errorf("consolidate: reload route %s: %w", c.Route.ID, err)
			}
			if !route.IsPending() {
				return nil
			}

			fits, err := e.ledger.Fits(ctx, c.Vehicle, pkg)
			if err != nil || !fits {
				return err
			}

			anchor, err := e.vehicleAnchor(ctx, c.Vehicle, index)
			if err != nil {
				return err
			}
			if err := e.builder.ExtendRoute(ctx, route, pkg.ID, pair, anchor); err != nil {
				return fmt.Errorf("consolidate: %w", err)
			}
			if err := e.commitPackage(ctx, route.ID, pkg.ID, c.Vehicle); err != nil {
				return err
			}

			committed = true
			return nil
		})
		if err != nil {
			return false, err
		}

		if committed {
			a.Outcome = OutcomeConsolidated
			a.VehicleID = c.Vehicle.ID
			a.VehiclePlate = c.Vehicle.Plate
			a.RouteID = c.Route.ID
			a.Score = c.Score
			log.Printf(
				"op=assign package_id=%s outcome=%s vehicle_id=%s route_id=%s score=%.3f detour_ratio=%.3f",
				pkg.ID, a.Outcome, a.VehicleID, a.RouteID, c.Score, c.Insertion.DetourRatio,
			)
			return true, nil
		}
	}

	return false, nil
}

// assignFromFleet ranks available vehicles and commits to the best one that still fits.
func (e *Engine) assignFromFleet(
	ctx context.Context,
	a *Assignment,
	pkg domain.Package,
	pair DepotPair,
	date string,
	index *DepotIndex,
) error {
	candidates, err := e.fleetCandidates(ctx, pkg, pair, date, index)
	if err != nil {
		return err
	}

	for _, c := range Rank(candidates) {
		var (
			committed bool
			noDriver  bool
			routeID   string
		)

		err := e.locker.WithVehicleLock(ctx, c.Vehicle.ID, func(ctx context.Context) error {
			fits, err := e.ledger.Fits(ctx, c.Vehicle, pkg)
			if err != nil || !fits {
				return err
			}

			route, err := e.routes.FindRoute(ctx, c.Vehicle.ID, date)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				route, err = e.builder.CreateRoute(ctx, c.Vehicle, date, pkg.ID, pair)
				if errors.Is(err, ErrNoDriver) {
					noDriver = true
					return nil
				}
				if err != nil {
					return fmt.Errorf("fleet assign: %w", err)
				}
			case err != nil:
				return fmt.Errorf("fleet assign: find route: %w", err)
			case !route.IsPending():
				return nil
			default:
				anchor := &c.Home.Location
				if err := e.builder.ExtendRoute(ctx, route, pkg.ID, pair, anchor); err != nil {
					return fmt.Errorf("fleet assign: %w", err)
				}
			}

			if err := e.commitPackage(ctx, route.ID, pkg.ID, c.Vehicle); err != nil {
				return err
			}

			routeID = route.ID
			committed = true
			return nil
		})
		if err != nil {
			return err
		}

		if noDriver {
			a.VehicleID = c.Vehicle.ID
			a.VehiclePlate = c.Vehicle.Plate
			*a = e.unassigned(*a, ReasonNoDriver)
			return nil
		}

		if committed {
			a.Outcome = OutcomeAssigned
			a.VehicleID = c.Vehicle.ID
			a.VehiclePlate = c.Vehicle.Plate
			a.RouteID = routeID
			a.Score = c.Score.Total
			log.Printf(
				"op=assign package_id=%s outcome=%s vehicle_id=%s plate=%s route_id=%s score=%.3f",
				pkg.ID, a.Outcome, a.VehicleID, a.VehiclePlate, a.RouteID, c.Score.Total,
			)
			return nil
		}
	}

	*a = e.unassigned(*a, ReasonNoEligibleVehicle)
	return nil
}

// fleetCandidates returns every available vehicle with a resolvable home depot
// that fits the package and can still take work today, in directory order.
func (e *Engine) fleetCandidates(
	ctx context.Context,
	pkg domain.Package,
	pair DepotPair,
	date string,
	index *DepotIndex,
) ([]VehicleCandidate, error) {
	vehicles, err := e.vehicles.ListAvailableVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fleet candidates: list vehicles: %w", err)
	}

	out := make([]VehicleCandidate, 0, len(vehicles))
	for _, v := range vehicles {
		if v.HomeDepotID == nil {
			continue
		}

		home, err := index.Get(ctx, *v.HomeDepotID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fleet candidates: vehicle %s: %w", v.ID, err)
		}

		fits, err := e.ledger.Fits(ctx, v, pkg)
		if err != nil {
			return nil, fmt.Errorf("fleet candidates: %w", err)
		}
		if !fits {
			continue
		}

		route, err := e.routes.FindRoute(ctx, v.ID, date)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("fleet candidates: vehicle %s: find route: %w", v.ID, err)
		}
		if err == nil && !route.IsPending() {
			continue
		}

		out = append(out, VehicleCandidate{
			Vehicle: v,
			Home:    home,
			Score:   e.scorer.Score(pkg, pair, v, home),
		})
	}

	return out, nil
}

// commitPackage records the vehicle, status and history entry in one store call.
// On failure the package link added to routeID is removed again so the package
// stays unassigned and a later attempt starts clean.
func (e *Engine) commitPackage(ctx context.Context, routeID, packageID string, v domain.Vehicle) error {
	err := e.packages.AssignVehicle(ctx, v.ID, domain.StatusEntry{
		PackageID: packageID,
		Status:    domain.PackageStatusAssigned,
		Note:      "Auto-assigned to vehicle " + v.Plate,
		At:        e.now(),
	})
	if err == nil {
		return nil
	}

	if uerr := e.routes.UnlinkPackage(context.WithoutCancel(ctx), routeID, packageID); uerr != nil {
		log.Printf("op=assign package_id=%s route_id=%s msg=%q err=%v", packageID, routeID, "unlink after failed commit", uerr)
	}
	return fmt.Errorf("commit package %s: %w", packageID, err)
}

// vehicleAnchor returns the vehicle's current physical position, which is its
// home depot while vehicles report no live location.
func (e *Engine) vehicleAnchor(ctx context.Context, v domain.Vehicle, index *DepotIndex) (*domain.Coordinates, error) {
	if v.HomeDepotID == nil {
		return nil, nil
	}
	home, err := index.Get(ctx, *v.HomeDepotID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vehicle %s anchor: %w", v.ID, err)
	}
	return &home.Location, nil
}

// fillCoordinates geocodes missing endpoints when a geocoder is configured.
// Failures are logged and leave the package to the depot fallback rules.
func (e *Engine) fillCoordinates(ctx context.Context, pkg domain.Package) domain.Package {
	if e.geocoder == nil {
		return pkg
	}

	lookup := func(kind, address string) *domain.Coordinates {
		if strings.TrimSpace(address) == "" {
			return nil
		}
		c, err := e.geocoder.Geocode(ctx, address)
		if err != nil {
			log.Printf("op=geocode package_id=%s endpoint=%s err=%v", pkg.ID, kind, err)
			return nil
		}
		return &c
	}

	var origin, dest *domain.Coordinates
	if pkg.Origin == nil {
		origin = lookup("origin", pkg.OriginAddress)
	}
	if pkg.Destination == nil {
		dest = lookup("destination", pkg.DestinationAddress)
	}
	if origin == nil && dest == nil {
		return pkg
	}

	if err := e.packages.UpdateCoordinates(ctx, pkg.ID, origin, dest); err != nil {
		log.Printf("op=geocode package_id=%s msg=%q err=%v", pkg.ID, "persist coordinates failed", err)
	}

	if origin != nil {
		pkg.Origin = origin
	}
	if dest != nil {
		pkg.Destination = dest
	}
	return pkg
}

// ResequenceRoute reorders a pending route's stops from its vehicle's position.
func (e *Engine) ResequenceRoute(ctx context.Context, routeID string) (changed bool, err error) {
	defer obs.Time(ctx, "engine.ResequenceRoute")(&err)

	route, err := e.routes.GetRoute(ctx, routeID)
	if err != nil {
		return false, fmt.Errorf("resequence route %s: %w", routeID, err)
	}

	err = e.locker.WithVehicleLock(ctx, route.VehicleID, func(ctx context.Context) error {
		route, err := e.routes.GetRoute(ctx, routeID)
		if err != nil {
			return fmt.Errorf("resequence route %s: reload: %w", routeID, err)
		}
		if !route.IsPending() {
			return fmt.Errorf("resequence route %s: %w", routeID, domain.ErrRouteNotPending)
		}

		v, err := e.vehicles.GetVehicle(ctx, route.VehicleID)
		if err != nil {
			return fmt.Errorf("resequence route %s: vehicle: %w", routeID, err)
		}

		depots, err := e.depots.ListActiveDepots(ctx)
		if err != nil {
			return fmt.Errorf("resequence route %s: list depots: %w", routeID, err)
		}
		anchor, err := e.vehicleAnchor(ctx, v, NewDepotIndex(e.depots, depots))
		if err != nil {
			return err
		}

		changed, err = e.builder.Sequencer.Resequence(ctx, routeID, anchor)
		return err
	})
	return changed, err
}
