package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"parcel-dispatch-service/internal/adapters/cache"
	"parcel-dispatch-service/internal/adapters/geocode"
	"parcel-dispatch-service/internal/adapters/locking"
	"parcel-dispatch-service/internal/adapters/memory"
	"parcel-dispatch-service/internal/adapters/repositories"
	"parcel-dispatch-service/internal/api"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/metrics"
	"parcel-dispatch-service/internal/platform/db"
	"parcel-dispatch-service/internal/ports"
	"parcel-dispatch-service/internal/services"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// dispatchStore is every persistence port the engine needs, served by one backend.
type dispatchStore interface {
	ports.DepotDirectory
	ports.VehicleDirectory
	ports.DriverDirectory
	ports.PackageStore
	ports.RouteStore
}

// main is the application composition root.
// It wires concrete adapters (Postgres or memory, Redis, ORS) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := config.Get("PORT", "8080")
	databaseURL := config.Get("DATABASE_URL", "")
	seedPath := config.Get("SEED_PATH", "data/seeds/fleet.json")

	tuning, err := config.LoadTuning(config.Get("TUNING_PATH", "config/engine.yaml"))
	if err != nil {
		log.Fatal(err)
	}

	var (
		store dispatchStore
		pg    *sqlx.DB
	)
	if databaseURL == "" {
		log.Println("DATABASE_URL not set, using in-memory store")
		mem, err := openMemoryStore(seedPath)
		if err != nil {
			log.Fatal(err)
		}
		store = mem
	} else {
		pg, err = db.Open(databaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()

		// Initialize schema and seed demo data on startup for local runs.
		if err := initAndSeed(pg, seedPath); err != nil {
			log.Fatal(err)
		}
		store = repositories.NewPostgresStore(pg)
	}

	locker, closeLocker, err := openLocker(pg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLocker()

	geocoder, closeGeocoder, err := openGeocoder(pg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeGeocoder()

	metrics.RegisterDefault()
	engine, err := services.NewEngine(services.EngineDeps{
		Depots:   store,
		Vehicles: store,
		Drivers:  store,
		Packages: store,
		Routes:   store,
		Locker:   locker,
		Geocoder: geocoder,
		Fallback: services.NewDepotFallback(tuning.Depots),
		Recorder: metrics.AssignmentRecorder{},
		Tuning:   tuning,
	})
	if err != nil {
		log.Fatal(err)
	}

	router := api.NewRouter(api.RouterDeps{Dispatcher: engine, Packages: store, Routes: store})

	// Write timeout covers cold-cache geocoding during registration.
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func initAndSeed(pg *sqlx.DB, seedPath string) error {
	ctx := context.Background()
	if err := repositories.InitSchema(ctx, pg); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("seed file %q not found, skipping seed", seedPath)
		return nil
	}
	if err := repositories.SeedFromJSON(ctx, pg, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

func openMemoryStore(seedPath string) (*memory.Store, error) {
	s := memory.NewStore()
	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("seed file %q not found, starting with an empty fleet", seedPath)
		return s, nil
	}

	depots, vehicles, drivers, err := repositories.LoadFleetSeed(seedPath)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	for _, d := range depots {
		s.AddDepot(d)
	}
	for _, v := range vehicles {
		s.AddVehicle(v)
	}
	for _, d := range drivers {
		s.AddDriver(d)
	}

	log.Printf("memory store seeded depots=%d vehicles=%d drivers=%d", len(depots), len(vehicles), len(drivers))
	return s, nil
}

// openLocker selects the vehicle lock backend from LOCK_BACKEND.
// The returned close func is always safe to call.
func openLocker(pg *sqlx.DB) (ports.VehicleLocker, func(), error) {
	noop := func() {}

	switch backend := strings.ToLower(config.Get("LOCK_BACKEND", "memory")); backend {
	case "memory":
		return locking.NewMemoryLocker(), noop, nil

	case "redis":
		opt, err := redis.ParseURL(config.Get("REDIS_URL", "redis://localhost:6379/0"))
		if err != nil {
			return nil, noop, fmt.Errorf("open locker: parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("open locker: ping redis: %w", err)
		}

		ttl := config.GetDuration("LOCK_TTL", 30*time.Second)
		return locking.NewRedisLocker(client, ttl), func() { _ = client.Close() }, nil

	case "postgres":
		if pg == nil {
			return nil, noop, errors.New("open locker: LOCK_BACKEND=postgres requires DATABASE_URL")
		}
		return locking.NewPostgresLocker(pg.DB), noop, nil

	default:
		return nil, noop, fmt.Errorf("open locker: unknown LOCK_BACKEND %q", backend)
	}
}

// openGeocoder returns nil when ORS_API_KEY is unset; packages then rely on
// caller-supplied coordinates and the depot fallback.
func openGeocoder(pg *sqlx.DB) (ports.Geocoder, func(), error) {
	noop := func() {}

	apiKey := config.Get("ORS_API_KEY", "")
	if apiKey == "" {
		log.Println("ORS_API_KEY not set, geocoding disabled")
		return nil, noop, nil
	}

	var (
		geoCache ports.GeocodeCache
		closeFn  = noop
	)
	if pg != nil {
		geoCache = cache.NewSQLGeocodeCache(pg)
	} else {
		lite, err := db.OpenSQLite(config.Get("GEOCODE_CACHE_PATH", "data/geocode_cache.db"))
		if err != nil {
			return nil, noop, fmt.Errorf("open geocoder: %w", err)
		}
		sc := cache.NewSqliteGeocodeCache(lite)
		if err := sc.EnsureSchema(context.Background()); err != nil {
			_ = lite.Close()
			return nil, noop, fmt.Errorf("open geocoder: %w", err)
		}
		geoCache = sc
		closeFn = func() { _ = lite.Close() }
	}

	limiter := rate.NewLimiter(rate.Limit(config.GetFloat("GEOCODE_RPS", 1)), 1)
	g, err := geocode.NewORSGeocoder(apiKey, limiter, geoCache)
	if err != nil {
		closeFn()
		return nil, noop, fmt.Errorf("open geocoder: %w", err)
	}
	return g, closeFn, nil
}
