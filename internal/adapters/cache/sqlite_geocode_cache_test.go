package cache

import (
	"context"
	"database/sql"
	"parcel-dispatch-service/internal/domain"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestSqlite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSqliteGeocodeCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewSqliteGeocodeCache(openTestSqlite(t))
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	// build test data
	in := map[string]domain.Coordinates{}
	in["Calle Mayor 1, Madrid"] = domain.Coordinates{Lon: -3.7038, Lat: 40.4168}
	in["Placa Catalunya, Barcelona"] = domain.Coordinates{Lon: 2.1700, Lat: 41.3870}
	if err := c.PutMany(ctx, in); err != nil {
		t.Fatalf("put many: %v", err)
	}

	got, err := c.GetMany(ctx, []string{"Calle Mayor 1, Madrid", " Calle Mayor 1, Madrid ", "Unknown", ""})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("hits = %d, want 1", len(got))
	}
	if got["Calle Mayor 1, Madrid"] != in["Calle Mayor 1, Madrid"] {
		t.Fatalf("coords = %v, want %v", got["Calle Mayor 1, Madrid"], in["Calle Mayor 1, Madrid"])
	}
}

func TestSqliteGeocodeCacheOverwrites(t *testing.T) {
	ctx := context.Background()
	c := NewSqliteGeocodeCache(openTestSqlite(t))
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	if err := c.PutMany(ctx, map[string]domain.Coordinates{"A": {Lon: 1, Lat: 1}}); err != nil {
		t.Fatalf("put many: %v", err)
	}
	if err := c.PutMany(ctx, map[string]domain.Coordinates{"A": {Lon: 2, Lat: 3}}); err != nil {
		t.Fatalf("put many: %v", err)
	}

	got, err := c.GetMany(ctx, []string{"A"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if got["A"] != (domain.Coordinates{Lon: 2, Lat: 3}) {
		t.Fatalf("coords = %v, want {2 3}", got["A"])
	}
}

func TestSqliteGeocodeCacheRejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	c := NewSqliteGeocodeCache(openTestSqlite(t))
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	if err := c.PutMany(ctx, map[string]domain.Coordinates{"  ": {}}); err == nil {
		t.Fatal("expected error for blank address key")
	}
}
