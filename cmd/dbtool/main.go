package main

import (
	"context"
	"flag"
	"log"
	"parcel-dispatch-service/internal/adapters/repositories"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/platform/db"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

func main() {
	skipSeed := flag.Bool("schema-only", false, "create tables without loading the fleet seed")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/fleet.json")
	initAndSeed(conn, seedPath, *skipSeed)
}

func initAndSeed(conn *sqlx.DB, seedPath string, skipSeed bool) {
	ctx := context.Background()

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if skipSeed {
		return
	}

	log.Println("Seeding database...")
	if err := repositories.SeedFromJSON(ctx, conn, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
