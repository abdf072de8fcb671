package locking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// PostgresLocker uses session-level advisory locks keyed on the vehicle id.
// The lock lives on a dedicated pooled connection for the duration of fn.
type PostgresLocker struct {
	DB *sql.DB
}

func NewPostgresLocker(db *sql.DB) *PostgresLocker {
	return &PostgresLocker{DB: db}
}

func (l *PostgresLocker) WithVehicleLock(ctx context.Context, vehicleID string, fn func(ctx context.Context) error) error {
	if l.DB == nil {
		return errors.New("postgres lock: db is nil")
	}

	conn, err := l.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("postgres lock vehicle=%s: get conn: %w", vehicleID, err)
	}
	defer conn.Close()

	key := "vehicle:" + vehicleID
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("postgres lock vehicle=%s: acquire: %w", vehicleID, err)
	}
	defer func() {
		_, err := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, key)
		if err != nil {
			log.Printf("op=lock.release backend=postgres vehicle_id=%s err=%v", vehicleID, err)
		}
	}()

	return fn(ctx)
}
