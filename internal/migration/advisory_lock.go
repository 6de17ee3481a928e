package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// advisoryLockKey serializes schema changes across replicas starting at the same time.
const advisoryLockKey int64 = 7_310_442_518

func withAdvisoryLock(ctx context.Context, db *sql.DB, fn func(conn *sql.Conn) error) error {
	// Session-level locks belong to one connection, so lock and unlock on the same one.
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reserve connection: %w", err)
	}
	defer conn.Close()

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !locked {
		return errors.New("another migration process holds the advisory lock")
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", advisoryLockKey)
	}()

	return fn(conn)
}
