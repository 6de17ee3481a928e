package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/railzwaylabs/orderpay/internal/order/sequence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run brings the schema up to date. Postgres uses the versioned scripts; mysql and sqlite,
// used for local runs and tests, are migrated from the gorm models.
func Run(ctx context.Context, gdb *gorm.DB, driver string, log *zap.Logger) error {
	if gdb == nil {
		return errors.New("migration database handle is required")
	}
	log = log.Named("migration")

	if driver != "postgres" {
		if err := gdb.WithContext(ctx).AutoMigrate(&orderdomain.Order{}, &sequence.Counter{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("schema migrated from models", zap.String("driver", driver))
		return nil
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return withAdvisoryLock(ctx, sqlDB, func(conn *sql.Conn) error {
		version, err := up(ctx, conn)
		if err != nil {
			return err
		}
		if err := recordSchemaState(ctx, conn, version); err != nil {
			return err
		}
		log.Info("schema migrated", zap.Uint("version", version))
		return nil
	})
}

func up(ctx context.Context, conn *sql.Conn) (uint, error) {
	latest, err := LatestVersion()
	if err != nil {
		return 0, err
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}

	if _, err := cleanVersion(m); err != nil {
		return 0, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	current, err := cleanVersion(m)
	if err != nil {
		return 0, err
	}
	if current != latest {
		return 0, fmt.Errorf("schema version mismatch after migrate: got %d want %d", current, latest)
	}
	return current, nil
}

func cleanVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}

func recordSchemaState(ctx context.Context, conn *sql.Conn, version uint) error {
	checksum, err := Checksum()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO schema_state (id, schema_version, checksum, applied_at)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    applied_at = EXCLUDED.applied_at
	`, strconv.FormatUint(uint64(version), 10), checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record schema state: %w", err)
	}
	return nil
}
