package database

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the connection with a statement builder using the driver's
// placeholder format.
type DB struct {
	*sqlx.DB
	Builder squirrel.StatementBuilderType
	Driver  string
}

// Connect opens and pings the database. driver is "postgres" or "sqlite".
func Connect(driver, dsn string) (*DB, error) {
	logger := zap.L().With(zap.String("driver", driver))

	var builder squirrel.StatementBuilderType
	switch driver {
	case DriverPostgres:
		builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	case DriverSQLite:
		builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
	default:
		return nil, eris.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		logger.Error("database connection failed", zap.Error(err))
		return nil, eris.Wrap(err, "database: connect")
	}

	if driver == DriverSQLite {
		// One writer at a time keeps conditional updates serialised.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, eris.Wrapf(err, "database: exec %s", pragma)
			}
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "database: ping")
	}

	logger.Info("database connection established")
	return &DB{DB: db, Builder: builder, Driver: driver}, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(db *DB) error {
	return MigrateContext(context.Background(), db)
}

func MigrateContext(ctx context.Context, db *DB) error {
	migrations := postgresMigrations
	if db.Driver == DriverSQLite {
		migrations = sqliteMigrations
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return eris.Wrapf(err, "database: migration %d failed", i)
		}
	}

	zap.L().Info("database migrations completed", zap.Int("statements", len(migrations)))
	return nil
}

var (
	categoryCheck = `category IN ('pszok', 'small_electronics', 'electronics', 'expired_medications')`
	statusCheck   = `status IN ('draft', 'active', 'claimed', 'completed')`
	// A contractor is present exactly once the job has been claimed, and
	// completion proof exactly once it has been completed.
	jobInvariants = `CHECK ((contractor_id IS NOT NULL) = (status IN ('claimed', 'completed'))),
			CHECK ((completion_photo_url IS NOT NULL AND completion_latitude IS NOT NULL AND completion_longitude IS NOT NULL) = (status = 'completed'))`
)

var postgresMigrations = []string{
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS waste_jobs (
			id BIGSERIAL PRIMARY KEY,
			requester_id TEXT NOT NULL,
			contractor_id TEXT,
			category TEXT NOT NULL CHECK(%s),
			status TEXT NOT NULL DEFAULT 'draft' CHECK(%s),
			title TEXT NOT NULL,
			description TEXT,
			photo_url TEXT,
			image_data TEXT NOT NULL DEFAULT '',
			pickup_latitude DOUBLE PRECISION NOT NULL,
			pickup_longitude DOUBLE PRECISION NOT NULL,
			completion_latitude DOUBLE PRECISION,
			completion_longitude DOUBLE PRECISION,
			completion_photo_url TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			%s
		)`, categoryCheck, statusCheck, jobInvariants),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS waste_delivery_points (
			id TEXT PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			description TEXT NOT NULL,
			opening_hours JSONB,
			category TEXT NOT NULL CHECK(%s)
		)`, categoryCheck),

	`CREATE INDEX IF NOT EXISTS idx_waste_jobs_status ON waste_jobs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_waste_jobs_requester_id ON waste_jobs(requester_id)`,
	`CREATE INDEX IF NOT EXISTS idx_waste_jobs_contractor_id ON waste_jobs(contractor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_waste_delivery_points_category ON waste_delivery_points(category)`,
}

var sqliteMigrations = []string{
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS waste_jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			requester_id TEXT NOT NULL,
			contractor_id TEXT,
			category TEXT NOT NULL CHECK(%s),
			status TEXT NOT NULL DEFAULT 'draft' CHECK(%s),
			title TEXT NOT NULL,
			description TEXT,
			photo_url TEXT,
			image_data TEXT NOT NULL DEFAULT '',
			pickup_latitude REAL NOT NULL,
			pickup_longitude REAL NOT NULL,
			completion_latitude REAL,
			completion_longitude REAL,
			completion_photo_url TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			%s
		)`, categoryCheck, statusCheck, jobInvariants),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS waste_delivery_points (
			id TEXT PRIMARY KEY,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			description TEXT NOT NULL,
			opening_hours TEXT,
			category TEXT NOT NULL CHECK(%s)
		)`, categoryCheck),

	`CREATE INDEX IF NOT EXISTS idx_waste_jobs_status ON waste_jobs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_waste_jobs_requester_id ON waste_jobs(requester_id)`,
	`CREATE INDEX IF NOT EXISTS idx_waste_jobs_contractor_id ON waste_jobs(contractor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_waste_delivery_points_category ON waste_delivery_points(category)`,
}
