package repository

import (
	"context"
	"log/slog"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
)

// Database is an opened store with its repositories wired.
type Database struct {
	DB          *DB
	Operational OperationalRepository
	Evidence    EvidenceRepository
	logger      *slog.Logger
}

// InitDatabase opens the configured store. inmem forces a private in-memory
// sqlite database. sqlite stores get every table created; on Postgres only the
// evidence tables are migrated, the operational tables belong to the hospital
// system.
func InitDatabase(ctx context.Context, cfg *common.Config, inmem bool, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db  *DB
		err error
	)
	dcfg := ConfigFrom(cfg.Database)
	if inmem {
		dcfg.Driver = common.StoreDriverSQLite
		dcfg.SQLitePath = ":memory:"
	}
	db, err = Open(ctx, dcfg, logger)
	if err != nil {
		return nil, err
	}

	tables := Tables
	if dcfg.Driver != common.StoreDriverSQLite {
		tables = EvidenceTables
	}
	if err := MigrateTables(ctx, db.Driver, tables); err != nil {
		db.Close(logger)
		logger.Error("db.migrate.failed", "error", err)
		return nil, common.NewAppError("DB_MIGRATE", "failed to create tables", err)
	}
	logger.Info("db.migrate.ok", "tables", len(tables))

	return &Database{
		DB:          db,
		Operational: NewOperationalRepository(db.Driver, logger),
		Evidence:    NewEvidenceRepository(db.Driver, logger),
		logger:      logger,
	}, nil
}

// Cleanup closes the store.
func (d *Database) Cleanup() {
	d.DB.Close(d.logger)
}
