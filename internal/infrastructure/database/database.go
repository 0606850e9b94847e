package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"mentor-agenda/internal/config"
)

// Database holds the core pool (google_access_data, whatsapp) and the agenda
// pool (mentors, appointments). AgendaDB is the same *sql.DB as DB when no
// separate agenda database is configured.
type Database struct {
	DB       *sql.DB
	AgendaDB *sql.DB
	logger   *zap.Logger
}

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*Database, error) {
	db, err := open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	agendaDB := db
	if cfg.AgendaDatabase.IsSet() {
		agendaDB, err = open(cfg.AgendaDatabase, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("agenda database: %w", err)
		}
	}

	database := &Database{
		DB:       db,
		AgendaDB: agendaDB,
		logger:   logger,
	}

	// Run migrations
	if err := database.migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return database.Close()
		},
	})

	return database, nil
}

func open(cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	// Build PostgreSQL connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connected successfully",
		zap.String("driver", cfg.Driver),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("dbname", cfg.DBName),
	)

	return db, nil
}

// migrate only touches the tables this service owns. The agenda tables are
// managed by the ticketing system.
func (d *Database) migrate() error {
	statements := []struct {
		name string
		sql  string
	}{
		{
			name: "google_access_data",
			sql: `
	CREATE TABLE IF NOT EXISTS google_access_data (
		company_id VARCHAR(255) PRIMARY KEY,
		google_client_id TEXT NOT NULL,
		google_client_secret TEXT NOT NULL,
		google_redirect_uri TEXT NOT NULL,
		google_access_token TEXT,
		google_refresh_token TEXT,
		google_expiry_date BIGINT,
		google_token_type VARCHAR(50),
		google_scope TEXT
	);`,
		},
		{
			name: "whatsapp",
			sql: `
	CREATE TABLE IF NOT EXISTS whatsapp (
		company_id VARCHAR(255) PRIMARY KEY,
		private_key TEXT NOT NULL,
		passphrase TEXT DEFAULT '',
		app_secret TEXT DEFAULT ''
	);`,
		},
	}

	for _, stmt := range statements {
		if _, err := d.DB.Exec(stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}

func (d *Database) Close() error {
	if d.AgendaDB != nil && d.AgendaDB != d.DB {
		if err := d.AgendaDB.Close(); err != nil {
			return err
		}
	}
	return d.DB.Close()
}
