package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"homecheff/migrations"
)

// Migrate applies the embedded migrations. An up-to-date schema is not an error.
func Migrate(dbURL string, verbose bool, log *zap.Logger) error {
	log.Info("Running database migration")

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateURL(dbURL))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	m.Log = &migrateLogger{logger: log, verbose: verbose}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Database migration: no change needed")
			return nil
		}
		log.Error("Database migration failed", zap.Error(err))
		return err
	}
	log.Info("Database migration finished")
	return nil
}

// MigrateURL rewrites a postgres URL to the scheme the pgx/v5 driver registers.
func MigrateURL(dbURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dbURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(dbURL, prefix)
		}
	}
	return dbURL
}

type migrateLogger struct {
	logger  *zap.Logger
	verbose bool
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Sugar().Infof("DB Migration: "+strings.TrimSuffix(format, "\n"), v...)
}

func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
