package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/payrolldesk/migrations"
)

// RunMigrations applies every pending embedded migration.
func RunMigrations(config Config, log logrus.FieldLogger) error {
	m, err := newMigrator(config)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("migrations applied")
	return nil
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(config Config, log logrus.FieldLogger) error {
	m, err := newMigrator(config)
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	log.Info("rolled back one migration")
	return nil
}

func newMigrator(config Config) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, config.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate, log logrus.FieldLogger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.WithError(srcErr).Warn("failed to close migration source")
	}
	if dbErr != nil {
		log.WithError(dbErr).Warn("failed to close migration database")
	}
}
