package database

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func newMigrate(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}

func MigrateUp(dsn string) error {
	m, err := newMigrate(dsn)
	if err != nil {
		log.Error("Migration init failed: ", err)
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("Migration up failed: ", err)
		return err
	}
	log.Infoln("Migration up done")
	return nil
}

func MigrateDown(dsn string) error {
	m, err := newMigrate(dsn)
	if err != nil {
		log.Error("Migration init failed: ", err)
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("Migration down failed: ", err)
		return err
	}
	log.Infoln("Migration down done")
	return nil
}
