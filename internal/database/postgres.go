package database

import (
	"context"
	"fmt"
	"stakeledger/internal/config"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var log = config.InitLogger()

type Postgres struct {
	Db *sqlx.DB
}

func DSN(config *config.PostgresConfig) string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&client_encoding=%s",
		config.User,
		config.Password,
		config.Host,
		config.Port,
		config.DBName,
		sslMode,
		"UTF8",
	)
}

func NewPostgres(config *config.PostgresConfig) (*Postgres, error) {
	return NewPostgresFromDSN(DSN(config))
}

func NewPostgresFromDSN(dsn string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		log.Error("Failed to connect to database: ", err)
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Postgres{
		Db: db,
	}, nil
}

func (p *Postgres) Close() error {
	err := p.Db.Close()
	if err != nil {
		log.Error("Error closing database: ", err)
		return err
	}

	return nil
}

func (p *Postgres) Ping() error {
	return p.Db.Ping()
}
