package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// insertReturning runs a named insert ... returning statement inside its own
// transaction and scans the returned columns into dest.
func insertReturning(ctx context.Context, db *sqlx.DB, query string, arg any, dest ...any) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error("Failed to begin transaction: ", err)
		return err
	}

	q, args, err := tx.BindNamed(query, arg)
	if err != nil {
		log.Error("Failed to bind query: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
		}
		return err
	}

	if err := tx.QueryRowxContext(ctx, q, args...).Scan(dest...); err != nil {
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction: ", err)
		return err
	}

	return nil
}

func execAffected(ctx context.Context, db *sqlx.DB, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
