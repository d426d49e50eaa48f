package datastore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/screensound/catalog/internal/domain/repository"
	sqlitedriver "github.com/screensound/catalog/internal/infra/datastore/sqlite"
)

var errClosed = fmt.Errorf("%w: persistence context is closed", repository.ErrConnection)

// isConnErr reports errors that mean the session itself is unusable.
func isConnErr(err error) bool {
	return errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		sqlitedriver.IsBusyErr(err)
}

// flushErr classifies a failed write. Errors already carrying a kind pass through.
func flushErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrConnection),
		errors.Is(err, repository.ErrPersistence),
		errors.Is(err, repository.ErrNotFound):
		return err
	case isConnErr(err):
		return fmt.Errorf("%w: %s: %w", repository.ErrConnection, op, err)
	case sqlitedriver.IsConstraintErr(err):
		return fmt.Errorf("%w: %s violates a constraint: %w", repository.ErrPersistence, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", repository.ErrPersistence, op, err)
	}
}

// readErr classifies a failed read; reads only fail when the store is unreachable.
func readErr(op string, err error) error {
	if errors.Is(err, repository.ErrConnection) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", repository.ErrConnection, op, err)
}

func requireRow(res sql.Result, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return flushErr("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s id=%d", repository.ErrNotFound, table, id)
	}
	return nil
}
