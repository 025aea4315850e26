package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goliatone/go-payouts/core"
)

// retryOnConflict reruns attempt while it reports a lost version race, up to
// retries extra times.
func retryOnConflict[T any](ctx context.Context, retries int, attempt func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for try := 0; ; try++ {
		out, err := attempt(ctx)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, core.ErrVersionConflict) || try >= retries {
			return zero, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
	}
}

// expectOneRow turns a zero row update into a version conflict.
func expectOneRow(result sql.Result, table string, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: %s %q: %w", table, id, core.ErrVersionConflict)
	}
	return nil
}
