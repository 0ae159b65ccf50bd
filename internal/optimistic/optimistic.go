// Package optimistic applies a change to a stored value before the
// authoritative write happens, and puts the previous value back if that
// write fails.
package optimistic

import (
	"context"
	"errors"
	"fmt"
)

// Store loads and saves the value being updated optimistically.
type Store[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, v T) error
}

// Apply snapshots the stored value, saves mutate(snapshot), then runs
// commit. If commit fails the snapshot is saved back and the commit error
// is returned, joined with any restore error. mutate must return a new
// value rather than modify its argument in place.
func Apply[T any](ctx context.Context, store Store[T], mutate func(T) T, commit func(context.Context) error) error {
	snapshot, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if err := store.Save(ctx, mutate(snapshot)); err != nil {
		return fmt.Errorf("apply optimistic update: %w", err)
	}

	if err := commit(ctx); err != nil {
		if restoreErr := store.Save(ctx, snapshot); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("restore snapshot: %w", restoreErr))
		}
		return err
	}

	return nil
}
