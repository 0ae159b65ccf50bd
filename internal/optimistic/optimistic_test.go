package optimistic

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	v       []string
	saves   int
	failAt  int
	loadErr error
}

func (m *memStore) Load(context.Context) ([]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.v, nil
}

func (m *memStore) Save(_ context.Context, v []string) error {
	m.saves++
	if m.failAt == m.saves {
		return errors.New("save failed")
	}
	m.v = v
	return nil
}

func without(name string) func([]string) []string {
	return func(in []string) []string {
		return slices.DeleteFunc(slices.Clone(in), func(s string) bool { return s == name })
	}
}

func TestApply_CommitSucceeds(t *testing.T) {
	store := &memStore{v: []string{"algebra", "biology", "chemistry"}}

	var seenDuringCommit []string
	err := Apply(context.Background(), store, without("biology"), func(context.Context) error {
		seenDuringCommit = slices.Clone(store.v)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "chemistry"}, seenDuringCommit, "update is visible before commit")
	assert.Equal(t, []string{"algebra", "chemistry"}, store.v)
}

func TestApply_CommitFailsRestoresSnapshot(t *testing.T) {
	store := &memStore{v: []string{"algebra", "biology"}}
	commitErr := errors.New("delete failed")

	err := Apply(context.Background(), store, without("biology"), func(context.Context) error {
		return commitErr
	})

	require.ErrorIs(t, err, commitErr)
	assert.Equal(t, []string{"algebra", "biology"}, store.v)
	assert.Equal(t, 2, store.saves)
}

func TestApply_RestoreFailureIsReported(t *testing.T) {
	store := &memStore{v: []string{"algebra"}, failAt: 2}
	commitErr := errors.New("delete failed")

	err := Apply(context.Background(), store, without("algebra"), func(context.Context) error {
		return commitErr
	})

	require.ErrorIs(t, err, commitErr)
	assert.Contains(t, err.Error(), "restore snapshot")
}

func TestApply_LoadFailureSkipsCommit(t *testing.T) {
	store := &memStore{loadErr: errors.New("cache down")}
	called := false

	err := Apply(context.Background(), store, without("x"), func(context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Zero(t, store.saves)
}
