package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/myshop/internal/adapters/repo/postgres"
	"github.com/phenrril/myshop/internal/domain"
	"github.com/phenrril/myshop/internal/testdb"
)

func TestOperatingSystemRepo(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOperatingSystemRepo(testdb.New(t))

	android := &domain.OperatingSystem{Name: "  Android "}
	require.NoError(t, repo.Save(ctx, android))
	assert.Equal(t, "Android", android.Name)
	assert.Error(t, repo.Save(ctx, &domain.OperatingSystem{Name: " "}))

	taken, err := repo.NameTaken(ctx, "android", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.NameTaken(ctx, "Android", android.ID)
	require.NoError(t, err)
	assert.False(t, taken, "own name")

	assert.ErrorIs(t, repo.Save(ctx, &domain.OperatingSystem{Name: "Android"}), domain.ErrDuplicate)

	require.NoError(t, repo.Delete(ctx, android.ID))
	_, err = repo.FindByID(ctx, android.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
