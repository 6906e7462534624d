package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.LoadByName(ctx, "Knight")
	require.ErrorIs(t, err, ErrNotFound)

	row := &CharacterRow{Name: "Knight", X: 3, Y: 4, Heading: 2, Speed: 64}
	require.NoError(t, s.Create(ctx, row))
	assert.Equal(t, int32(1), row.ID)
	assert.Error(t, s.Create(ctx, &CharacterRow{Name: "Knight"}))

	require.NoError(t, s.SavePosition(ctx, "Knight", 9, 9, 4))
	got, err := s.LoadByName(ctx, "Knight")
	require.NoError(t, err)
	assert.Equal(t, int32(9), got.X)
	assert.Equal(t, int16(4), got.Heading)
	assert.Equal(t, float32(64), got.Speed)

	assert.ErrorIs(t, s.SavePosition(ctx, "Nobody", 0, 0, 0), ErrNotFound)
	assert.Equal(t, []string{"Knight"}, s.Names())
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_characters.sql", entries[0].Name())
}
