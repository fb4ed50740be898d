package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/otakulog/pkg/data"
)

func TestResolveCreatesOneRowAcrossCaseVariants(t *testing.T) {
	store := setupTestStore(t)
	resolver := NewEntityResolver(store)
	ctx := context.Background()

	names := []string{"Eiichiro Oda", "EIICHIRO ODA", "eiichiro oda", " Eiichiro Oda "}
	resolved, err := resolver.Resolve(ctx, data.EntityAuthor, names)
	require.NoError(t, err)

	require.Len(t, resolved, 1)
	id, ok := resolved["eiichiro oda"]
	require.True(t, ok)
	assert.NotEmpty(t, id)

	all, err := store.ListEntities(ctx, data.EntityAuthor)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Eiichiro Oda", all[0].Name, "first-seen casing is kept")
}

func TestResolveReusesExistingEntities(t *testing.T) {
	store := setupTestStore(t)
	resolver := NewEntityResolver(store)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, data.EntityGenre, []string{"Action"})
	require.NoError(t, err)

	second, err := resolver.Resolve(ctx, data.EntityGenre, []string{"action", "Adventure"})
	require.NoError(t, err)

	assert.Equal(t, first["action"], second["action"])
	assert.NotEmpty(t, second["adventure"])

	all, err := store.ListEntities(ctx, data.EntityGenre)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestResolveSkipsBlankNames(t *testing.T) {
	store := setupTestStore(t)
	resolver := NewEntityResolver(store)

	resolved, err := resolver.Resolve(context.Background(), data.EntityTheme, []string{"", "   ", "Isekai"})
	require.NoError(t, err)

	assert.Len(t, resolved, 1)
	assert.Contains(t, resolved, "isekai")
}

func TestResolveKindsAreIndependent(t *testing.T) {
	store := setupTestStore(t)
	resolver := NewEntityResolver(store)
	ctx := context.Background()

	asGenre, err := resolver.Resolve(ctx, data.EntityGenre, []string{"Romance"})
	require.NoError(t, err)
	asTheme, err := resolver.Resolve(ctx, data.EntityTheme, []string{"Romance"})
	require.NoError(t, err)

	assert.NotEqual(t, asGenre["romance"], asTheme["romance"], "same name under different kinds is two rows")
}
