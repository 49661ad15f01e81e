package rules

import (
	"context"
	"testing"

	"github.com/apiguard/apiguard/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestGormRepository(t *testing.T) *GormRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	repo, err := NewGormRepository(db)
	require.NoError(t, err)
	return repo
}

func TestGormRepository_CreateAndFetch(t *testing.T) {
	repo := newTestGormRepository(t)
	ctx := context.Background()

	rule := ratelimit.Rule{
		UserScope:    "alice",
		IPScope:      "1.2.3.4",
		MaxRequests:  10,
		Kind:         ratelimit.KindBlock,
		BlockSeconds: 30,
	}
	require.NoError(t, repo.Create(ctx, rule))

	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rule, got[0])
}

func TestGormRepository_RejectsInvalidRule(t *testing.T) {
	repo := newTestGormRepository(t)

	err := repo.Create(context.Background(), ratelimit.Rule{UserScope: "alice"})
	assert.Error(t, err)
}

func TestGormRepository_FetchAllOrderedByInsertion(t *testing.T) {
	repo := newTestGormRepository(t)
	ctx := context.Background()

	for _, scope := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, ratelimit.Rule{
			UserScope:   scope,
			IPScope:     ratelimit.ScopeAll,
			MaxRequests: 1,
			Kind:        ratelimit.KindBlock,
		}))
	}

	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].UserScope)
	assert.Equal(t, "second", got[1].UserScope)
	assert.Equal(t, "third", got[2].UserScope)
}

func TestGormRepository_Replace(t *testing.T) {
	repo := newTestGormRepository(t)
	ctx := context.Background()

	require.NoError(t, SeedDefaults(ctx, repo, ""))

	next := []ratelimit.Rule{
		{UserScope: "only", IPScope: ratelimit.ScopeAll, MaxRequests: 7, Kind: ratelimit.KindBlock},
	}
	require.NoError(t, repo.Replace(ctx, next))

	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].UserScope)
}

func TestGormRepository_SeedDefaults(t *testing.T) {
	repo := newTestGormRepository(t)
	ctx := context.Background()

	require.NoError(t, SeedDefaults(ctx, repo, ""))
	require.NoError(t, SeedDefaults(ctx, repo, ""))

	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

// The engine consumes a GormRepository directly as its rule source.
func TestGormRepository_DrivesEngine(t *testing.T) {
	repo := newTestGormRepository(t)
	ctx := context.Background()
	require.NoError(t, SeedDefaults(ctx, repo, ""))

	engine := ratelimit.NewEngine(repo, ratelimit.NewMemoryStore())
	defer engine.Close()

	// Anonymous quota is 5, Block kind.
	for i := 0; i < 5; i++ {
		d := engine.Decide(ctx, "", "1.2.3.4")
		require.True(t, d.Allowed, "request %d", i+1)
	}
	d := engine.Decide(ctx, "", "1.2.3.4")
	assert.False(t, d.Allowed)

	// The test identity gets the wider quota.
	for i := 0; i < 20; i++ {
		d := engine.Decide(ctx, DefaultTestIdentity, "1.2.3.4")
		require.True(t, d.Allowed)
	}
}
