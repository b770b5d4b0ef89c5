package runs

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qfolio/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path: "file::memory:",
		Name: "runs-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// An in-memory database exists per connection; pin the pool to one.
	db.Conn().SetMaxOpenConns(1)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(db.Conn(), log)
	require.NoError(t, repo.Init())
	return repo
}

func testRun() Run {
	return Run{
		Assets:      3,
		Budget:      2,
		Penalty:     10.0,
		Layers:      1,
		GridGamma:   50,
		GridBeta:    50,
		BitString:   "011",
		Cost:        2.4,
		Expectation: 9.7,
		Feasible:    true,
		Parameters: []LayerParams{
			{Gamma: 4.62, Beta: 2.69},
		},
		Distribution: []float64{0.05, 0.1, 0.1, 0.45, 0.1, 0.1, 0.05, 0.05},
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepository(t)

	runUUID, err := repo.Create(testRun())
	require.NoError(t, err)
	require.NotEmpty(t, runUUID)

	got, err := repo.Get(runUUID)
	require.NoError(t, err)

	assert.Equal(t, runUUID, got.UUID)
	assert.Equal(t, 3, got.Assets)
	assert.Equal(t, 2, got.Budget)
	assert.InDelta(t, 10.0, got.Penalty, 1e-12)
	assert.Equal(t, 1, got.Layers)
	assert.Equal(t, "011", got.BitString)
	assert.InDelta(t, 2.4, got.Cost, 1e-12)
	assert.True(t, got.Feasible)
	assert.False(t, got.CreatedAt.IsZero())

	require.Len(t, got.Parameters, 1)
	assert.InDelta(t, 4.62, got.Parameters[0].Gamma, 1e-12)
	assert.InDelta(t, 2.69, got.Parameters[0].Beta, 1e-12)

	require.Len(t, got.Distribution, 8)
	assert.InDelta(t, 0.45, got.Distribution[3], 1e-12)
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get("does-not-exist")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListOmitsDistribution(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Create(testRun())
	require.NoError(t, err)

	result, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, result, 1)

	// List keeps the listing light; the distribution is only returned by Get.
	assert.Nil(t, result[0].Distribution)
	assert.NotEmpty(t, result[0].Parameters)
	assert.Equal(t, "011", result[0].BitString)
}

func TestListLimit(t *testing.T) {
	repo := newTestRepository(t)

	for i := 0; i < 5; i++ {
		_, err := repo.Create(testRun())
		require.NoError(t, err)
	}

	result, err := repo.List(3)
	require.NoError(t, err)
	assert.Len(t, result, 3)
}

func TestPruneOlderThan(t *testing.T) {
	repo := newTestRepository(t)

	runUUID, err := repo.Create(testRun())
	require.NoError(t, err)

	// Everything was created just now, so a cutoff in the past deletes nothing.
	deleted, err := repo.PruneOlderThan(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	// A cutoff in the future deletes it.
	deleted, err = repo.PruneOlderThan(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(runUUID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
