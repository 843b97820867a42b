package stepdb

import (
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/helixmc/internal/helix"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "steps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init())
	return s
}

// datasetRows spreads rows around a base so the fitted covariance is full
// rank (one +/-0.5 perturbation per parameter).
func datasetRows(base helix.StepParams) []helix.StepParams {
	rows := make([]helix.StepParams, 0, 2*helix.NumParams)
	for j := 0; j < helix.NumParams; j++ {
		up, down := base, base
		up[j] += 0.5
		down[j] -= 0.5
		rows = append(rows, up, down)
	}
	return rows
}

func TestSaveAndLoadContext(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	rows := datasetRows(helix.StepParams{0.1, -0.2, 3.32, 0, 0.1, 0.6})
	require.NoError(t, s.SaveContext("AA", rows))

	got, err := s.LoadContext("AA")
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	t.Run("duplicate context rejected", func(t *testing.T) {
		assert.Error(t, s.SaveContext("AA", rows))
	})

	t.Run("missing context", func(t *testing.T) {
		_, err := s.LoadContext("GG")
		assert.Error(t, err)
	})
}

func TestListContexts_InsertionOrder(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	rows := datasetRows(helix.StepParams{0, 0, 3.3, 0, 0.1, 0.6})
	require.NoError(t, s.SaveContext("GC", rows))
	require.NoError(t, s.SaveContext("AA", rows))
	require.NoError(t, s.SaveContext("AT", rows))

	names, err := s.ListContexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"GC", "AA", "AT"}, names)
}

func TestSaveCollection(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	byName := map[string][]helix.StepParams{
		"AA": datasetRows(helix.StepParams{1, 0, 3.3, 0, 0.1, 0.6}),
		"AT": datasetRows(helix.StepParams{-1, 0, 3.3, 0, 0.1, 0.6}),
	}
	require.NoError(t, s.SaveCollection([]string{"AA", "AT"}, byName))

	names, err := s.ListContexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"AA", "AT"}, names)

	t.Run("missing name in map", func(t *testing.T) {
		assert.Error(t, s.SaveCollection([]string{"GG"}, byName))
	})
}

func TestLoadAggregate(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	aaRows := datasetRows(helix.StepParams{2, 0, 3.3, 0, 0.1, 0.6})
	require.NoError(t, s.SaveContext("AA", aaRows))
	require.NoError(t, s.SaveContext("AT", datasetRows(helix.StepParams{-2, 0, 3.3, 0, 0.1, 0.6})))

	agg, err := s.LoadAggregate(helix.ModeEmpirical, rand.NewPCG(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"AA", "AT"}, agg.Names())

	inAA := make(map[helix.StepParams]bool, len(aaRows))
	for _, r := range aaRows {
		inAA[r] = true
	}
	for i := 0; i < 20; i++ {
		p, _, _, err := agg.DrawNamed("AA")
		require.NoError(t, err)
		assert.True(t, inAA[p])
	}
}

func TestRunRecorder(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	rec, err := s.StartRun("test-fixture", helix.ModeGaussian)
	require.NoError(t, err)
	require.NotEmpty(t, rec.RunID())

	// More draws than one flush batch, so at least one mid-run flush runs.
	total := flushEvery + 10
	for i := 0; i < total; i++ {
		require.NoError(t, rec.Record(helix.StepParams{0, 0, 3.32, 0, 0.1, 0.6}))
	}
	require.NoError(t, rec.Complete())

	run, err := s.GetRun(rec.RunID())
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, total, run.DrawCount)

	n, err := s.CountRunDraws(rec.RunID())
	require.NoError(t, err)
	assert.Equal(t, total, n)
}

func TestRunRecorder_Fail(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	rec, err := s.StartRun("test-fixture", helix.ModeEmpirical)
	require.NoError(t, err)
	require.NoError(t, rec.Record(helix.StepParams{1, 0, 3.3, 0, 0, 0.6}))
	require.NoError(t, rec.Fail("covariance rejected"))

	run, err := s.GetRun(rec.RunID())
	require.NoError(t, err)
	assert.Equal(t, "failed", run.Status)

	// Unflushed draws are discarded on failure.
	n, err := s.CountRunDraws(rec.RunID())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "migrated.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	migrationsDir := filepath.Join("..", "..", "..", "migrations")
	require.NoError(t, s.MigrateUp(migrationsDir))

	version, dirty, err := s.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Migrated schema accepts the same writes as Init's.
	require.NoError(t, s.SaveContext("AA", datasetRows(helix.StepParams{0, 0, 3.3, 0, 0.1, 0.6})))

	require.NoError(t, s.MigrateDown(migrationsDir))
	version, _, err = s.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}
