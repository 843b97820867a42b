package helix

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCollection(t *testing.T, byName map[string][]StepParams) string {
	t.Helper()
	raw := make(map[string][][]float64, len(byName))
	for name, rows := range byName {
		out := make([][]float64, len(rows))
		for i, r := range rows {
			out[i] = append([]float64(nil), r[:]...)
		}
		raw[name] = out
	}
	blob, err := json.Marshal(raw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "steps.json")
	require.NoError(t, os.WriteFile(path, blob, 0644))
	return path
}

func TestLoadCollection(t *testing.T) {
	t.Parallel()

	path := writeCollection(t, map[string][]StepParams{
		"AT": fullRankRows(StepParams{-1, 0, 3.3, 0, 0.1, 0.6}),
		"AA": fullRankRows(StepParams{1, 0, 3.3, 0, 0.1, 0.6}),
	})

	a, err := NewAggregateFromJSON(path, ModeEmpirical, rand.NewPCG(1, 2))
	require.NoError(t, err)

	// Contexts register in sorted-name order regardless of JSON order.
	assert.Equal(t, []string{"AA", "AT"}, a.Names())

	p, _, _, err := a.DrawNamed("AA")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p[Shift], 0.6)
}

func TestLoadCollection_GaussianMode(t *testing.T) {
	t.Parallel()

	path := writeCollection(t, map[string][]StepParams{
		"AA": fullRankRows(StepParams{0, 0, 3.32, 0, 0.1, 0.6}),
	})

	a, err := NewAggregateFromJSON(path, ModeGaussian, rand.NewPCG(3, 4))
	require.NoError(t, err)
	_, _, _, err = a.Draw()
	assert.NoError(t, err)
}

func TestLoadCollection_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		a := NewAggregateSampler(ModeEmpirical, rand.NewPCG(1, 1))
		assert.Error(t, a.LoadCollection(filepath.Join(t.TempDir(), "absent.json")))
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "steps.npz")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
		a := NewAggregateSampler(ModeEmpirical, rand.NewPCG(1, 1))
		assert.Error(t, a.LoadCollection(path))
	})

	t.Run("bad row length", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "steps.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"AA": [[1, 2, 3]]}`), 0644))
		a := NewAggregateSampler(ModeEmpirical, rand.NewPCG(1, 1))
		assert.Error(t, a.LoadCollection(path))
	})

	t.Run("not json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "steps.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))
		a := NewAggregateSampler(ModeEmpirical, rand.NewPCG(1, 1))
		assert.Error(t, a.LoadCollection(path))
	})

	t.Run("duplicate across loads", func(t *testing.T) {
		path := writeCollection(t, map[string][]StepParams{
			"AA": fullRankRows(StepParams{0, 0, 3.3, 0, 0.1, 0.6}),
		})
		a := NewAggregateSampler(ModeEmpirical, rand.NewPCG(1, 1))
		require.NoError(t, a.LoadCollection(path))
		err := a.LoadCollection(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateName))
	})
}

func TestReadCollection(t *testing.T) {
	t.Parallel()

	rows := fullRankRows(StepParams{0.5, 0, 3.3, 0, 0.1, 0.6})
	path := writeCollection(t, map[string][]StepParams{"GC": rows})

	byName, err := ReadCollection(path)
	require.NoError(t, err)
	require.Contains(t, byName, "GC")
	assert.Equal(t, rows, byName["GC"])
}
