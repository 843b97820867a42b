package monitor

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/helixmc/internal/helix"
)

func recordedSampler(t *testing.T) *helix.SimpleSampler {
	t.Helper()
	mean := []float64{0.1, -0.2, 3.32, 0.0, 0.1, 0.6}
	cov := mat.NewSymDense(helix.NumParams, nil)
	for i := 0; i < helix.NumParams; i++ {
		cov.SetSym(i, i, 0.04)
	}
	s, err := helix.NewMomentsSampler(mean, cov, rand.NewPCG(1, 2))
	require.NoError(t, err)
	require.NoError(t, s.SetBatchSize(64))
	return s
}

func TestDistRecorder_GeneratePlots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dr := NewDistRecorder()
	require.NoError(t, dr.Start(dir))

	s := recordedSampler(t)
	for i := 0; i < 200; i++ {
		p, _, _, err := s.Draw()
		require.NoError(t, err)
		dr.Record("AA", p)
	}
	dr.Stop()

	assert.Equal(t, []string{"AA"}, dr.Contexts())
	require.NoError(t, dr.GeneratePlots())

	// One PNG per parameter.
	for _, label := range []string{"shift", "slide", "rise", "tilt", "roll", "twist"} {
		info, err := os.Stat(filepath.Join(dir, "AA_"+label+".png"))
		require.NoError(t, err, "missing plot for %s", label)
		assert.Positive(t, info.Size())
	}
}

func TestDistRecorder_RecordingGates(t *testing.T) {
	t.Parallel()

	dr := NewDistRecorder()

	// Records before Start and after Stop are dropped.
	dr.Record("AA", helix.StepParams{})
	assert.Empty(t, dr.Contexts())

	require.NoError(t, dr.Start(t.TempDir()))
	dr.Record("AA", helix.StepParams{0, 0, 3.3, 0, 0, 0.6})
	dr.Stop()
	dr.Record("AT", helix.StepParams{})

	assert.Equal(t, []string{"AA"}, dr.Contexts())
}

func TestDistRecorder_GeneratePlotsWithoutStart(t *testing.T) {
	t.Parallel()

	dr := NewDistRecorder()
	assert.Error(t, dr.GeneratePlots())
}

func TestWriteSummaryHTML(t *testing.T) {
	t.Parallel()

	dr := NewDistRecorder()
	require.NoError(t, dr.Start(t.TempDir()))

	s := recordedSampler(t)
	for _, context := range []string{"AA", "AT"} {
		for i := 0; i < 50; i++ {
			p, _, _, err := s.Draw()
			require.NoError(t, err)
			dr.Record(context, p)
		}
	}
	dr.Stop()

	path := filepath.Join(t.TempDir(), "summary.html")
	require.NoError(t, dr.WriteSummaryHTML(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestWriteSummaryHTML_Empty(t *testing.T) {
	t.Parallel()

	dr := NewDistRecorder()
	assert.Error(t, dr.WriteSummaryHTML(filepath.Join(t.TempDir(), "summary.html")))
}
