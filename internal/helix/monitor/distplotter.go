// Package monitor collects draws from step samplers and renders
// distribution diagnostics: per-parameter histograms (PNG, gonum/plot) and
// an HTML summary page (go-echarts).
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/helixmc/internal/helix"
)

// paramLabels index into a StepParams vector.
var paramLabels = [helix.NumParams]string{"shift", "slide", "rise", "tilt", "roll", "twist"}

// histogramBins is the bin count for the per-parameter histograms.
const histogramBins = 40

// DistRecorder accumulates draws per context for later plotting.
// Start/Record/Stop may be called from the sampling loop; rendering happens
// after the run.
type DistRecorder struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string

	// samples holds per-context draws in arrival order.
	samples map[string][]helix.StepParams
	order   []string
}

// NewDistRecorder creates an idle recorder.
func NewDistRecorder() *DistRecorder {
	return &DistRecorder{samples: make(map[string][]helix.StepParams)}
}

// Start resets the recorder and enables recording into outputDir.
func (dr *DistRecorder) Start(outputDir string) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	dr.outputDir = outputDir
	dr.enabled = true
	dr.samples = make(map[string][]helix.StepParams)
	dr.order = nil
	return nil
}

// Stop disables recording. Call GeneratePlots or WriteSummaryHTML to
// produce output files.
func (dr *DistRecorder) Stop() {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	dr.enabled = false
}

// Record captures one draw under the given context name.
func (dr *DistRecorder) Record(context string, p helix.StepParams) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if !dr.enabled {
		return
	}
	if _, seen := dr.samples[context]; !seen {
		dr.order = append(dr.order, context)
	}
	dr.samples[context] = append(dr.samples[context], p)
}

// Contexts returns the recorded context names in first-seen order.
func (dr *DistRecorder) Contexts() []string {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return append([]string(nil), dr.order...)
}

// values extracts one parameter column for a context. Caller holds dr.mu.
func (dr *DistRecorder) values(context string, param int) plotter.Values {
	draws := dr.samples[context]
	vs := make(plotter.Values, len(draws))
	for i, d := range draws {
		vs[i] = d[param]
	}
	return vs
}

// GeneratePlots writes one histogram PNG per context per parameter into the
// output directory, named <context>_<param>.png. Contexts with fewer than
// two draws are skipped.
func (dr *DistRecorder) GeneratePlots() error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if dr.outputDir == "" {
		return fmt.Errorf("recorder was never started")
	}

	for _, context := range dr.order {
		if len(dr.samples[context]) < 2 {
			continue
		}
		for j := 0; j < helix.NumParams; j++ {
			vs := dr.values(context, j)
			mean, std := stat.MeanStdDev(vs, nil)

			p := plot.New()
			p.Title.Text = fmt.Sprintf("%s %s (mean=%.4f sd=%.4f n=%d)",
				context, paramLabels[j], mean, std, len(vs))
			p.X.Label.Text = paramLabels[j]
			p.Y.Label.Text = "density"

			h, err := plotter.NewHist(vs, histogramBins)
			if err != nil {
				return fmt.Errorf("failed to build histogram for %s/%s: %w", context, paramLabels[j], err)
			}
			h.Normalize(1)
			p.Add(h)

			file := filepath.Join(dr.outputDir, fmt.Sprintf("%s_%s.png", context, paramLabels[j]))
			if err := p.Save(6*vg.Inch, 4*vg.Inch, file); err != nil {
				return fmt.Errorf("failed to save %s: %w", file, err)
			}
		}
	}
	return nil
}
