package helix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NumParams is the number of degrees of freedom in a base-pair step.
const NumParams = 6

// Indices into a StepParams vector. Distances (Shift, Slide, Rise) are in
// Angstroms; angles (Tilt, Roll, Twist) are in radians.
const (
	Shift = iota
	Slide
	Rise
	Tilt
	Roll
	Twist
)

// StepParams is one base-pair step parameter set:
// [shift, slide, rise, tilt, roll, twist].
type StepParams [NumParams]float64

// Vec3 is a 3D position (base-pair center) in Angstroms.
type Vec3 [3]float64

// Mat3 is a row-major 3x3 rotation matrix (base-pair frame).
type Mat3 [3][3]float64

// Dataset is an immutable collection of observed step parameter rows for
// one sequence context, with the corresponding geometry and the fitted
// Gaussian moments computed once at construction.
type Dataset struct {
	rows    []StepParams
	origins []Vec3
	frames  []Mat3
	mean    []float64
	cov     *mat.SymDense
}

// NewDataset copies rows into a Dataset, precomputes the geometry for every
// row and fits the mean vector and sample covariance matrix. At least two
// rows are required for the covariance to be defined.
func NewDataset(rows []StepParams) (*Dataset, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset needs at least 2 rows, got %d", len(rows))
	}

	d := &Dataset{rows: append([]StepParams(nil), rows...)}
	d.origins, d.frames = ParamsToCoords(d.rows)

	m := mat.NewDense(len(d.rows), NumParams, nil)
	for i, r := range d.rows {
		m.SetRow(i, r[:])
	}

	d.mean = make([]float64, NumParams)
	for j := 0; j < NumParams; j++ {
		d.mean[j] = stat.Mean(mat.Col(nil, j, m), nil)
	}
	d.cov = mat.NewSymDense(NumParams, nil)
	stat.CovarianceMatrix(d.cov, m, nil)

	return d, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Row returns the i-th step parameter set.
func (d *Dataset) Row(i int) StepParams { return d.rows[i] }

// Coords returns the precomputed origin and frame for the i-th row.
func (d *Dataset) Coords(i int) (Vec3, Mat3) { return d.origins[i], d.frames[i] }

// Mean returns a copy of the fitted mean vector.
func (d *Dataset) Mean() []float64 {
	return append([]float64(nil), d.mean...)
}

// Covariance returns a copy of the fitted covariance matrix.
func (d *Dataset) Covariance() *mat.SymDense {
	c := mat.NewSymDense(NumParams, nil)
	c.CopySym(d.cov)
	return c
}
