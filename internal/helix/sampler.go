package helix

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Mode selects how a sampler draws step parameters.
type Mode int

const (
	// ModeGaussian draws from the fitted multivariate normal.
	ModeGaussian Mode = iota
	// ModeEmpirical uniformly resamples the observed dataset rows.
	ModeEmpirical
)

func (m Mode) String() string {
	switch m {
	case ModeGaussian:
		return "gaussian"
	case ModeEmpirical:
		return "empirical"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "gaussian" or "empirical".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "gaussian":
		return ModeGaussian, nil
	case "empirical":
		return ModeEmpirical, nil
	}
	return 0, fmt.Errorf("unknown sampling mode %q", s)
}

var (
	// ErrNoDataset is returned when empirical mode is requested on a
	// sampler constructed without an empirical dataset.
	ErrNoDataset = errors.New("no empirical dataset available")
	// ErrDuplicateName is returned by AggregateSampler.Append when the
	// name is already registered.
	ErrDuplicateName = errors.New("duplicate sampler name")
	// ErrUnknownName is returned when a name is not in the registry.
	ErrUnknownName = errors.New("unknown sampler name")
)

// DefaultBatchSize is the number of rows pre-generated per Gaussian batch.
// Large enough that the multivariate draw and the geometry conversion are
// amortised over many calls.
const DefaultBatchSize = 20000

// Sampler is the step generator contract. SimpleSampler and
// AggregateSampler implement it, so aggregates can nest.
type Sampler interface {
	// Draw produces one step parameter set and its derived geometry.
	Draw() (StepParams, Vec3, Mat3, error)
	// Mean reports the mean of the underlying distribution.
	Mean() []float64
	// Mode reports the current sampling mode.
	Mode() Mode
	// SetMode switches the sampling mode.
	SetMode(Mode) error
}

var _ Sampler = (*SimpleSampler)(nil)

// SimpleSampler draws step parameters for a single sequence context, either
// by resampling its dataset or from the fitted Gaussian. Gaussian draws are
// served from a pre-generated batch; the batch is regenerated in full when
// the cursor runs off its end. Not safe for concurrent use.
type SimpleSampler struct {
	data *Dataset // nil for moments-only samplers
	mean []float64
	cov  *mat.SymDense

	mode   Mode
	src    rand.Source
	rng    *rand.Rand
	normal *distmv.Normal

	batchSize int
	cursor    int
	cache     []StepParams
	origins   []Vec3
	frames    []Mat3
}

// NewSimpleSampler builds a sampler backed by an empirical dataset. The
// Gaussian moments are taken from the dataset fit. src must be non-nil and
// is the only source of randomness the sampler uses.
func NewSimpleSampler(data *Dataset, mode Mode, src rand.Source) (*SimpleSampler, error) {
	if data == nil {
		return nil, errors.New("dataset must not be nil")
	}
	s := &SimpleSampler{
		data:      data,
		mean:      data.Mean(),
		cov:       data.Covariance(),
		src:       src,
		rng:       rand.New(src),
		batchSize: DefaultBatchSize,
	}
	if err := s.SetMode(mode); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMomentsSampler builds a Gaussian-only sampler from an explicit mean
// vector and covariance matrix, with no backing dataset. Switching such a
// sampler to empirical mode fails with ErrNoDataset.
func NewMomentsSampler(mean []float64, cov *mat.SymDense, src rand.Source) (*SimpleSampler, error) {
	if len(mean) != NumParams {
		return nil, fmt.Errorf("mean must have length %d, got %d", NumParams, len(mean))
	}
	if cov == nil || cov.SymmetricDim() != NumParams {
		return nil, fmt.Errorf("covariance must be %dx%d", NumParams, NumParams)
	}
	covCopy := mat.NewSymDense(NumParams, nil)
	covCopy.CopySym(cov)
	s := &SimpleSampler{
		mean:      append([]float64(nil), mean...),
		cov:       covCopy,
		src:       src,
		rng:       rand.New(src),
		batchSize: DefaultBatchSize,
	}
	if err := s.SetMode(ModeGaussian); err != nil {
		return nil, err
	}
	return s, nil
}

// Mode reports the current sampling mode.
func (s *SimpleSampler) Mode() Mode { return s.mode }

// SetMode switches the sampling mode. Switching to Gaussian mode discards
// any cached batch, so the next Draw regenerates; the multivariate normal
// is factorised on first activation and a non-positive-definite covariance
// fails here. Switching to empirical mode fails with ErrNoDataset when the
// sampler has no dataset; the mode is left unchanged on failure.
func (s *SimpleSampler) SetMode(m Mode) error {
	switch m {
	case ModeGaussian:
		if s.normal == nil {
			n, ok := distmv.NewNormal(s.mean, s.cov, s.src)
			if !ok {
				return errors.New("failed to build multivariate normal: covariance matrix is not positive definite")
			}
			s.normal = n
		}
		s.cache = nil
		s.cursor = s.batchSize
	case ModeEmpirical:
		if s.data == nil {
			return fmt.Errorf("cannot switch to empirical mode: %w", ErrNoDataset)
		}
	default:
		return fmt.Errorf("unknown sampling mode %d", int(m))
	}
	s.mode = m
	return nil
}

// SetBatchSize changes the Gaussian prefetch batch size and discards the
// current batch. Mainly useful to bound memory in small runs and tests.
func (s *SimpleSampler) SetBatchSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", n)
	}
	s.batchSize = n
	s.cache = nil
	s.cursor = n
	return nil
}

// Mean returns a copy of the distribution mean.
func (s *SimpleSampler) Mean() []float64 {
	return append([]float64(nil), s.mean...)
}

// Covariance returns a copy of the distribution covariance.
func (s *SimpleSampler) Covariance() *mat.SymDense {
	c := mat.NewSymDense(NumParams, nil)
	c.CopySym(s.cov)
	return c
}

// Draw produces one step parameter set with its origin and frame. In
// Gaussian mode the row comes from the prefetched batch, regenerating the
// whole batch when the cursor reaches its end; in empirical mode a dataset
// row is picked uniformly and its precomputed geometry returned.
func (s *SimpleSampler) Draw() (StepParams, Vec3, Mat3, error) {
	if s.mode == ModeEmpirical {
		i := s.rng.IntN(s.data.Len())
		o, r := s.data.Coords(i)
		return s.data.Row(i), o, r, nil
	}

	s.cursor++
	if s.cursor >= s.batchSize {
		s.refill()
	}
	return s.cache[s.cursor], s.origins[s.cursor], s.frames[s.cursor], nil
}

// refill replaces the cached batch with freshly drawn rows and their
// geometry, and resets the cursor.
func (s *SimpleSampler) refill() {
	if len(s.cache) != s.batchSize {
		s.cache = make([]StepParams, s.batchSize)
	}
	buf := make([]float64, NumParams)
	for i := range s.cache {
		s.normal.Rand(buf)
		copy(s.cache[i][:], buf)
	}
	s.origins, s.frames = ParamsToCoords(s.cache)
	s.cursor = 0
}
