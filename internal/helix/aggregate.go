package helix

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

var _ Sampler = (*AggregateSampler)(nil)

// AggregateSampler dispatches draws across an ordered registry of named
// member samplers, one per sequence context. Members are addressed by name
// or by insertion-order index; a plain Draw picks a member uniformly at
// random. An AggregateSampler is itself a Sampler, so aggregates nest.
// Not safe for concurrent use.
type AggregateSampler struct {
	names   []string
	members []Sampler
	index   map[string]int
	mode    Mode
	src     rand.Source
	rng     *rand.Rand
}

// NewAggregateSampler returns an empty aggregate. src is used both for
// member selection and for members built by LoadCollection.
func NewAggregateSampler(mode Mode, src rand.Source) *AggregateSampler {
	return &AggregateSampler{
		index: make(map[string]int),
		mode:  mode,
		src:   src,
		rng:   rand.New(src),
	}
}

// Append registers a named member sampler. The aggregate's current mode is
// forced onto the member so the registry stays uniform regardless of call
// order; if the member cannot honor the mode (empirical without a dataset)
// the append fails and the registry is unchanged.
func (a *AggregateSampler) Append(name string, s Sampler) error {
	if _, exists := a.index[name]; exists {
		return fmt.Errorf("sampler %q: %w", name, ErrDuplicateName)
	}
	if s.Mode() != a.mode {
		if err := s.SetMode(a.mode); err != nil {
			return fmt.Errorf("failed to set mode on %q: %w", name, err)
		}
	}
	a.index[name] = len(a.names)
	a.names = append(a.names, name)
	a.members = append(a.members, s)
	return nil
}

// ClearAll removes every registered member.
func (a *AggregateSampler) ClearAll() {
	a.names = nil
	a.members = nil
	a.index = make(map[string]int)
}

// Len returns the number of registered members.
func (a *AggregateSampler) Len() int { return len(a.members) }

// Names returns a copy of the registered names in insertion order.
func (a *AggregateSampler) Names() []string {
	return append([]string(nil), a.names...)
}

// NameToIndex resolves a registered name to its insertion-order index.
func (a *AggregateSampler) NameToIndex(name string) (int, error) {
	i, ok := a.index[name]
	if !ok {
		return 0, fmt.Errorf("sampler %q: %w", name, ErrUnknownName)
	}
	return i, nil
}

// Draw picks a member uniformly at random and returns its draw.
func (a *AggregateSampler) Draw() (StepParams, Vec3, Mat3, error) {
	if len(a.members) == 0 {
		return StepParams{}, Vec3{}, Mat3{}, fmt.Errorf("aggregate sampler is empty")
	}
	return a.members[a.rng.IntN(len(a.members))].Draw()
}

// DrawAt dispatches to the member at the given insertion-order index.
func (a *AggregateSampler) DrawAt(i int) (StepParams, Vec3, Mat3, error) {
	if i < 0 || i >= len(a.members) {
		return StepParams{}, Vec3{}, Mat3{}, fmt.Errorf("sampler index %d out of range [0,%d)", i, len(a.members))
	}
	return a.members[i].Draw()
}

// DrawNamed dispatches to the member registered under name.
func (a *AggregateSampler) DrawNamed(name string) (StepParams, Vec3, Mat3, error) {
	i, err := a.NameToIndex(name)
	if err != nil {
		return StepParams{}, Vec3{}, Mat3{}, err
	}
	return a.members[i].Draw()
}

// Mean returns the equal-weighted average of the member means, or nil when
// the registry is empty.
func (a *AggregateSampler) Mean() []float64 {
	if len(a.members) == 0 {
		return nil
	}
	avg := make([]float64, NumParams)
	for _, m := range a.members {
		floats.Add(avg, m.Mean())
	}
	floats.Scale(1/float64(len(a.members)), avg)
	return avg
}

// Mode reports the aggregate's sampling mode.
func (a *AggregateSampler) Mode() Mode { return a.mode }

// SetMode propagates the mode to every registered member. The first member
// failure aborts propagation and is returned; members visited before the
// failing one keep the new mode, mirroring the synchronous no-recovery
// error policy of the rest of the package.
func (a *AggregateSampler) SetMode(m Mode) error {
	for i, member := range a.members {
		if err := member.SetMode(m); err != nil {
			return fmt.Errorf("failed to set mode on %q: %w", a.names[i], err)
		}
	}
	a.mode = m
	return nil
}
