package reference

import (
	"fmt"

	"github.com/roach88/hqp/internal/ir"
)

// PDTask is a tracking task at the acceleration level.
type PDTask struct {
	Name     string
	Jacobian [][]float64

	// PositionError is e, the current minus the desired task position.
	PositionError []float64

	// VelocityError is ė. Nil means zero.
	VelocityError []float64

	// Drift is the x-independent task acceleration. Nil means zero.
	Drift []float64

	// FeedForward is the reference acceleration a_ref. Nil means zero.
	FeedForward []float64

	Gains Gains
	Mask  Mask

	// Adaptive, when set, replaces Gains.Kp by the adaptive gain of the
	// full (unmasked) position error.
	Adaptive *AdaptiveParams

	// ExpDecay replaces Gains.Kv by ExponentialDecay of the resolved kp.
	// With Adaptive set, kv follows the adapted kp, not Gains.Kp.
	ExpDecay bool

	// Weight is an optional m×m weight over the unmasked rows.
	Weight [][]float64
}

// ResolvedGains applies the adaptive and exponential-decay rules.
func (p PDTask) ResolvedGains() Gains {
	g := p.Gains
	if p.Adaptive != nil {
		g.Kp = p.Adaptive.Gain(p.PositionError)
	}
	if p.ExpDecay {
		g.Kv = ExponentialDecay(g.Kp)
	}
	return g
}

// Desired returns a_des = −kp·e − kv·ė + a_ref over all rows.
func (p PDTask) Desired() []float64 {
	g := p.ResolvedGains()
	out := make([]float64, len(p.PositionError))
	for i, e := range p.PositionError {
		out[i] = -g.Kp*e - g.Kv*at(p.VelocityError, i) + at(p.FeedForward, i)
	}
	return out
}

// Task builds the equality task J·x = a_des − drift over the masked rows.
func (p PDTask) Task() (ir.Task, error) {
	m := len(p.Jacobian)
	if err := p.check(m); err != nil {
		return ir.Task{}, fmt.Errorf("pd task %q: %w", p.Name, err)
	}

	ref := p.Desired()
	for i := range ref {
		ref[i] -= at(p.Drift, i)
	}
	return ir.Task{
		Name:      p.Name,
		Kind:      ir.KindEquality,
		Jacobian:  p.Mask.Rows(p.Jacobian),
		Reference: p.Mask.Vector(ref),
		Weight:    p.Mask.Square(p.Weight),
	}, nil
}

func (p PDTask) check(m int) error {
	if m == 0 {
		return fmt.Errorf("jacobian has no rows")
	}
	for _, v := range []struct {
		name     string
		data     []float64
		optional bool
	}{
		{"error", p.PositionError, false},
		{"velocity_error", p.VelocityError, true},
		{"drift", p.Drift, true},
		{"feedforward", p.FeedForward, true},
	} {
		if v.data == nil && v.optional {
			continue
		}
		if len(v.data) != m {
			return fmt.Errorf("%s has length %d, want %d", v.name, len(v.data), m)
		}
	}
	if p.Weight != nil && len(p.Weight) != m {
		return fmt.Errorf("weight has %d rows, want %d", len(p.Weight), m)
	}
	return p.Mask.Check(m)
}

func at(v []float64, i int) float64 {
	if v == nil {
		return 0
	}
	return v[i]
}
