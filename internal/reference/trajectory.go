package reference

// Trajectory yields the reference position, velocity and acceleration at
// time t.
type Trajectory interface {
	At(t float64) (pos, vel, acc []float64)
}

// ConstantTrajectory holds a fixed reference.
type ConstantTrajectory struct {
	Position     []float64
	Velocity     []float64
	Acceleration []float64
}

// NewConstantTrajectory holds pos with zero velocity and acceleration.
func NewConstantTrajectory(pos []float64) ConstantTrajectory {
	return ConstantTrajectory{
		Position:     append([]float64(nil), pos...),
		Velocity:     make([]float64, len(pos)),
		Acceleration: make([]float64, len(pos)),
	}
}

// At returns copies, so callers may modify the result.
func (c ConstantTrajectory) At(float64) (pos, vel, acc []float64) {
	return clone(c.Position), clone(c.Velocity), clone(c.Acceleration)
}

// Track fills the errors and feed-forward of p from a trajectory sample and
// the current task position and velocity.
func Track(p PDTask, traj Trajectory, t float64, pos, vel []float64) PDTask {
	refPos, refVel, refAcc := traj.At(t)
	p.PositionError = diff(pos, refPos)
	p.VelocityError = diff(vel, refVel)
	p.FeedForward = refAcc
	return p
}

func diff(a, b []float64) []float64 {
	if a == nil {
		return nil
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i]
		if i < len(b) {
			out[i] -= b[i]
		}
	}
	return out
}

func clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}
