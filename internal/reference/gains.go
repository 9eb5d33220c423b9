package reference

import "math"

// Gains are the proportional and derivative gains of a PD law.
type Gains struct {
	Kp float64 `json:"kp"`
	Kv float64 `json:"kv"`
}

// AdaptiveParams configure AdaptiveGain.
type AdaptiveParams struct {
	// KMin is the gain as the error approaches zero.
	KMin float64 `json:"kmin"`

	// KMax is the gain far from the target.
	KMax float64 `json:"kmax"`

	// Beta sets how fast the gain moves from KMax to KMin.
	Beta float64 `json:"beta"`
}

// ExponentialDecay returns the derivative gain that critically damps kp.
func ExponentialDecay(kp float64) float64 {
	return 2 * math.Sqrt(kp)
}

// AdaptiveGain returns a proportional gain that is high far from the target
// and low close to it:
//
//	kp = (kmin − kmax)·exp(−β·‖e‖) + kmax
func AdaptiveGain(errNorm, kmin, kmax, beta float64) float64 {
	return (kmin-kmax)*math.Exp(-beta*errNorm) + kmax
}

// Gain returns the adaptive gain for an error vector.
func (a AdaptiveParams) Gain(e []float64) float64 {
	return AdaptiveGain(norm(e), a.KMin, a.KMax, a.Beta)
}

func norm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
