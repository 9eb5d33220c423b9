package reference

import "fmt"

// JointPosture returns the Jacobian [0 | I] of a posture task over the
// actuated joints of a system with nv velocity variables, the first
// floatingBase of which belong to an unactuated base.
func JointPosture(nv, floatingBase int) ([][]float64, error) {
	if floatingBase < 0 || floatingBase >= nv {
		return nil, fmt.Errorf("posture: floating base %d must be in [0, %d)", floatingBase, nv)
	}
	rows := nv - floatingBase
	j := make([][]float64, rows)
	for i := range j {
		j[i] = make([]float64, nv)
		j[i][floatingBase+i] = 1
	}
	return j, nil
}
