package tse

import "math"

// DefaultAlpha is the polarization sensitivity parameter from Esteban & Ray
// (1994); 1.6 is the value used throughout the study.
const DefaultAlpha = 1.6

// EstebanRay computes the Esteban-Ray polarization index over party vote
// shares and ideology positions:
//
//	ER = K * sum_{i != j} p_i^(1+alpha) * p_j * |y_i - y_j|,  K = 1
//
// Parties with zero share are masked out and the remaining shares are
// renormalized to sum to one. Fewer than two effective parties yield 0.
func EstebanRay(shares, ideologies []float64, alpha float64) float64 {
	var p, y []float64
	var total float64
	for i, s := range shares {
		if s > 0 {
			p = append(p, s)
			y = append(y, ideologies[i])
			total += s
		}
	}
	if len(p) < 2 || total == 0 {
		return 0
	}
	for i := range p {
		p[i] /= total
	}

	var er float64
	for i := range p {
		identification := math.Pow(p[i], 1+alpha)
		for j := range p {
			if i == j {
				continue
			}
			er += identification * p[j] * math.Abs(y[i]-y[j])
		}
	}
	return er
}
