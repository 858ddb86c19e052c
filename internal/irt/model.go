// Package irt implements the constrained graded-response estimator: the
// cumulative-logit likelihood with a shared threshold spacing, its
// analytic gradient, MAP fitting over the joint (tau, beta1, delta, eta)
// vector, and the single-person holdout solve.
//
// Model: P(Y_ij >= k | eta_i) = logistic(eta_i + beta1_j*x_i - tau_j - (k-1)*delta)
// for k = 1..K_j-1, with eta ~ N(0,1) under a sum-to-zero constraint.
// Binary items are the K_j = 2 special case (delta never enters).
package irt

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"authscreen/domain/survey"
)

// pFloor guards category probabilities against log(0) and division
// blow-ups near degenerate parameter regions.
const pFloor = 1e-12

// Design is the immutable input to one joint fit: the subsample's
// responses, item category counts, person covariates, and the active-item
// mask after degenerate-item exclusion.
type Design struct {
	K      []int     // categories per item
	X      []float64 // person covariate
	Resp   [][]int   // person-major dense responses, survey.Missing = unobserved
	Active []bool    // items participating in this fit

	// FreeBeta releases the covariate slopes; it is false when the
	// covariate column has zero variance (beta1 would be unidentified).
	FreeBeta bool

	RidgeTau   float64
	RidgeBeta  float64
	RidgeDelta float64
}

// NewDesign builds the fit input for the given participant indices,
// excluding items that are degenerate within that subsample. The returned
// slice lists the excluded item indices.
func NewDesign(m *survey.ResponseMatrix, participantIdx []int, ridgeTau, ridgeBeta, ridgeDelta float64) (*Design, []int) {
	d := &Design{
		K:          make([]int, m.NItems()),
		X:          make([]float64, len(participantIdx)),
		Resp:       make([][]int, len(participantIdx)),
		Active:     make([]bool, m.NItems()),
		RidgeTau:   ridgeTau,
		RidgeBeta:  ridgeBeta,
		RidgeDelta: ridgeDelta,
	}
	for j, item := range m.Items {
		d.K[j] = item.Categories
		d.Active[j] = true
	}
	excluded := m.DegenerateItems(participantIdx)
	for _, j := range excluded {
		d.Active[j] = false
	}

	var xFirst float64
	for r, i := range participantIdx {
		d.X[r] = m.Participants[i].Covariate
		d.Resp[r] = m.Row(i)
		if r == 0 {
			xFirst = d.X[r]
		} else if d.X[r] != xFirst {
			d.FreeBeta = true
		}
	}
	return d, excluded
}

// NPersons returns the subsample size
func (d *Design) NPersons() int { return len(d.Resp) }

// NItems returns the item count (active and inactive)
func (d *Design) NItems() int { return len(d.K) }

// deltaInformed reports whether any active item has more than two
// categories; binary-only designs carry no information about delta.
func (d *Design) deltaInformed() bool {
	for j, k := range d.K {
		if d.Active[j] && k > 2 {
			return true
		}
	}
	return false
}

// sigmoid is the numerically stable logistic function
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// categoryTerms evaluates one observed response: the log category
// probability log P(Y=y) and the shared gradient factors
// g = dlogP/d(linear predictor) and gd = dlogP/d(delta).
func categoryTerms(eta, betaX, tau, delta float64, y, k int) (logp, g, gd float64) {
	// Cumulative terms S_y = P(Y>=y), with S_0 = 1 and S_K = 0.
	sy, a := 1.0, 0.0
	if y >= 1 {
		sy = sigmoid(eta + betaX - tau - float64(y-1)*delta)
		a = sy * (1 - sy)
	}
	sy1, b := 0.0, 0.0
	if y+1 <= k-1 {
		sy1 = sigmoid(eta + betaX - tau - float64(y)*delta)
		b = sy1 * (1 - sy1)
	}
	p := sy - sy1
	if p < pFloor {
		p = pFloor
	}
	logp = math.Log(p)
	g = (a - b) / p
	gd = (-float64(y-1)*a + float64(y)*b) / p
	return logp, g, gd
}

// negLogPosterior computes the penalized negative log-posterior over the
// full theta layout [tau_0..tau_{J-1}, beta_0..beta_{J-1}, delta,
// eta_0..eta_{N-1}] and, when grad is non-nil, writes its gradient.
// The likelihood sums only observed responses on active items; the MAP
// penalty is a standard-normal prior on eta plus ridge terms on the item
// parameters.
func (d *Design) negLogPosterior(theta, grad []float64) float64 {
	j2 := 2 * d.NItems()
	tau := theta[:d.NItems()]
	beta := theta[d.NItems():j2]
	delta := theta[j2]
	eta := theta[j2+1:]

	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}

	lp := 0.0
	for i, row := range d.Resp {
		for j, y := range row {
			if y == survey.Missing || !d.Active[j] {
				continue
			}
			logp, g, gd := categoryTerms(eta[i], beta[j]*d.X[i], tau[j], delta, y, d.K[j])
			lp += logp
			if grad != nil {
				grad[j2+1+i] += g
				grad[j] -= g
				grad[d.NItems()+j] += d.X[i] * g
				grad[j2] += gd
			}
		}
		lp += distuv.UnitNormal.LogProb(eta[i])
		if grad != nil {
			grad[j2+1+i] -= eta[i]
		}
	}

	for j := 0; j < d.NItems(); j++ {
		if !d.Active[j] {
			continue
		}
		lp -= 0.5 * d.RidgeTau * tau[j] * tau[j]
		lp -= 0.5 * d.RidgeBeta * beta[j] * beta[j]
		if grad != nil {
			grad[j] -= d.RidgeTau * tau[j]
			grad[d.NItems()+j] -= d.RidgeBeta * beta[j]
		}
	}
	lp -= 0.5 * d.RidgeDelta * delta * delta
	if grad != nil {
		grad[j2] -= d.RidgeDelta * delta
	}

	// Flip to a minimization objective.
	if grad != nil {
		for i := range grad {
			grad[i] = -grad[i]
		}
	}
	return -lp
}
