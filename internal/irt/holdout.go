package irt

import (
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"authscreen/domain/core"
	"authscreen/domain/screening"
	"authscreen/domain/survey"
)

// AbilitySolution is the holdout scorer's output: the single-person MAP
// ability under fixed item parameters and the corresponding log-posterior.
// AvgLogPost divides by the number of items actually scored, which is the
// only score comparable across participants with different response
// counts.
type AbilitySolution struct {
	Eta          float64 `json:"eta"`
	LogPosterior float64 `json:"log_posterior"`
	AvgLogPost   float64 `json:"avg_logpost"`
	NScored      int     `json:"n_scored"`
}

// personLogPosterior evaluates one person's log-posterior and its
// derivative in eta under fixed item parameters, summed over observed
// responses on active items, plus the standard-normal prior.
func personLogPosterior(params screening.ItemParams, k []int, active []bool, x float64, resp []int, eta float64) (lp, grad float64, nScored int) {
	for j, y := range resp {
		if y == survey.Missing || (active != nil && !active[j]) {
			continue
		}
		logp, g, _ := categoryTerms(eta, params.Beta1[j]*x, params.Tau[j], params.Delta, y, k[j])
		lp += logp
		grad += g
		nScored++
	}
	lp += distuv.UnitNormal.LogProb(eta)
	grad -= eta
	return lp, grad, nScored
}

// SolveAbility solves the one-dimensional MAP problem for a single
// participant's eta given item parameters fixed from another fit. It is
// reused unchanged for authentic LOOCV holdouts and for scoring
// non-authentic participants against the frozen full model.
//
// active may be nil (all items scored); LOOCV passes the holdout fit's
// active-item mask so items excluded as degenerate are not scored.
func (e *Estimator) SolveAbility(params screening.ItemParams, k []int, active []bool, x float64, resp []int, init float64) (*AbilitySolution, error) {
	problem := optimize.Problem{
		Func: func(v []float64) float64 {
			lp, _, _ := personLogPosterior(params, k, active, x, resp, v[0])
			return -lp
		},
		Grad: func(grad, v []float64) {
			_, g, _ := personLogPosterior(params, k, active, x, resp, v[0])
			grad[0] = -g
		},
	}

	settings := optimize.Settings{
		MajorIterations:   e.Settings.MaxIterations,
		GradientThreshold: e.Settings.GradTolerance,
		Runtime:           e.Settings.Runtime,
	}

	result, err := optimize.Minimize(problem, []float64{init}, &settings, &optimize.LBFGS{})
	if err != nil {
		return nil, core.NewNonConvergenceError("holdout solve", err)
	}
	if !statusConverged(result.Status) {
		return nil, core.NewNonConvergenceError("holdout solve: "+result.Status.String(), nil)
	}

	eta := result.X[0]
	lp, _, nScored := personLogPosterior(params, k, active, x, resp, eta)
	if nScored == 0 {
		return nil, core.ErrInsufficientData
	}
	return &AbilitySolution{
		Eta:          eta,
		LogPosterior: lp,
		AvgLogPost:   lp / float64(nScored),
		NScored:      nScored,
	}, nil
}
