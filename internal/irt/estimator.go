package irt

import (
	"time"

	"gonum.org/v1/gonum/optimize"

	"authscreen/domain/core"
	"authscreen/domain/screening"
	"authscreen/internal/config"
)

// Settings controls the optimizer and the MAP penalties
type Settings struct {
	MaxIterations int
	GradTolerance float64
	// Runtime bounds one solve; exceeding it surfaces as non-convergence,
	// never as a batch abort.
	Runtime    time.Duration
	RidgeTau   float64
	RidgeBeta  float64
	RidgeDelta float64
}

// SettingsFromConfig maps the environment configuration onto estimator
// settings.
func SettingsFromConfig(c config.EstimatorConfig) Settings {
	return Settings{
		MaxIterations: c.MaxIterations,
		GradTolerance: c.GradTolerance,
		RidgeTau:      c.RidgeTau,
		RidgeBeta:     c.RidgeBeta,
		RidgeDelta:    c.RidgeDelta,
	}
}

// Estimator fits the graded-response model by MAP over the joint
// parameter vector. It is stateless and safe for concurrent use; each
// Fit call reads only its own Design.
type Estimator struct {
	Settings Settings
}

// NewEstimator creates an estimator with the given settings
func NewEstimator(settings Settings) *Estimator {
	return &Estimator{Settings: settings}
}

// Init seeds the optimizer. Nil slices mean cold start at zero. Warm
// starts reuse a related fit's solution: LOOCV passes the full-model item
// parameters and the recentred eta vector with the held-out entry
// removed.
type Init struct {
	Tau   []float64
	Beta1 []float64
	Delta float64
	Eta   []float64
}

// FitResult is a converged joint fit. Eta satisfies the sum-to-zero
// constraint exactly (recentred at convergence, with tau compensated).
type FitResult struct {
	Params        screening.ItemParams `json:"params"`
	Eta           []float64            `json:"eta"`
	LogPosterior  float64              `json:"log_posterior"`
	ExcludedItems []int                `json:"excluded_items,omitempty"`
}

// Fit solves the joint MAP problem on the design. It returns a converged
// parameter vector or an error wrapping core.ErrNonConvergence, never a
// partial silent success. Inactive (degenerate) items keep their initial
// parameter values and contribute nothing to the likelihood.
func (e *Estimator) Fit(d *Design, init Init, excluded []int) (*FitResult, error) {
	nItems, nPersons := d.NItems(), d.NPersons()
	dim := 2*nItems + 1 + nPersons

	theta := make([]float64, dim)
	if init.Tau != nil {
		copy(theta[:nItems], init.Tau)
	}
	if init.Beta1 != nil {
		copy(theta[nItems:2*nItems], init.Beta1)
	}
	theta[2*nItems] = init.Delta
	if init.Eta != nil {
		copy(theta[2*nItems+1:], init.Eta)
	}

	free := e.freeMask(d, dim)
	freeIdx := make([]int, 0, dim)
	for i, f := range free {
		if f {
			freeIdx = append(freeIdx, i)
		}
	}

	x0 := make([]float64, len(freeIdx))
	for fi, i := range freeIdx {
		x0[fi] = theta[i]
	}

	// Scratch buffers reused across evaluations; a Fit call is
	// single-threaded internally.
	full := make([]float64, dim)
	copy(full, theta)
	fullGrad := make([]float64, dim)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			for fi, i := range freeIdx {
				full[i] = x[fi]
			}
			return d.negLogPosterior(full, nil)
		},
		Grad: func(grad, x []float64) {
			for fi, i := range freeIdx {
				full[i] = x[fi]
			}
			d.negLogPosterior(full, fullGrad)
			for fi, i := range freeIdx {
				grad[fi] = fullGrad[i]
			}
		},
	}

	settings := optimize.Settings{
		MajorIterations:   e.Settings.MaxIterations,
		GradientThreshold: e.Settings.GradTolerance,
		Runtime:           e.Settings.Runtime,
	}

	result, err := optimize.Minimize(problem, x0, &settings, &optimize.LBFGS{})
	if err != nil {
		return nil, core.NewNonConvergenceError("joint fit", err)
	}
	if !statusConverged(result.Status) {
		return nil, core.NewNonConvergenceError("joint fit: "+result.Status.String(), nil)
	}

	for fi, i := range freeIdx {
		theta[i] = result.X[fi]
	}

	fit := &FitResult{
		Params: screening.ItemParams{
			Tau:   append([]float64(nil), theta[:nItems]...),
			Beta1: append([]float64(nil), theta[nItems:2*nItems]...),
			Delta: theta[2*nItems],
		},
		Eta:           append([]float64(nil), theta[2*nItems+1:]...),
		LogPosterior:  -result.F,
		ExcludedItems: excluded,
	}
	RecenterFit(fit.Params.Tau, fit.Eta)
	return fit, nil
}

// freeMask marks which entries of the full theta vector the optimizer may
// move. Inactive items freeze tau and beta; beta is frozen entirely when
// the covariate is constant; delta is frozen when no active polytomous
// item informs it.
func (e *Estimator) freeMask(d *Design, dim int) []bool {
	nItems := d.NItems()
	free := make([]bool, dim)
	for j := 0; j < nItems; j++ {
		free[j] = d.Active[j]
		free[nItems+j] = d.Active[j] && d.FreeBeta
	}
	free[2*nItems] = d.deltaInformed()
	for i := 2*nItems + 1; i < dim; i++ {
		free[i] = true
	}
	return free
}

// statusConverged maps gonum termination statuses onto the converged /
// non-converged contract.
func statusConverged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.GradientThreshold,
		optimize.FunctionConvergence,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}
