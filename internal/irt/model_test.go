package irt

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/diff/fd"

	"authscreen/domain/core"
	"authscreen/domain/screening"
	"authscreen/domain/survey"
)

func testDesign() *Design {
	// 3 items (two binary, one 4-category), 4 persons, some missing cells.
	return &Design{
		K: []int{2, 2, 4},
		X: []float64{-1.0, 0.0, 0.5, 1.0},
		Resp: [][]int{
			{0, 1, 2},
			{1, 0, survey.Missing},
			{1, 1, 0},
			{0, survey.Missing, 3},
		},
		Active:     []bool{true, true, true},
		FreeBeta:   true,
		RidgeTau:   0.01,
		RidgeBeta:  0.01,
		RidgeDelta: 0.01,
	}
}

func TestCategoryTerms_ProbabilitiesSumToOne(t *testing.T) {
	for _, k := range []int{2, 3, 5} {
		sum := 0.0
		for y := 0; y < k; y++ {
			logp, _, _ := categoryTerms(0.3, -0.2, 0.1, 0.8, y, k)
			p := math.Exp(logp)
			if p <= 0 {
				t.Fatalf("K=%d y=%d: non-positive category probability %g", k, y, p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-10 {
			t.Errorf("K=%d: category probabilities sum to %g, want 1", k, sum)
		}
	}
}

func TestNegLogPosterior_AnalyticGradientMatchesFiniteDifference(t *testing.T) {
	d := testDesign()
	dim := 2*d.NItems() + 1 + d.NPersons()

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		theta := make([]float64, dim)
		for i := range theta {
			theta[i] = rng.NormFloat64() * 0.5
		}
		// Keep delta positive so thresholds stay ordered.
		theta[2*d.NItems()] = 0.5 + rng.Float64()

		analytic := make([]float64, dim)
		d.negLogPosterior(theta, analytic)

		numeric := make([]float64, dim)
		fd.Gradient(numeric, func(x []float64) float64 {
			return d.negLogPosterior(x, nil)
		}, theta, nil)

		for i := range analytic {
			if math.Abs(analytic[i]-numeric[i]) > 1e-5 {
				t.Fatalf("trial %d component %d: analytic %g vs numeric %g", trial, i, analytic[i], numeric[i])
			}
		}
	}
}

func TestNegLogPosterior_SkipsInactiveAndMissing(t *testing.T) {
	d := testDesign()
	theta := make([]float64, 2*d.NItems()+1+d.NPersons())
	base := d.negLogPosterior(theta, nil)

	// Deactivating item 2 must change the objective (its responses drop out).
	d.Active[2] = false
	without := d.negLogPosterior(theta, nil)
	if base == without {
		t.Error("deactivating an item did not change the objective")
	}

	// The inactive item's tau must not receive likelihood gradient.
	grad := make([]float64, len(theta))
	d.negLogPosterior(theta, grad)
	if grad[2] != 0 {
		t.Errorf("inactive item tau gradient = %g, want 0", grad[2])
	}
}

func TestFit_ConvergesOnSyntheticBinaryItems(t *testing.T) {
	// 12 persons, 8 binary items with spread difficulties.
	rng := rand.New(rand.NewSource(42))
	nPersons, nItems := 12, 8
	trueTau := make([]float64, nItems)
	for j := range trueTau {
		trueTau[j] = -1.2 + 0.3*float64(j)
	}
	resp := make([][]int, nPersons)
	x := make([]float64, nPersons)
	for i := 0; i < nPersons; i++ {
		eta := rng.NormFloat64()
		resp[i] = make([]int, nItems)
		for j := 0; j < nItems; j++ {
			p := sigmoid(eta - trueTau[j])
			if rng.Float64() < p {
				resp[i][j] = 1
			}
		}
	}

	d := &Design{
		K:          repeatInt(2, nItems),
		X:          x,
		Resp:       resp,
		Active:     repeatBool(true, nItems),
		RidgeTau:   0.01,
		RidgeBeta:  0.01,
		RidgeDelta: 0.01,
	}

	est := NewEstimator(Settings{MaxIterations: 500, GradTolerance: 1e-6})
	fit, err := est.Fit(d, Init{}, nil)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	var mean float64
	for _, e := range fit.Eta {
		mean += e
	}
	mean /= float64(len(fit.Eta))
	if math.Abs(mean) > 1e-9 {
		t.Errorf("mean eta = %g, want ~0 (sum-to-zero constraint)", mean)
	}
	for j, tau := range fit.Params.Tau {
		if math.IsNaN(tau) || math.IsInf(tau, 0) {
			t.Errorf("tau[%d] = %g", j, tau)
		}
	}
}

func TestFit_IterationLimitIsNonConvergence(t *testing.T) {
	d := testDesign()
	est := NewEstimator(Settings{MaxIterations: 2, GradTolerance: 1e-14})

	_, err := est.Fit(d, Init{}, nil)
	if err == nil {
		t.Fatal("expected the iteration limit to surface as an error")
	}
	if !core.IsNonConvergence(err) {
		t.Fatalf("error %v does not wrap the non-convergence sentinel", err)
	}
}

func TestSolveAbility_AvgLogPostIdentity(t *testing.T) {
	params := testParams()
	k := []int{2, 2, 4}
	resp := []int{1, 0, 2}

	est := NewEstimator(Settings{MaxIterations: 200, GradTolerance: 1e-8})
	sol, err := est.SolveAbility(params, k, nil, 0.3, resp, 0)
	if err != nil {
		t.Fatalf("holdout solve failed: %v", err)
	}

	if sol.NScored != 3 {
		t.Fatalf("NScored = %d, want 3", sol.NScored)
	}
	if sol.AvgLogPost != sol.LogPosterior/float64(sol.NScored) {
		t.Errorf("avg_logpost %g != log_posterior/n %g", sol.AvgLogPost, sol.LogPosterior/float64(sol.NScored))
	}

	// First-order condition at the solution.
	_, grad, _ := personLogPosterior(params, k, nil, 0.3, resp, sol.Eta)
	if math.Abs(grad) > 1e-4 {
		t.Errorf("gradient at solution = %g, want ~0", grad)
	}
}

func TestSolveAbility_AllMissingIsInsufficient(t *testing.T) {
	params := testParams()
	k := []int{2, 2, 4}
	resp := []int{survey.Missing, survey.Missing, survey.Missing}

	est := NewEstimator(Settings{MaxIterations: 200, GradTolerance: 1e-8})
	_, err := est.SolveAbility(params, k, nil, 0, resp, 0)
	if err == nil {
		t.Fatal("expected an error for a fully missing response vector")
	}
}

func testParams() screening.ItemParams {
	return screening.ItemParams{
		Tau:   []float64{-0.5, 0.2, 0.7},
		Beta1: []float64{0.1, 0.0, -0.2},
		Delta: 0.9,
	}
}

func repeatInt(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func repeatBool(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}
