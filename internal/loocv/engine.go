// Package loocv drives the N leave-one-out refits that produce the
// out-of-sample fit-quality distribution for authentic participants.
package loocv

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"authscreen/domain/screening"
	"authscreen/domain/survey"
	"authscreen/internal"
	"authscreen/internal/irt"
)

// Engine runs leave-one-out refits with warm-start initialization.
// Each iteration reads only immutable inputs (the full-model baseline and
// the response matrix) and writes to its own result slot; no locking is
// needed within an iteration, and no iteration failure sinks the batch.
type Engine struct {
	est         *irt.Estimator
	parallelism int64
	minAnswered int
	log         *internal.Logger
}

// New creates a LOOCV engine
func New(est *irt.Estimator, parallelism, minAnswered int, log *internal.Logger) *Engine {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &Engine{
		est:         est,
		parallelism: int64(parallelism),
		minAnswered: minAnswered,
		log:         log,
	}
}

// Run executes one leave-one-out iteration per authentic participant.
// authIdx lists the authentic participant indices into m, aligned with
// full.Eta. The returned slice has one entry per authentic participant in
// the same order; non-converged iterations are marked, never dropped.
func (e *Engine) Run(ctx context.Context, m *survey.ResponseMatrix, authIdx []int, full *irt.FitResult) []screening.LOOCVResult {
	results := make([]screening.LOOCVResult, len(authIdx))
	sem := semaphore.NewWeighted(e.parallelism)
	var wg sync.WaitGroup

	for pos := range authIdx {
		wg.Add(1)
		go func(pos int) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[pos] = failedResult(m, authIdx[pos], fmt.Sprintf("capacity wait aborted: %v", err))
				return
			}
			defer sem.Release(1)
			results[pos] = e.runIteration(m, authIdx, full, pos)
		}(pos)
	}
	wg.Wait()

	converged := 0
	for _, r := range results {
		if r.Converged() {
			converged++
		}
	}
	e.log.Info("loocv: %d/%d iterations converged", converged, len(results))
	return results
}

// runIteration performs one leave-one-out refit plus holdout solve.
// Panics inside the numerical code are converted to non-converged results.
func (e *Engine) runIteration(m *survey.ResponseMatrix, authIdx []int, full *irt.FitResult, pos int) (result screening.LOOCVResult) {
	heldOut := authIdx[pos]
	participant := m.Participants[heldOut]

	defer func() {
		if r := recover(); r != nil {
			result = failedResult(m, heldOut, fmt.Sprintf("iteration panic: %v", r))
			e.log.Error("loocv: participant %s: %s", participant.ID, result.Cause)
		}
	}()

	result = screening.LOOCVResult{
		ParticipantID: participant.ID,
		NAnswered:     participant.NAnswered(),
	}

	if result.NAnswered < e.minAnswered {
		result.Cause = fmt.Sprintf("insufficient data: %d answered, need %d", result.NAnswered, e.minAnswered)
		return result
	}

	// N-1 subsample, preserving order.
	sub := make([]int, 0, len(authIdx)-1)
	sub = append(sub, authIdx[:pos]...)
	sub = append(sub, authIdx[pos+1:]...)

	design, excluded := irt.NewDesign(m, sub,
		e.est.Settings.RidgeTau, e.est.Settings.RidgeBeta, e.est.Settings.RidgeDelta)
	result.ExcludedItems = excluded

	// Warm start: the full-model item parameters and the recentred ability
	// vector with the held-out entry removed. Removing one participant
	// perturbs the joint solution only slightly, so this turns the refit
	// from a cold optimization into a short correction.
	init := irt.Init{
		Tau:   full.Params.Tau,
		Beta1: full.Params.Beta1,
		Delta: full.Params.Delta,
		Eta:   irt.WithoutIndex(full.Eta, pos),
	}

	fit, err := e.est.Fit(design, init, excluded)
	if err != nil {
		result.Cause = fmt.Sprintf("subsample refit: %v", err)
		e.log.Warn("loocv: participant %s: %s", participant.ID, result.Cause)
		return result
	}
	result.ConvergedMain = true
	// Items excluded as degenerate were frozen at their full-model values,
	// so their delta components are exactly zero.
	result.ThetaDelta = full.Params.Diff(fit.Params)

	// Score the held-out person's full response vector against the N-1
	// item parameters, treated as fixed data.
	sol, err := e.est.SolveAbility(fit.Params, kOf(m), design.Active,
		participant.Covariate, m.Row(heldOut), full.Eta[pos])
	if err != nil {
		result.Cause = fmt.Sprintf("holdout solve: %v", err)
		e.log.Warn("loocv: participant %s: %s", participant.ID, result.Cause)
		return result
	}
	result.ConvergedHoldout = true
	result.Eta = screening.Float(sol.Eta)
	result.LogPosterior = screening.Float(sol.LogPosterior)
	result.AvgLogPost = screening.Float(sol.AvgLogPost)
	return result
}

func failedResult(m *survey.ResponseMatrix, idx int, cause string) screening.LOOCVResult {
	p := m.Participants[idx]
	return screening.LOOCVResult{
		ParticipantID: p.ID,
		NAnswered:     p.NAnswered(),
		Cause:         cause,
	}
}

func kOf(m *survey.ResponseMatrix) []int {
	k := make([]int, m.NItems())
	for j, item := range m.Items {
		k[j] = item.Categories
	}
	return k
}
