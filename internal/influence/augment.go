package influence

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"authscreen/domain/survey"
	"authscreen/internal"
	"authscreen/internal/irt"
)

// AugmentEngine estimates influence for participants who were never part
// of the authentic fit: each target gets one refit on the authentic set
// plus that single participant, and the jackknife-style delta against the
// authentic-only baseline feeds the same quadratic form. This is the most
// expensive stage of a run; targets are independent and share no mutable
// state.
type AugmentEngine struct {
	est         *irt.Estimator
	parallelism int64
	minAnswered int
	log         *internal.Logger
}

// NewAugmentEngine creates the augmented-fit engine
func NewAugmentEngine(est *irt.Estimator, parallelism, minAnswered int, log *internal.Logger) *AugmentEngine {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &AugmentEngine{
		est:         est,
		parallelism: int64(parallelism),
		minAnswered: minAnswered,
		log:         log,
	}
}

// Deltas runs one augmented fit per target participant and returns the
// pooled parameter delta theta_full - theta_aug keyed by participant ID.
// Targets with too few answered items, or whose augmented fit fails, map
// to nil (influence missing for them; the batch continues).
func (a *AugmentEngine) Deltas(ctx context.Context, m *survey.ResponseMatrix, authIdx []int, full *irt.FitResult, targets []int) map[string][]float64 {
	deltas := make(map[string][]float64, len(targets))
	slots := make([][]float64, len(targets))

	sem := semaphore.NewWeighted(a.parallelism)
	var wg sync.WaitGroup
	for pos, t := range targets {
		if m.Participants[t].NAnswered() < a.minAnswered {
			continue
		}
		wg.Add(1)
		go func(pos, t int) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			slots[pos] = a.augmentedDelta(m, authIdx, full, t)
		}(pos, t)
	}
	wg.Wait()

	for pos, t := range targets {
		deltas[m.Participants[t].ID] = slots[pos]
	}
	return deltas
}

// augmentedDelta fits the N+1 model (authentic set plus one target) with
// a warm start from the authentic baseline and returns the parameter
// delta, or nil when the fit fails.
func (a *AugmentEngine) augmentedDelta(m *survey.ResponseMatrix, authIdx []int, full *irt.FitResult, target int) (delta []float64) {
	pid := m.Participants[target].ID
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("augment: participant %s: panic: %v", pid, r)
			delta = nil
		}
	}()

	augIdx := make([]int, 0, len(authIdx)+1)
	augIdx = append(augIdx, authIdx...)
	augIdx = append(augIdx, target)

	design, excluded := irt.NewDesign(m, augIdx,
		a.est.Settings.RidgeTau, a.est.Settings.RidgeBeta, a.est.Settings.RidgeDelta)

	// Warm start: baseline item parameters; the new person enters at
	// ability zero and the joint vector is recentred.
	etaInit := make([]float64, 0, len(full.Eta)+1)
	etaInit = append(etaInit, full.Eta...)
	etaInit = append(etaInit, 0)

	init := irt.Init{
		Tau:   full.Params.Tau,
		Beta1: full.Params.Beta1,
		Delta: full.Params.Delta,
		Eta:   irt.Recenter(etaInit),
	}

	fit, err := a.est.Fit(design, init, excluded)
	if err != nil {
		a.log.Warn("augment: participant %s: %v", pid, err)
		return nil
	}
	return full.Params.Diff(fit.Params)
}
