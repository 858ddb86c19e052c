// Package pipeline orchestrates the authenticity screening stages: main
// fit, LOOCV, influence diagnostics, non-authentic scoring, ATT
// weighting, and consolidation. Stages are pure functions of their inputs
// plus the injected artifact store; each stage checkpoints its output so
// expensive computations are not repeated when only downstream logic
// changes.
package pipeline

import (
	"context"
	"time"

	"authscreen/domain/core"
	"authscreen/domain/screening"
	"authscreen/domain/survey"
	"authscreen/internal"
	"authscreen/internal/config"
	"authscreen/internal/errors"
	"authscreen/internal/influence"
	"authscreen/internal/irt"
	"authscreen/internal/loocv"
	"authscreen/internal/weighting"
	"authscreen/ports"
)

// Pipeline runs the full screening batch
type Pipeline struct {
	cfg   *config.Config
	est   *irt.Estimator
	store ports.ArtifactStore
	log   *internal.Logger
}

// New wires a pipeline from configuration and an artifact store
func New(cfg *config.Config, store ports.ArtifactStore, log *internal.Logger) *Pipeline {
	if log == nil {
		log = internal.DefaultLogger
	}
	settings := irt.SettingsFromConfig(cfg.Estimator)
	settings.Runtime = cfg.Screening.IterationTimeout
	return &Pipeline{
		cfg:   cfg,
		est:   irt.NewEstimator(settings),
		store: store,
		log:   log,
	}
}

// Output is the consolidated result of one run
type Output struct {
	RunID    string                         `json:"run_id"`
	Records  []screening.AuthenticityRecord `json:"records"`
	Strata   []screening.QuintileStratum    `json:"strata"`
	Manifest Manifest                       `json:"manifest"`
}

// Manifest captures audit metadata for the run
type Manifest struct {
	Version          core.Hash      `json:"version"`
	NParticipants    int            `json:"n_participants"`
	NAuthentic       int            `json:"n_authentic"`
	NNonAuthentic    int            `json:"n_nonauthentic"`
	NItems           int            `json:"n_items"`
	LOOCVConverged   int            `json:"loocv_converged"`
	NonAuthConverged int            `json:"nonauth_converged"`
	HessianSingular  bool           `json:"hessian_singular"`
	StartedAt        core.Timestamp `json:"started_at"`
	FinishedAt       core.Timestamp `json:"finished_at"`
}

// Run executes the batch over a frozen response matrix. Only a failed
// main fit aborts the run; every other failure is local to its
// participant and surfaces as null diagnostics in the output.
func (p *Pipeline) Run(ctx context.Context, m *survey.ResponseMatrix) (*Output, error) {
	started := core.Now()
	version := p.version(m)
	authIdx := m.AuthenticIndex()
	nonAuthIdx := m.NonAuthenticIndex()
	p.log.Info("screening run: %d authentic, %d non-authentic, %d items, version %s",
		len(authIdx), len(nonAuthIdx), m.NItems(), version.String()[:12])

	// Stage 1: full-model baseline. Fatal on failure: no warm start or
	// influence baseline exists without it.
	full, err := p.fullFit(ctx, m, authIdx, version)
	if err != nil {
		return nil, errors.MainFitFailed(err)
	}

	// Stage 2: leave-one-out cross-validation.
	loocvResults := p.loocvStage(ctx, m, authIdx, full, version)

	// Stage 3: influence diagnostics for authentic participants.
	cooks := make(map[string]screening.CooksD, m.NParticipants())
	diag, diagErr := p.diagnostics(loocvResults)
	if diagErr != nil {
		p.log.Warn("influence: %v; Cook's D reported missing", diagErr)
		for _, r := range loocvResults {
			cooks[r.ParticipantID] = influence.MissingCooksD(r.ParticipantID)
		}
	} else {
		for _, r := range loocvResults {
			cooks[r.ParticipantID] = diag.CooksD(r.ParticipantID, r.ThetaDelta)
		}
	}

	// Stage 4: score non-authentic participants against the frozen model.
	nonAuthResults := p.nonAuthStage(ctx, m, full, nonAuthIdx, version)

	// Stage 5: augmented N+1 fits for non-authentic influence. Skipped
	// when the Hessian approximation is singular: D would be missing
	// regardless, and the augmented fits are the most expensive stage.
	if diagErr == nil {
		deltas := p.augmentStage(ctx, m, authIdx, full, nonAuthIdx, version)
		for id, delta := range deltas {
			cooks[id] = diag.CooksD(id, delta)
		}
		attachAugmentOutcomes(nonAuthResults, deltas)
		// Rewrite the non-authentic table so the checkpoint carries the
		// augment outcome alongside the frozen-model score.
		if err := p.store.Put(ctx, ports.ArtifactNonAuth, core.Hash(version), nonAuthResults); err != nil {
			p.log.Warn("checkpoint %s: %v", ports.ArtifactNonAuth, err)
		}
	} else {
		for _, t := range nonAuthIdx {
			cooks[m.Participants[t].ID] = influence.MissingCooksD(m.Participants[t].ID)
		}
	}

	// Stage 6: standardization reference and ATT weighting, both over the
	// complete converged distributions (barrier semantics).
	authScored := make([]weighting.Scored, 0, len(loocvResults))
	refScores := make([]float64, 0, len(loocvResults))
	for _, r := range loocvResults {
		if r.Converged() && r.NAnswered >= p.cfg.Screening.MinAnswered {
			authScored = append(authScored, weighting.Scored{ParticipantID: r.ParticipantID, AvgLogPost: *r.AvgLogPost})
			refScores = append(refScores, *r.AvgLogPost)
		}
	}
	nonAuthScored := make([]weighting.Scored, 0, len(nonAuthResults))
	for _, r := range nonAuthResults {
		if r.Converged && r.AvgLogPost != nil {
			nonAuthScored = append(nonAuthScored, weighting.Scored{ParticipantID: r.ParticipantID, AvgLogPost: *r.AvgLogPost})
		}
	}

	ref, err := NewReference(refScores)
	if err != nil {
		p.log.Warn("standardization unavailable: %v; lz reported missing", err)
		ref = nil
	}

	var att *weighting.Result
	if ref != nil {
		att, err = weighting.Stratify(authScored, nonAuthScored, p.cfg.Screening.MaxATTWeight)
		if err != nil {
			p.log.Warn("att weighting unavailable: %v; weights reported missing", err)
			att = nil
		} else if err := p.store.Put(ctx, ports.ArtifactATT, core.Hash(version), att.Strata); err != nil {
			p.log.Warn("checkpoint %s: %v", ports.ArtifactATT, err)
		}
	}

	// Stage 7: consolidation. Never fails on partial missingness.
	records := consolidate(consolidateInput{
		matrix:      m,
		full:        full,
		authIdx:     authIdx,
		loocv:       loocvResults,
		nonAuth:     nonAuthResults,
		cooks:       cooks,
		ref:         ref,
		att:         att,
		minAnswered: p.cfg.Screening.MinAnswered,
	})

	manifest := Manifest{
		Version:          core.Hash(version),
		NParticipants:    m.NParticipants(),
		NAuthentic:       len(authIdx),
		NNonAuthentic:    len(nonAuthIdx),
		NItems:           m.NItems(),
		LOOCVConverged:   len(refScores),
		NonAuthConverged: len(nonAuthScored),
		HessianSingular:  diagErr != nil,
		StartedAt:        started,
		FinishedAt:       core.Now(),
	}
	if err := p.store.Put(ctx, ports.ArtifactManifest, core.Hash(version), manifest); err != nil {
		p.log.Warn("checkpoint %s: %v", ports.ArtifactManifest, err)
	}

	out := &Output{
		RunID:    core.NewID().String(),
		Records:  records,
		Manifest: manifest,
	}
	if att != nil {
		out.Strata = att.Strata
	}
	return out, nil
}

// version fingerprints the model specification; any change to the item
// set, participant roster, or estimator settings invalidates every cached
// stage.
func (p *Pipeline) version(m *survey.ResponseMatrix) core.ModelSpecHash {
	return core.ComputeModelSpecHash(map[string]interface{}{
		"matrix":       m.Fingerprint().String(),
		"estimator":    p.est.Settings,
		"min_answered": p.cfg.Screening.MinAnswered,
	})
}

func (p *Pipeline) fullFit(ctx context.Context, m *survey.ResponseMatrix, authIdx []int, version core.ModelSpecHash) (*irt.FitResult, error) {
	var cached irt.FitResult
	if ok, err := p.store.Get(ctx, ports.ArtifactFullModel, core.Hash(version), &cached); err == nil && ok {
		p.log.Info("full model: checkpoint hit")
		return &cached, nil
	}

	design, excluded := irt.NewDesign(m, authIdx,
		p.est.Settings.RidgeTau, p.est.Settings.RidgeBeta, p.est.Settings.RidgeDelta)
	if len(excluded) > 0 {
		p.log.Warn("full model: %d degenerate items excluded", len(excluded))
	}
	fit, err := p.est.Fit(design, irt.Init{}, excluded)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(ctx, ports.ArtifactFullModel, core.Hash(version), fit); err != nil {
		p.log.Warn("checkpoint %s: %v", ports.ArtifactFullModel, err)
	}
	return fit, nil
}

func (p *Pipeline) loocvStage(ctx context.Context, m *survey.ResponseMatrix, authIdx []int, full *irt.FitResult, version core.ModelSpecHash) []screening.LOOCVResult {
	var cached []screening.LOOCVResult
	if ok, err := p.store.Get(ctx, ports.ArtifactLOOCV, core.Hash(version), &cached); err == nil && ok && len(cached) == len(authIdx) {
		p.log.Info("loocv: checkpoint hit")
		return cached
	}

	engine := loocv.New(p.est, p.cfg.Screening.Parallelism, p.cfg.Screening.MinAnswered, p.log)
	start := time.Now()
	results := engine.Run(ctx, m, authIdx, full)
	p.log.Info("loocv: %d iterations in %s", len(results), time.Since(start))

	if err := p.store.Put(ctx, ports.ArtifactLOOCV, core.Hash(version), results); err != nil {
		p.log.Warn("checkpoint %s: %v", ports.ArtifactLOOCV, err)
	}
	return results
}

// diagnostics builds the jackknife Hessian approximation from the
// converged LOOCV deltas.
func (p *Pipeline) diagnostics(results []screening.LOOCVResult) (*influence.Diagnostics, error) {
	deltas := make([][]float64, 0, len(results))
	for _, r := range results {
		if r.ConvergedMain && r.ThetaDelta != nil {
			deltas = append(deltas, r.ThetaDelta)
		}
	}
	return influence.NewDiagnostics(deltas, len(results), p.cfg.Screening.CooksDenominator)
}

func (p *Pipeline) nonAuthStage(ctx context.Context, m *survey.ResponseMatrix, full *irt.FitResult, nonAuthIdx []int, version core.ModelSpecHash) []screening.NonAuthenticResult {
	var cached []screening.NonAuthenticResult
	if ok, err := p.store.Get(ctx, ports.ArtifactNonAuth, core.Hash(version), &cached); err == nil && ok && len(cached) == len(nonAuthIdx) {
		p.log.Info("nonauth: checkpoint hit")
		return cached
	}

	scorer := NewNonAuthScorer(p.est, p.cfg.Screening.MinAnswered, p.log)
	results := scorer.Run(m, full, nonAuthIdx)
	if err := p.store.Put(ctx, ports.ArtifactNonAuth, core.Hash(version), results); err != nil {
		p.log.Warn("checkpoint %s: %v", ports.ArtifactNonAuth, err)
	}
	return results
}

// attachAugmentOutcomes writes each target's augmented-fit outcome onto
// its non-authentic result: a non-nil delta means the N+1 refit
// converged. Targets the augment stage skipped or failed keep
// ConvergedAugment false and a nil delta.
func attachAugmentOutcomes(results []screening.NonAuthenticResult, deltas map[string][]float64) {
	for i := range results {
		delta, ok := deltas[results[i].ParticipantID]
		if !ok || delta == nil {
			continue
		}
		results[i].ConvergedAugment = true
		results[i].ThetaDelta = delta
	}
}

func (p *Pipeline) augmentStage(ctx context.Context, m *survey.ResponseMatrix, authIdx []int, full *irt.FitResult, nonAuthIdx []int, version core.ModelSpecHash) map[string][]float64 {
	var cached map[string][]float64
	if ok, err := p.store.Get(ctx, ports.ArtifactInfluence, core.Hash(version), &cached); err == nil && ok {
		p.log.Info("augment: checkpoint hit")
		return cached
	}

	engine := influence.NewAugmentEngine(p.est, p.cfg.Screening.Parallelism, p.cfg.Screening.MinAnswered, p.log)
	start := time.Now()
	deltas := engine.Deltas(ctx, m, authIdx, full, nonAuthIdx)
	p.log.Info("augment: %d fits in %s", len(deltas), time.Since(start))

	if err := p.store.Put(ctx, ports.ArtifactInfluence, core.Hash(version), deltas); err != nil {
		p.log.Warn("checkpoint %s: %v", ports.ArtifactInfluence, err)
	}
	return deltas
}
