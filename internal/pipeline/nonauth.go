package pipeline

import (
	"fmt"

	"authscreen/domain/screening"
	"authscreen/domain/survey"
	"authscreen/internal"
	"authscreen/internal/irt"
)

// NonAuthScorer scores flagged non-authentic participants against the
// frozen full-model item parameters. No leave-one-out is needed on the
// item side: these participants were never part of the authentic fit.
type NonAuthScorer struct {
	est         *irt.Estimator
	minAnswered int
	log         *internal.Logger
}

// NewNonAuthScorer creates the scorer
func NewNonAuthScorer(est *irt.Estimator, minAnswered int, log *internal.Logger) *NonAuthScorer {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &NonAuthScorer{est: est, minAnswered: minAnswered, log: log}
}

// Run scores each target against full.Params. Participants with too few
// answered items are skipped entirely (all outputs missing); a failed
// solve marks that participant non-converged and the batch continues.
func (s *NonAuthScorer) Run(m *survey.ResponseMatrix, full *irt.FitResult, targets []int) []screening.NonAuthenticResult {
	k := make([]int, m.NItems())
	for j, item := range m.Items {
		k[j] = item.Categories
	}

	results := make([]screening.NonAuthenticResult, len(targets))
	for pos, t := range targets {
		p := m.Participants[t]
		res := screening.NonAuthenticResult{
			ParticipantID: p.ID,
			NAnswered:     p.NAnswered(),
		}
		if res.NAnswered < s.minAnswered {
			res.Cause = fmt.Sprintf("insufficient data: %d answered, need %d", res.NAnswered, s.minAnswered)
			results[pos] = res
			continue
		}

		sol, err := s.est.SolveAbility(full.Params, k, nil, p.Covariate, m.Row(t), 0)
		if err != nil {
			res.Cause = fmt.Sprintf("frozen-model solve: %v", err)
			s.log.Warn("nonauth: participant %s: %s", p.ID, res.Cause)
			results[pos] = res
			continue
		}
		res.Converged = true
		res.Eta = screening.Float(sol.Eta)
		res.LogPosterior = screening.Float(sol.LogPosterior)
		res.AvgLogPost = screening.Float(sol.AvgLogPost)
		results[pos] = res
	}
	return results
}
