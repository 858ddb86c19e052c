package pipeline

import (
	"authscreen/domain/screening"
	"authscreen/domain/survey"
	"authscreen/internal/irt"
	"authscreen/internal/weighting"
)

// consolidateInput bundles every upstream output. Any part may be
// partially missing; consolidation still emits one record per
// participant.
type consolidateInput struct {
	matrix      *survey.ResponseMatrix
	full        *irt.FitResult
	authIdx     []int
	loocv       []screening.LOOCVResult
	nonAuth     []screening.NonAuthenticResult
	cooks       map[string]screening.CooksD
	ref         *Reference
	att         *weighting.Result
	minAnswered int
}

// consolidate merges the per-stage outputs into one AuthenticityRecord
// per participant, in matrix order. Participants below the answered-item
// floor keep a fully populated identity and null diagnostics.
func consolidate(in consolidateInput) []screening.AuthenticityRecord {
	byID := make(map[string]*screening.AuthenticityRecord, in.matrix.NParticipants())
	records := make([]screening.AuthenticityRecord, in.matrix.NParticipants())
	for i, p := range in.matrix.Participants {
		records[i] = screening.AuthenticityRecord{
			ParticipantID: p.ID,
			Authentic:     p.Authentic,
			NAnswered:     p.NAnswered(),
		}
		byID[p.ID] = &records[i]
	}

	// Authentic: LOOCV results, aligned with authIdx and full.Eta.
	for pos, r := range in.loocv {
		rec := byID[r.ParticipantID]
		if rec == nil || rec.NAnswered < in.minAnswered {
			continue
		}
		rec.ConvergedMain = screening.Bool(r.ConvergedMain)
		rec.ConvergedHoldout = screening.Bool(r.ConvergedHoldout)
		if in.full != nil && pos < len(in.full.Eta) {
			rec.EtaFull = screening.Float(in.full.Eta[pos])
		}
		if !r.Converged() {
			continue
		}
		rec.EtaHoldout = r.Eta
		rec.AvgLogPost = r.AvgLogPost
		if in.ref != nil {
			rec.Lz = screening.Float(in.ref.Lz(*r.AvgLogPost))
		}
	}

	// Non-authentic: frozen-model scores.
	for _, r := range in.nonAuth {
		rec := byID[r.ParticipantID]
		if rec == nil || rec.NAnswered < in.minAnswered {
			continue
		}
		rec.ConvergedHoldout = screening.Bool(r.Converged)
		if !r.Converged {
			continue
		}
		rec.EtaHoldout = r.Eta
		rec.AvgLogPost = r.AvgLogPost
		if in.ref != nil {
			rec.Lz = screening.Float(in.ref.Lz(*r.AvgLogPost))
		}
	}

	// Influence diagnostics, keyed by participant.
	for id, d := range in.cooks {
		rec := byID[id]
		if rec == nil || rec.NAnswered < in.minAnswered {
			continue
		}
		rec.CooksD = d.D
		rec.CooksDScaled = d.DScaled
		rec.Influential4 = d.Influential4
		rec.InfluentialN = d.InfluentialN
	}

	// Quintiles and ATT weights.
	if in.att != nil {
		for id, a := range in.att.Assignments {
			rec := byID[id]
			if rec == nil || rec.NAnswered < in.minAnswered {
				continue
			}
			q := a.Quintile
			rec.Quintile = screening.Int(q)
			if !rec.Authentic {
				rec.Weight = a.Weight
				if a.Weight != nil {
					rec.WeightCapped = screening.Bool(a.Capped)
				}
			}
		}
	}

	return records
}
