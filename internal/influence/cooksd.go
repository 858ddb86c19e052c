// Package influence computes Cook's D diagnostics from jackknife
// parameter deltas: a Hessian approximation built from the LOOCV deltas
// themselves, quadratic-form influence for authentic participants, and
// augmented N+1 refits for non-authentic ones.
package influence

import (
	"gonum.org/v1/gonum/mat"

	"authscreen/domain/core"
	"authscreen/domain/screening"
)

// Diagnostics holds the factorized jackknife Hessian approximation and
// the scaling constants. Construct it once per run from the converged
// LOOCV deltas; CooksD is then safe for concurrent use.
type Diagnostics struct {
	chol      mat.Cholesky
	dim       int
	denom     float64
	nBaseline int
}

// NewDiagnostics builds the Hessian approximation
// S = ((N-1)/N) * sum_i delta_i delta_i' from the converged LOOCV deltas
// and factorizes it. nBaseline is the authentic participant count of the
// full fit (the N in D_scaled = D*N). denom divides the quadratic form;
// zero selects the pooled parameter dimension. A non-positive-definite S
// returns core.ErrSingularHessian: Cook's D is then missing for every
// affected participant, never zero.
func NewDiagnostics(deltas [][]float64, nBaseline int, denom float64) (*Diagnostics, error) {
	if len(deltas) == 0 {
		return nil, core.ErrSingularHessian
	}
	dim := len(deltas[0])
	scale := float64(len(deltas)-1) / float64(len(deltas))
	if len(deltas) == 1 {
		scale = 1
	}

	s := mat.NewSymDense(dim, nil)
	for _, d := range deltas {
		for a := 0; a < dim; a++ {
			for b := a; b < dim; b++ {
				s.SetSym(a, b, s.At(a, b)+scale*d[a]*d[b])
			}
		}
	}

	diag := &Diagnostics{dim: dim, denom: denom, nBaseline: nBaseline}
	if diag.denom <= 0 {
		diag.denom = float64(dim)
	}
	if ok := diag.chol.Factorize(s); !ok {
		return nil, core.ErrSingularHessian
	}
	return diag, nil
}

// CooksD computes the influence record for one participant from their
// pooled parameter delta. A nil delta (non-converged refit) yields a
// record with every diagnostic field missing.
func (g *Diagnostics) CooksD(participantID string, delta []float64) screening.CooksD {
	out := screening.CooksD{ParticipantID: participantID}
	if delta == nil || len(delta) != g.dim {
		return out
	}

	dv := mat.NewVecDense(g.dim, delta)
	var solved mat.VecDense
	if err := g.chol.SolveVecTo(&solved, dv); err != nil {
		return out
	}

	d := mat.Dot(dv, &solved) / g.denom
	dScaled := d * float64(g.nBaseline)
	out.D = screening.Float(d)
	out.DScaled = screening.Float(dScaled)
	out.Influential4 = screening.Bool(dScaled > 4)
	out.InfluentialN = screening.Bool(dScaled > float64(g.nBaseline))
	return out
}

// MissingCooksD returns the all-missing record used when the Hessian
// approximation is singular.
func MissingCooksD(participantID string) screening.CooksD {
	return screening.CooksD{ParticipantID: participantID}
}
