package screening

// ============================================================================
// MODEL PARAMETERS
// ============================================================================

// ItemParams is the item-side parameter set of one fit: per-item
// difficulty (tau), per-item covariate-discrimination slope (beta1), and
// the single shared threshold-spacing constant (delta). One instance per
// fit; LOOCV instances are transient and survive only through their
// parameter deltas.
type ItemParams struct {
	Tau   []float64 `json:"tau"`
	Beta1 []float64 `json:"beta1"`
	Delta float64   `json:"delta"`
}

// Dim returns the pooled parameter-vector dimension (tau, beta1, delta)
func (p ItemParams) Dim() int {
	return len(p.Tau) + len(p.Beta1) + 1
}

// Pool flattens the parameter set into one vector ordered tau, beta1, delta
func (p ItemParams) Pool() []float64 {
	theta := make([]float64, 0, p.Dim())
	theta = append(theta, p.Tau...)
	theta = append(theta, p.Beta1...)
	theta = append(theta, p.Delta)
	return theta
}

// Diff returns the pooled difference p - other, the jackknife delta
// consumed by the influence engine.
func (p ItemParams) Diff(other ItemParams) []float64 {
	a, b := p.Pool(), other.Pool()
	d := make([]float64, len(a))
	for i := range a {
		d[i] = a[i] - b[i]
	}
	return d
}

// ============================================================================
// PER-PARTICIPANT RESULTS
// ============================================================================

// LOOCVResult is the out-of-sample fit-quality record for one authentic
// participant. Diagnostic fields are nil unless both the N-1 refit and
// the holdout solve converged and the participant answered enough items.
type LOOCVResult struct {
	ParticipantID    string   `json:"participant_id"`
	NAnswered        int      `json:"n_answered"`
	Eta              *float64 `json:"eta,omitempty"`
	LogPosterior     *float64 `json:"log_posterior,omitempty"`
	AvgLogPost       *float64 `json:"avg_logpost,omitempty"`
	ConvergedMain    bool     `json:"converged_main"`
	ConvergedHoldout bool     `json:"converged_holdout"`
	// Cause records why the iteration produced no score (non-convergence,
	// insufficient data, degenerate design).
	Cause string `json:"cause,omitempty"`
	// ThetaDelta is the pooled item-parameter delta theta_full - theta_{-i},
	// input to the jackknife Hessian. Nil when the refit did not converge.
	ThetaDelta []float64 `json:"theta_delta,omitempty"`
	// ExcludedItems lists items dropped from this iteration as degenerate.
	ExcludedItems []int `json:"excluded_items,omitempty"`
}

// Converged reports whether the result carries a usable score
func (r LOOCVResult) Converged() bool {
	return r.ConvergedMain && r.ConvergedHoldout && r.AvgLogPost != nil
}

// NonAuthenticResult scores a flagged non-authentic participant against
// the frozen full-model item parameters.
type NonAuthenticResult struct {
	ParticipantID string   `json:"participant_id"`
	NAnswered     int      `json:"n_answered"`
	Eta           *float64 `json:"eta,omitempty"`
	LogPosterior  *float64 `json:"log_posterior,omitempty"`
	AvgLogPost    *float64 `json:"avg_logpost,omitempty"`
	Converged     bool     `json:"converged"`
	// ConvergedAugment flags the N+1 augmented influence refit separately.
	ConvergedAugment bool      `json:"converged_augment"`
	Cause            string    `json:"cause,omitempty"`
	ThetaDelta       []float64 `json:"theta_delta,omitempty"`
}

// CooksD is the influence diagnostic for one participant. D is nil when
// the Hessian approximation is singular or the participant's delta is
// unavailable: missing, never zero.
type CooksD struct {
	ParticipantID string   `json:"participant_id"`
	D             *float64 `json:"cooks_d,omitempty"`
	DScaled       *float64 `json:"cooks_d_scaled,omitempty"`
	Influential4  *bool    `json:"influential_4,omitempty"`
	InfluentialN  *bool    `json:"influential_n,omitempty"`
}

// ============================================================================
// ATT WEIGHTING
// ============================================================================

// QuintileStratum is one empirical quintile bin of the authentic
// avg_logpost distribution. ATTWeight applies to the non-authentic
// members of the bin; it is nil when the bin is vacuous (no non-authentic
// members) and capped+flagged when the propensity approaches 1.
type QuintileStratum struct {
	Quintile      int      `json:"quintile"` // 1..5
	Lower         float64  `json:"lower"`
	Upper         float64  `json:"upper"`
	NAuthentic    int      `json:"n_authentic"`
	NNonAuthentic int      `json:"n_nonauthentic"`
	Propensity    *float64 `json:"propensity,omitempty"`
	ATTWeight     *float64 `json:"att_weight,omitempty"`
	Capped        bool     `json:"capped"`
}

// ============================================================================
// FINAL OUTPUT
// ============================================================================

// AuthenticityRecord is the one-row-per-participant merge of weight,
// standardized score, quintile, abilities, and influence diagnostics.
// Every diagnostic field may be nil; nil is distinguishable from zero all
// the way to persistence.
type AuthenticityRecord struct {
	ParticipantID string `json:"participant_id" db:"participant_id"`
	Authentic     bool   `json:"is_authentic" db:"is_authentic"`
	NAnswered     int    `json:"n_answered" db:"n_answered"`

	AvgLogPost *float64 `json:"avg_logpost,omitempty" db:"avg_logpost"`
	Lz         *float64 `json:"lz,omitempty" db:"lz"`
	Weight     *float64 `json:"weight,omitempty" db:"weight"`
	Quintile   *int     `json:"quintile,omitempty" db:"quintile"`

	// EtaFull is the full-model ability (authentic participants only);
	// EtaHoldout is the holdout (authentic) or frozen-model (non-authentic)
	// ability.
	EtaFull    *float64 `json:"eta_full,omitempty" db:"eta_full"`
	EtaHoldout *float64 `json:"eta_holdout,omitempty" db:"eta_holdout"`

	CooksD       *float64 `json:"cooks_d,omitempty" db:"cooks_d"`
	CooksDScaled *float64 `json:"cooks_d_scaled,omitempty" db:"cooks_d_scaled"`
	Influential4 *bool    `json:"influential_4,omitempty" db:"influential_4"`
	InfluentialN *bool    `json:"influential_n,omitempty" db:"influential_n"`

	ConvergedMain    *bool `json:"converged_main,omitempty" db:"converged_main"`
	ConvergedHoldout *bool `json:"converged_holdout,omitempty" db:"converged_holdout"`
	WeightCapped     *bool `json:"weight_capped,omitempty" db:"weight_capped"`
}

// Float returns a pointer to v, for populating nullable record fields
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }
