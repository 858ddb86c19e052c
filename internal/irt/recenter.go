package irt

// Recenter returns a copy of eta shifted so its mean is exactly zero.
// This is the single implementation of the sum-to-zero identifiability
// constraint; the main fit, the LOOCV warm start, and the augmented-fit
// path all go through it.
func Recenter(eta []float64) []float64 {
	out := make([]float64, len(eta))
	if len(eta) == 0 {
		return out
	}
	var mean float64
	for _, v := range eta {
		mean += v
	}
	mean /= float64(len(eta))
	for i, v := range eta {
		out[i] = v - mean
	}
	return out
}

// RecenterFit shifts eta to mean zero in place and compensates tau by the
// same shift, leaving the model likelihood unchanged (the linear
// predictor depends on eta and tau only through eta - tau).
func RecenterFit(tau, eta []float64) {
	if len(eta) == 0 {
		return
	}
	var mean float64
	for _, v := range eta {
		mean += v
	}
	mean /= float64(len(eta))
	for i := range eta {
		eta[i] -= mean
	}
	for j := range tau {
		tau[j] -= mean
	}
}

// WithoutIndex returns eta with entry i removed, recentred to satisfy the
// sum-to-zero constraint on the remaining persons. This is the LOOCV
// warm-start vector.
func WithoutIndex(eta []float64, i int) []float64 {
	rest := make([]float64, 0, len(eta)-1)
	rest = append(rest, eta[:i]...)
	rest = append(rest, eta[i+1:]...)
	return Recenter(rest)
}
