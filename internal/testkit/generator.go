// Package testkit generates seeded synthetic response matrices with
// known generating parameters, for estimator and pipeline tests.
package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"authscreen/domain/survey"
)

// Spec describes one synthetic dataset. Tau and Beta1 must have one entry
// per item in Items; Delta is the shared threshold spacing. Non-authentic
// participants respond uniformly at random with probability AberrantRate
// and model-consistently otherwise, which gives them systematically worse
// out-of-sample fit without making every response pure noise.
type Spec struct {
	Seed          int64
	NAuthentic    int
	NNonAuthentic int
	Items         []survey.Item
	Tau           []float64
	Beta1         []float64
	Delta         float64
	MissingRate   float64
	AberrantRate  float64
}

// LikertItems builds n polytomous items with k categories each
func LikertItems(n, k int) []survey.Item {
	items := make([]survey.Item, n)
	for j := range items {
		items[j] = survey.Item{
			ID:         fmt.Sprintf("q%02d", j+1),
			Type:       survey.ClassifyItem(k),
			Categories: k,
		}
	}
	return items
}

// MixedItems builds nBinary two-category items followed by nPoly items
// with k categories.
func MixedItems(nBinary, nPoly, k int) []survey.Item {
	items := LikertItems(nBinary+nPoly, k)
	for j := 0; j < nBinary; j++ {
		items[j].Type = survey.ItemBinary
		items[j].Categories = 2
	}
	return items
}

// Generate draws a response matrix under the graded-response model with
// the spec's parameters. The same seed always yields the same matrix.
func Generate(spec Spec) (*survey.ResponseMatrix, error) {
	if len(spec.Tau) != len(spec.Items) || len(spec.Beta1) != len(spec.Items) {
		return nil, fmt.Errorf("testkit: %d items but %d tau / %d beta1 entries",
			len(spec.Items), len(spec.Tau), len(spec.Beta1))
	}
	rng := rand.New(rand.NewSource(spec.Seed))

	total := spec.NAuthentic + spec.NNonAuthentic
	participants := make([]survey.Participant, 0, total)
	for i := 0; i < total; i++ {
		authentic := i < spec.NAuthentic
		eta := rng.NormFloat64()
		x := rng.NormFloat64()

		responses := make(map[string]int, len(spec.Items))
		for j, item := range spec.Items {
			if spec.MissingRate > 0 && rng.Float64() < spec.MissingRate {
				continue
			}
			var code int
			if !authentic && rng.Float64() < spec.AberrantRate {
				code = rng.Intn(item.Categories)
			} else {
				code = drawGraded(rng, eta+spec.Beta1[j]*x-spec.Tau[j], spec.Delta, item.Categories)
			}
			responses[item.ID] = code
		}

		prefix := "auth"
		if !authentic {
			prefix = "flag"
		}
		participants = append(participants, survey.Participant{
			ID:        fmt.Sprintf("%s-%03d", prefix, i),
			Authentic: authentic,
			Covariate: x,
			Responses: responses,
		})
	}

	return survey.NewResponseMatrix(spec.Items, participants)
}

// drawGraded samples one ordinal code from the cumulative-logit model:
// P(Y >= k) = sigmoid(z - (k-1)*delta) for k = 1..K-1.
func drawGraded(rng *rand.Rand, z, delta float64, k int) int {
	u := rng.Float64()
	code := 0
	for c := 1; c < k; c++ {
		s := 1.0 / (1.0 + math.Exp(-(z - float64(c-1)*delta)))
		if u < s {
			code = c
		} else {
			break
		}
	}
	return code
}
