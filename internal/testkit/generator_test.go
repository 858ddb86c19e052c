package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSpec() Spec {
	return Spec{
		Seed:          3,
		NAuthentic:    10,
		NNonAuthentic: 2,
		Items:         MixedItems(2, 2, 5),
		Tau:           []float64{-0.5, 0.5, -0.2, 0.6},
		Beta1:         []float64{0, 0, 0.3, 0.3},
		Delta:         0.7,
		MissingRate:   0.1,
		AberrantRate:  0.5,
	}
}

func TestGenerate_SameSeedIsDeterministic(t *testing.T) {
	a, err := Generate(baseSpec())
	require.NoError(t, err)
	b, err := Generate(baseSpec())
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	spec := baseSpec()
	spec.Seed = 4
	c, err := Generate(spec)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestGenerate_RespectsRosterAndScale(t *testing.T) {
	m, err := Generate(baseSpec())
	require.NoError(t, err)

	assert.Equal(t, 12, m.NParticipants())
	assert.Len(t, m.AuthenticIndex(), 10)
	assert.Len(t, m.NonAuthenticIndex(), 2)

	for i := range m.Participants {
		for j, item := range m.Items {
			code, observed := m.Response(i, j)
			if !observed {
				continue
			}
			assert.GreaterOrEqual(t, code, 0)
			assert.Less(t, code, item.Categories)
		}
	}
}

func TestGenerate_RejectsParameterLengthMismatch(t *testing.T) {
	spec := baseSpec()
	spec.Tau = spec.Tau[:2]
	_, err := Generate(spec)
	assert.Error(t, err)
}
