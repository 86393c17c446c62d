package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopExpression(t *testing.T) {
	d := Detection{Expressions: map[string]float64{
		"sad":       0.1,
		"happy":     0.7,
		"surprised": 0.2,
	}}

	label, p, ok := d.TopExpression()
	require.True(t, ok)
	assert.Equal(t, "happy", label)
	assert.InDelta(t, 0.7, p, 1e-9)
}

func TestTopExpressionTieUsesCanonicalOrder(t *testing.T) {
	d := Detection{Expressions: map[string]float64{
		"surprised": 0.4,
		"angry":     0.4,
		"sad":       0.2,
	}}

	for i := 0; i < 20; i++ {
		label, _, ok := d.TopExpression()
		require.True(t, ok)
		assert.Equal(t, "angry", label)
	}
}

func TestTopExpressionUnknownLabelsSortLast(t *testing.T) {
	d := Detection{Expressions: map[string]float64{
		"contempt": 0.5,
		"neutral":  0.5,
	}}

	label, _, _ := d.TopExpression()
	assert.Equal(t, "neutral", label)
	assert.Equal(t, []string{"neutral", "contempt"}, d.SortedExpressions())
}

func TestTopExpressionEmpty(t *testing.T) {
	_, _, ok := Detection{}.TopExpression()
	assert.False(t, ok)
}

func TestParseAnalysisType(t *testing.T) {
	for _, s := range []string{"face", "group", "crowd"} {
		got, err := ParseAnalysisType(s)
		require.NoError(t, err)
		assert.Equal(t, AnalysisType(s), got)
	}

	for _, s := range []string{"", "xyz", "Face", " face"} {
		_, err := ParseAnalysisType(s)
		assert.ErrorIs(t, err, ErrInvalidAnalysisType, s)
	}
}
