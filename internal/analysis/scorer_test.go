package analysis

import (
	"testing"

	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classical(name string, label types.Label, confidence float64) types.ModelResult {
	return types.ModelResult{Model: name, Kind: types.KindClassical, Label: label, Confidence: confidence}
}

func transformer(name string, label types.Label, confidence float64) types.ModelResult {
	return types.ModelResult{Model: name, Kind: types.KindTransformer, Label: label, Confidence: confidence}
}

func resultSet(t *testing.T, results ...types.ModelResult) types.ResultSet {
	t.Helper()
	rs := types.NewResultSet()
	for _, r := range results {
		require.True(t, rs.Add(r), "duplicate model %s", r.Model)
	}
	return rs
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		results  []types.ModelResult
		expected types.ConsensusOutcome
	}{
		{
			name:     "empty set is neutral",
			results:  nil,
			expected: types.ConsensusOutcome{Label: types.LabelReal, TrustScore: 50},
		},
		{
			name: "unanimous real uses mean confidence",
			results: []types.ModelResult{
				classical("XGBoost", types.LabelReal, 90),
				classical("Random Forest", types.LabelReal, 80),
			},
			expected: types.ConsensusOutcome{Label: types.LabelReal, TrustScore: 85},
		},
		{
			name: "unanimous fake inverts mean confidence",
			results: []types.ModelResult{
				classical("XGBoost", types.LabelFake, 90),
				classical("Random Forest", types.LabelFake, 70),
			},
			expected: types.ConsensusOutcome{Label: types.LabelFake, TrustScore: 20},
		},
		{
			name: "transformer tie resolves to real",
			// votes: FAKE 2 (transformer) vs REAL 2; weighted mean (60+60+90+90)/4 = 75
			results: []types.ModelResult{
				classical("XGBoost", types.LabelReal, 60),
				classical("LightGBM", types.LabelReal, 60),
				transformer("BERT", types.LabelFake, 90),
			},
			expected: types.ConsensusOutcome{Label: types.LabelReal, TrustScore: 75},
		},
		{
			name: "transformer plus one classical flips to fake",
			// votes: FAKE 3 vs REAL 2; weighted mean (60+60+80+90+90)/5 = 76
			results: []types.ModelResult{
				classical("XGBoost", types.LabelReal, 60),
				classical("LightGBM", types.LabelReal, 60),
				classical("Logistic Regression", types.LabelFake, 80),
				transformer("BERT", types.LabelFake, 90),
			},
			expected: types.ConsensusOutcome{Label: types.LabelFake, TrustScore: 24},
		},
		{
			name: "exact half fake votes is real",
			results: []types.ModelResult{
				classical("XGBoost", types.LabelFake, 70),
				classical("Random Forest", types.LabelReal, 70),
			},
			expected: types.ConsensusOutcome{Label: types.LabelReal, TrustScore: 70},
		},
		{
			name: "transformer alone",
			results: []types.ModelResult{
				transformer("BERT", types.LabelReal, 97.25),
			},
			expected: types.ConsensusOutcome{Label: types.LabelReal, TrustScore: 97},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := resultSet(t, tt.results...)
			assert.Equal(t, tt.expected, Score(rs))
		})
	}
}

func TestScore_Idempotent(t *testing.T) {
	rs := resultSet(t,
		classical("XGBoost", types.LabelFake, 66.6),
		classical("Random Forest", types.LabelReal, 51.2),
		transformer("BERT", types.LabelFake, 88.8),
	)

	first := Score(rs)
	second := Score(rs)
	assert.Equal(t, first, second)
}

func TestTrustScore_Clamp(t *testing.T) {
	tests := []struct {
		name      string
		consensus types.Label
		weighted  float64
		expected  int
	}{
		{"real above range clamps to 100", types.LabelReal, 150, 100},
		{"real below range clamps to 0", types.LabelReal, -10, 0},
		{"fake above range clamps to 0", types.LabelFake, 150, 0},
		{"fake below range clamps to 100", types.LabelFake, -10, 100},
		{"real in range", types.LabelReal, 42.2, 42},
		{"fake in range", types.LabelFake, 42.2, 58},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := TrustScore(tt.consensus, tt.weighted)
			assert.Equal(t, tt.expected, score)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		})
	}
}

func TestConsensusLabel_StrictMajority(t *testing.T) {
	for total := 0; total <= 8; total++ {
		for fake := 0; fake <= total; fake++ {
			label := consensusLabel(tally{fake: fake, total: total})
			if float64(fake) <= float64(total)/2 {
				assert.Equal(t, types.LabelReal, label, "fake=%d total=%d", fake, total)
			} else {
				assert.Equal(t, types.LabelFake, label, "fake=%d total=%d", fake, total)
			}
		}
	}
}

func TestWeightedConfidence(t *testing.T) {
	assert.Equal(t, 50.0, WeightedConfidence(types.NewResultSet()))

	rs := resultSet(t,
		classical("XGBoost", types.LabelReal, 60),
		transformer("BERT", types.LabelReal, 90),
	)
	assert.InDelta(t, 80.0, WeightedConfidence(rs), 1e-9)
	assert.Equal(t, []float64{60, 90, 90}, weightedConfidences(rs))
}

func TestShouldAutoPublish(t *testing.T) {
	tests := []struct {
		score    int
		expected bool
	}{
		{0, false},
		{79, false},
		{80, true},
		{81, true},
		{100, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ShouldAutoPublish(tt.score), "score %d", tt.score)
	}
}
