package adapters

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	apperrors "github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVectorizer struct {
	vec SparseVector
	err error
	got string
}

func (s *stubVectorizer) Transform(text string) (SparseVector, error) {
	s.got = text
	return s.vec, s.err
}

func (s *stubVectorizer) Features() int { return len(s.vec) }

type stubClassifier struct {
	probs []float64
	err   error
}

func (s stubClassifier) PredictProba(SparseVector) ([]float64, error) {
	return s.probs, s.err
}

type stubSequenceClassifier struct {
	logits    []float64
	err       error
	text      string
	maxLength int
}

func (s *stubSequenceClassifier) Logits(_ context.Context, text string, maxLength int) ([]float64, error) {
	s.text = text
	s.maxLength = maxLength
	return s.logits, s.err
}

func TestClassicalAdapter_Predict(t *testing.T) {
	tests := []struct {
		name       string
		probs      []float64
		classErr   error
		vecErr     error
		expected   types.Prediction
		expectFail bool
	}{
		{
			name:     "fake when class 1 wins",
			probs:    []float64{0.1234, 0.8766},
			expected: types.Prediction{Label: types.LabelFake, Confidence: 87.66},
		},
		{
			name:     "real when class 0 wins",
			probs:    []float64{0.9, 0.1},
			expected: types.Prediction{Label: types.LabelReal, Confidence: 90},
		},
		{
			name:     "tie picks the first class",
			probs:    []float64{0.5, 0.5},
			expected: types.Prediction{Label: types.LabelReal, Confidence: 50},
		},
		{
			name:       "classifier failure",
			classErr:   errors.New("shape mismatch"),
			expectFail: true,
		},
		{
			name:       "vectorizer failure",
			vecErr:     errors.New("unknown vocabulary"),
			expectFail: true,
		},
		{
			name:       "wrong number of classes",
			probs:      []float64{0.2, 0.3, 0.5},
			expectFail: true,
		},
		{
			name:       "nan probability",
			probs:      []float64{math.NaN(), 0.5},
			expectFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec := &stubVectorizer{vec: SparseVector{0: 1}, err: tt.vecErr}
			adapter := NewClassicalAdapter("XGBoost", vec, stubClassifier{probs: tt.probs, err: tt.classErr})

			assert.Equal(t, "XGBoost", adapter.Name())
			assert.Equal(t, types.KindClassical, adapter.Kind())

			prediction, err := adapter.Predict(context.Background(), "cat jump")
			if tt.expectFail {
				require.Error(t, err)
				assert.True(t, apperrors.IsPrediction(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, prediction)
			assert.Equal(t, "cat jump", vec.got)
		})
	}
}

func TestClassicalAdapter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := NewClassicalAdapter("LightGBM", &stubVectorizer{}, stubClassifier{probs: []float64{1, 0}})
	_, err := adapter.Predict(ctx, "text")
	require.Error(t, err)
	assert.True(t, apperrors.IsPrediction(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransformerAdapter_Predict(t *testing.T) {
	tests := []struct {
		name       string
		logits     []float64
		clientErr  error
		expected   types.Prediction
		expectFail bool
	}{
		{
			name:     "fake when logit 1 dominates",
			logits:   []float64{-1.2, 2.3},
			expected: types.Prediction{Label: types.LabelFake, Confidence: 97.07},
		},
		{
			name:     "real when logit 0 dominates",
			logits:   []float64{3, 0},
			expected: types.Prediction{Label: types.LabelReal, Confidence: 95.26},
		},
		{
			name:     "equal logits",
			logits:   []float64{0.7, 0.7},
			expected: types.Prediction{Label: types.LabelReal, Confidence: 50},
		},
		{
			name:     "large logits do not overflow",
			logits:   []float64{1000, 1010},
			expected: types.Prediction{Label: types.LabelFake, Confidence: 100},
		},
		{
			name:       "client error",
			clientErr:  errors.New("connection refused"),
			expectFail: true,
		},
		{
			name:       "wrong arity",
			logits:     []float64{0.1},
			expectFail: true,
		},
		{
			name:       "infinite logit",
			logits:     []float64{math.Inf(1), 0},
			expectFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubSequenceClassifier{logits: tt.logits, err: tt.clientErr}
			adapter := NewTransformerAdapter("BERT", client, 0)

			assert.Equal(t, types.KindTransformer, adapter.Kind())
			assert.Equal(t, DefaultMaxLength, adapter.MaxLength())

			prediction, err := adapter.Predict(context.Background(), "Raw Article TEXT, untouched!")
			if tt.expectFail {
				require.Error(t, err)
				assert.True(t, apperrors.IsPrediction(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, prediction)
			assert.Equal(t, "Raw Article TEXT, untouched!", client.text)
			assert.Equal(t, DefaultMaxLength, client.maxLength)
		})
	}
}

func TestTruncateWords(t *testing.T) {
	long := strings.Repeat("word ", 600)

	truncated := truncateWords(long, 512)
	assert.Len(t, strings.Fields(truncated), 512)

	short := "keep  this\tspacing"
	assert.Equal(t, short, truncateWords(short, 512))
}

func TestSoftmax(t *testing.T) {
	probs := softmax([]float64{1, 2, 3})
	require.Len(t, probs, 3)

	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Less(t, probs[0], probs[1])
	assert.Less(t, probs[1], probs[2])
	assert.Nil(t, softmax(nil))
}

func TestRoundConfidence(t *testing.T) {
	assert.Equal(t, 87.66, roundConfidence(87.6649))
	assert.Equal(t, 100.0, roundConfidence(100.0000001))
	assert.Equal(t, 0.0, roundConfidence(-3))
}
