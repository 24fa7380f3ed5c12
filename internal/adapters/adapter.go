package adapters

import (
	"context"
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

// Adapter gives every model, whatever its runtime, the same predict contract
type Adapter interface {
	Name() string
	Kind() types.ModelKind
	Predict(ctx context.Context, input string) (types.Prediction, error)
}

// SparseVector is a feature vector keyed by feature index; absent indices are zero
type SparseVector map[int]float64

// Vectorizer turns normalized text into a feature vector
type Vectorizer interface {
	Transform(text string) (SparseVector, error)
	Features() int
}

// Classifier produces class probabilities (index 0 = REAL, 1 = FAKE) for a feature vector
type Classifier interface {
	PredictProba(x SparseVector) ([]float64, error)
}

// SequenceClassifier returns the raw two-class logits of a transformer for raw text,
// truncated or padded to maxLength tokens
type SequenceClassifier interface {
	Logits(ctx context.Context, text string, maxLength int) ([]float64, error)
}

// predictionFromProbabilities takes the argmax as label and its probability as confidence
func predictionFromProbabilities(probs []float64) (types.Prediction, error) {
	if len(probs) != 2 {
		return types.Prediction{}, fmt.Errorf("expected 2 class probabilities, got %d", len(probs))
	}

	best := 0
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			return types.Prediction{}, fmt.Errorf("invalid probability %v for class %d", p, i)
		}
		if p > probs[best] {
			best = i
		}
	}

	return types.Prediction{
		Label:      types.LabelForClass(best),
		Confidence: roundConfidence(probs[best] * 100),
	}, nil
}

// softmax is computed relative to the max logit so large logits do not overflow
func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	out := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// roundConfidence clamps to [0,100] and keeps two decimals
func roundConfidence(c float64) float64 {
	if c < 0 {
		c = 0
	}
	if c > 100 {
		c = 100
	}
	return math.Round(c*100) / 100
}
