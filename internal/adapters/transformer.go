package adapters

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

// DefaultMaxLength is the token window of the sequence classifier
const DefaultMaxLength = 512

// TransformerAdapter wraps a sequence-classification model. Its input is raw text.
type TransformerAdapter struct {
	name      string
	client    SequenceClassifier
	maxLength int
}

// NewTransformerAdapter creates an adapter over a sequence classifier
func NewTransformerAdapter(name string, client SequenceClassifier, maxLength int) *TransformerAdapter {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &TransformerAdapter{
		name:      name,
		client:    client,
		maxLength: maxLength,
	}
}

func (a *TransformerAdapter) Name() string { return a.name }

func (a *TransformerAdapter) Kind() types.ModelKind { return types.KindTransformer }

// MaxLength returns the token window passed to the model
func (a *TransformerAdapter) MaxLength() int { return a.maxLength }

// Predict runs the transformer over raw text and applies softmax to its two logits
func (a *TransformerAdapter) Predict(ctx context.Context, raw string) (types.Prediction, error) {
	logits, err := a.client.Logits(ctx, truncateWords(raw, a.maxLength), a.maxLength)
	if err != nil {
		return types.Prediction{}, errors.NewPredictionError(a.name, err)
	}

	if len(logits) != 2 {
		return types.Prediction{}, errors.NewPredictionError(a.name, fmt.Errorf("expected 2 logits, got %d", len(logits)))
	}
	for _, l := range logits {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return types.Prediction{}, errors.NewPredictionError(a.name, fmt.Errorf("non-finite logit %v", l))
		}
	}

	prediction, err := predictionFromProbabilities(softmax(logits))
	if err != nil {
		return types.Prediction{}, errors.NewPredictionError(a.name, err)
	}

	return prediction, nil
}

// truncateWords keeps at most n whitespace-separated words. Subword tokenizers
// never produce fewer tokens than words, so the model's first n tokens always
// fall inside the kept prefix.
func truncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
