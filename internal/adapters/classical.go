package adapters

import (
	"context"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

// ClassicalAdapter wraps a vectorized classifier. Its input is normalized text.
type ClassicalAdapter struct {
	name       string
	vectorizer Vectorizer
	classifier Classifier
}

// NewClassicalAdapter creates an adapter over a fitted classifier and the shared vectorizer
func NewClassicalAdapter(name string, vectorizer Vectorizer, classifier Classifier) *ClassicalAdapter {
	return &ClassicalAdapter{
		name:       name,
		vectorizer: vectorizer,
		classifier: classifier,
	}
}

func (a *ClassicalAdapter) Name() string { return a.name }

func (a *ClassicalAdapter) Kind() types.ModelKind { return types.KindClassical }

// Predict vectorizes the normalized text and takes the most probable class
func (a *ClassicalAdapter) Predict(ctx context.Context, normalized string) (types.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return types.Prediction{}, errors.NewPredictionError(a.name, err)
	}

	features, err := a.vectorizer.Transform(normalized)
	if err != nil {
		return types.Prediction{}, errors.NewPredictionError(a.name, errors.WrapError(err, "vectorize"))
	}

	probs, err := a.classifier.PredictProba(features)
	if err != nil {
		return types.Prediction{}, errors.NewPredictionError(a.name, errors.WrapError(err, "predict_proba"))
	}

	prediction, err := predictionFromProbabilities(probs)
	if err != nil {
		return types.Prediction{}, errors.NewPredictionError(a.name, err)
	}

	return prediction, nil
}
