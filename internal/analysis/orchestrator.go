package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/orbis-trust/internal/adapters"
	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

// Default per-adapter deadlines
const (
	DefaultClassicalTimeout   = 5 * time.Second
	DefaultTransformerTimeout = 30 * time.Second
)

// Observer is told about every adapter invocation
type Observer interface {
	Observe(model string, kind types.ModelKind, duration time.Duration, err error)
}

// Timeouts bound a single adapter invocation by kind
type Timeouts struct {
	Classical   time.Duration
	Transformer time.Duration
}

func (t Timeouts) forKind(kind types.ModelKind) time.Duration {
	if kind == types.KindTransformer {
		if t.Transformer > 0 {
			return t.Transformer
		}
		return DefaultTransformerTimeout
	}
	if t.Classical > 0 {
		return t.Classical
	}
	return DefaultClassicalTimeout
}

// Outcome is the tagged result of one adapter invocation
type Outcome struct {
	Model      string
	Kind       types.ModelKind
	Prediction types.Prediction
	Err        error
	Duration   time.Duration
}

// Ensemble runs a fixed set of adapters over one article
type Ensemble struct {
	adapters  []adapters.Adapter
	timeouts  Timeouts
	observers []Observer
}

// NewEnsemble creates an ensemble. Adapter names must be unique.
func NewEnsemble(list []adapters.Adapter, timeouts Timeouts, observers ...Observer) (*Ensemble, error) {
	seen := make(map[string]bool, len(list))
	for _, a := range list {
		if seen[a.Name()] {
			return nil, errors.NewConfigurationError(fmt.Sprintf("duplicate model name %s", a.Name()), nil)
		}
		seen[a.Name()] = true
	}

	return &Ensemble{
		adapters:  append([]adapters.Adapter(nil), list...),
		timeouts:  timeouts,
		observers: observers,
	}, nil
}

// Size returns the number of adapters
func (e *Ensemble) Size() int {
	return len(e.adapters)
}

// ModelNames returns adapter names in ensemble order
func (e *Ensemble) ModelNames() []string {
	names := make([]string, len(e.adapters))
	for i, a := range e.adapters {
		names[i] = a.Name()
	}
	return names
}

// Run asks every adapter for a prediction and keeps the ones that succeeded.
// Classical adapters get the normalized text, the transformer gets it raw.
// Failures are logged and dropped; if all fail the set is empty.
func (e *Ensemble) Run(ctx context.Context, article string) types.ResultSet {
	normalized := Normalize(article)
	outcomes := make([]Outcome, len(e.adapters))

	var g errgroup.Group
	for i, adapter := range e.adapters {
		input := normalized
		if adapter.Kind() == types.KindTransformer {
			input = article
		}
		g.Go(func() error {
			outcomes[i] = e.invoke(ctx, adapter, input)
			return nil
		})
	}
	_ = g.Wait()

	results := types.NewResultSet()
	for _, o := range outcomes {
		for _, obs := range e.observers {
			obs.Observe(o.Model, o.Kind, o.Duration, o.Err)
		}

		if o.Err != nil {
			slog.Warn("Model excluded from ensemble", "model", o.Model, "error", o.Err)
			continue
		}

		results.Add(types.ModelResult{
			Model:      o.Model,
			Kind:       o.Kind,
			Label:      o.Prediction.Label,
			Confidence: o.Prediction.Confidence,
		})
	}

	return results
}

type predictReply struct {
	prediction types.Prediction
	err        error
}

// invoke runs one adapter under its deadline. A CPU-bound adapter that
// ignores its context is abandoned when the deadline passes.
func (e *Ensemble) invoke(ctx context.Context, adapter adapters.Adapter, input string) Outcome {
	outcome := Outcome{Model: adapter.Name(), Kind: adapter.Kind()}

	ctx, cancel := context.WithTimeout(ctx, e.timeouts.forKind(adapter.Kind()))
	defer cancel()

	start := time.Now()
	reply := make(chan predictReply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				reply <- predictReply{err: errors.NewPredictionError(adapter.Name(), fmt.Errorf("panic: %v", r))}
			}
		}()
		prediction, err := adapter.Predict(ctx, input)
		reply <- predictReply{prediction: prediction, err: err}
	}()

	select {
	case r := <-reply:
		outcome.Prediction, outcome.Err = r.prediction, r.err
	case <-ctx.Done():
		outcome.Err = errors.NewPredictionError(adapter.Name(), ctx.Err())
	}
	outcome.Duration = time.Since(start)

	return outcome
}
