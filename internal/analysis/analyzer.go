package analysis

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

// DefaultBatchConcurrency bounds concurrent articles in a batch
const DefaultBatchConcurrency = 4

// Batch error messages
const (
	ErrMsgEmptyContent = "Empty content"
	ErrMsgCancelled    = "analysis cancelled"
	UnknownID          = "unknown"
)

// Recorder is told about every finished analysis
type Recorder interface {
	RecordAnalysis(result types.AnalysisResult)
}

// Options configure an Analyzer
type Options struct {
	// TransformerAvailable is decided once at startup
	TransformerAvailable bool
	BatchConcurrency     int
	Recorders            []Recorder
}

// Analyzer turns article text into a trust verdict
type Analyzer struct {
	ensemble             *Ensemble
	transformerAvailable bool
	batchConcurrency     int
	recorders            []Recorder
}

// NewAnalyzer creates an analyzer over an ensemble
func NewAnalyzer(ensemble *Ensemble, opts Options) *Analyzer {
	if opts.BatchConcurrency < 1 {
		opts.BatchConcurrency = DefaultBatchConcurrency
	}
	return &Analyzer{
		ensemble:             ensemble,
		transformerAvailable: opts.TransformerAvailable,
		batchConcurrency:     opts.BatchConcurrency,
		recorders:            opts.Recorders,
	}
}

// ModelsLoaded returns the number of active adapters
func (a *Analyzer) ModelsLoaded() int {
	return a.ensemble.Size()
}

// ModelNames returns the active adapter names
func (a *Analyzer) ModelNames() []string {
	return a.ensemble.ModelNames()
}

// TransformerAvailable reports whether the transformer takes part in analyses
func (a *Analyzer) TransformerAvailable() bool {
	return a.transformerAvailable
}

// Analyze scores one article. Blank content is a validation error; model
// failures are not errors, they only shrink the result set.
func (a *Analyzer) Analyze(ctx context.Context, article string) (types.AnalysisResult, error) {
	if strings.TrimSpace(article) == "" {
		return types.AnalysisResult{}, errors.NewValidationError("Article content cannot be empty")
	}

	results := a.ensemble.Run(ctx, article)

	// a verdict built from adapters that were all cut short is not a verdict
	if err := ctx.Err(); err != nil {
		return types.AnalysisResult{}, errors.NewTimeoutError(ErrMsgCancelled, err)
	}

	outcome := Score(results)
	result := types.AnalysisResult{
		TrustScore:           outcome.TrustScore,
		Consensus:            outcome.Label,
		Results:              results,
		AutoPublish:          ShouldAutoPublish(outcome.TrustScore),
		TotalModels:          results.Len(),
		TransformerAvailable: a.transformerAvailable,
	}

	for _, r := range a.recorders {
		r.RecordAnalysis(result)
	}

	return result, nil
}

// AnalyzeBatch scores every item independently. The output has exactly one
// entry per input item, in input order.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, items []types.BatchItem) types.BatchResult {
	entries := make([]types.BatchEntry, len(items))

	g := new(errgroup.Group)
	g.SetLimit(a.batchConcurrency)

	for i, item := range items {
		if ctx.Err() != nil {
			entries[i] = errorEntry(item.ID, ErrMsgCancelled)
			continue
		}
		g.Go(func() error {
			entries[i] = a.analyzeItem(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return types.BatchResult{
		Results:   entries,
		Total:     len(items),
		Processed: len(entries),
	}
}

func (a *Analyzer) analyzeItem(ctx context.Context, item types.BatchItem) types.BatchEntry {
	if item.Invalid != "" {
		return errorEntry(item.ID, item.Invalid)
	}
	if item.Content == "" {
		return errorEntry(item.ID, ErrMsgEmptyContent)
	}
	if ctx.Err() != nil {
		return errorEntry(item.ID, ErrMsgCancelled)
	}

	result, err := a.Analyze(ctx, item.Content)
	if err != nil {
		return errorEntry(item.ID, errors.ToAppError(err).Message())
	}

	score := result.TrustScore
	publish := result.AutoPublish
	return types.BatchEntry{
		ID:          batchID(item.ID),
		TrustScore:  &score,
		Consensus:   result.Consensus,
		AutoPublish: &publish,
	}
}

func errorEntry(id interface{}, msg string) types.BatchEntry {
	return types.BatchEntry{ID: batchID(id), Error: msg}
}

func batchID(id interface{}) interface{} {
	if id == nil {
		return UnknownID
	}
	return id
}
