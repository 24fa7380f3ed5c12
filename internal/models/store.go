package models

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/orbis-trust/internal/adapters"
	"github.com/ZanzyTHEbar/orbis-trust/internal/config"
	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
)

// LoadOptions override manifest settings from the environment
type LoadOptions struct {
	TransformerURL     string
	TransformerTimeout time.Duration
}

// NamedClassifier is a fitted classical model with its ensemble name
type NamedClassifier struct {
	Name       string
	Kind       string
	Classifier adapters.Classifier
}

// TransformerModel is the configured transformer and its inference client
type TransformerModel struct {
	Name      string
	MaxLength int
	Client    *InferenceClient
}

// Store holds every model artifact loaded at startup. It is read-only afterwards.
type Store struct {
	Vectorizer  *TFIDFVectorizer
	Classifiers []NamedClassifier
	Transformer *TransformerModel
}

type widthed interface {
	Features() int
}

// Load reads the vectorizer and every classifier named in the manifest. Any
// classical load failure is a configuration error. The transformer is only
// wired up here; whether it is reachable is decided by the caller.
func Load(m *config.Manifest, opts LoadOptions) (*Store, error) {
	vectorizer, err := LoadTFIDFVectorizer(m.Resolve(m.Vectorizer.Path))
	if err != nil {
		return nil, errors.NewConfigurationError("failed to load vectorizer", err)
	}

	store := &Store{Vectorizer: vectorizer}

	for _, entry := range m.Classifiers {
		classifier, err := loadClassifier(m.Resolve(entry.Path), entry.Kind)
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("failed to load classifier %s", entry.Name), err)
		}

		if w, ok := classifier.(widthed); ok && w.Features() > 0 && w.Features() != vectorizer.Features() {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("classifier %s expects %d features, vectorizer produces %d", entry.Name, w.Features(), vectorizer.Features()), nil)
		}

		store.Classifiers = append(store.Classifiers, NamedClassifier{Name: entry.Name, Kind: entry.Kind, Classifier: classifier})
		slog.Info("Loaded classifier", "model", entry.Name, "kind", entry.Kind)
	}

	if t := m.Transformer; t != nil {
		endpoint := t.Endpoint
		if opts.TransformerURL != "" {
			endpoint = opts.TransformerURL
		}
		if endpoint == "" {
			slog.Warn("Transformer configured without an endpoint, skipping", "model", t.Name)
			return store, nil
		}

		store.Transformer = &TransformerModel{
			Name:      t.Name,
			MaxLength: t.MaxLength,
			Client: NewInferenceClient(InferenceClientConfig{
				Endpoint:          endpoint,
				Timeout:           opts.TransformerTimeout,
				RequestsPerSecond: t.RequestsPerSecond,
			}),
		}
	}

	return store, nil
}

func loadClassifier(path, kind string) (adapters.Classifier, error) {
	switch kind {
	case config.KindLogistic:
		return LoadLogisticModel(path)
	case config.KindRandomForest:
		return LoadTreeEnsemble(path, AggregateMeanProba)
	case config.KindGradientBoosting:
		return LoadTreeEnsemble(path, AggregateLogitSum)
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", kind)
	}
}

// Close releases the transformer client's connections
func (s *Store) Close() error {
	if s.Transformer != nil {
		return s.Transformer.Client.Close()
	}
	return nil
}
