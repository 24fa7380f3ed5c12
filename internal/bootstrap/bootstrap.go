package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/orbis-trust/internal/adapters"
	"github.com/ZanzyTHEbar/orbis-trust/internal/analysis"
	"github.com/ZanzyTHEbar/orbis-trust/internal/config"
	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/models"
	"github.com/ZanzyTHEbar/orbis-trust/internal/monitoring"
	"github.com/ZanzyTHEbar/orbis-trust/internal/resilience"
)

const probeTimeout = 10 * time.Second

// Member is one ensemble adapter plus its optional health hooks
type Member struct {
	Adapter     adapters.Adapter
	HealthCheck resilience.HealthCheckFunc
	Pool        *resilience.ConnectionPool
}

// Runtime is everything the server and CLI need to analyze articles
type Runtime struct {
	Config               *config.Config
	Analyzer             *analysis.Analyzer
	Metrics              *monitoring.Metrics
	Logger               *monitoring.Logger
	Health               *resilience.DegradationManager
	Device               string
	TransformerAvailable bool

	store *models.Store
}

// Build loads the model manifest, probes the transformer and assembles the analyzer
func Build(ctx context.Context, cfg *config.Config, logger *monitoring.Logger) (*Runtime, error) {
	manifest, err := config.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}

	store, err := models.Load(manifest, models.LoadOptions{
		TransformerURL:     cfg.TransformerURL,
		TransformerTimeout: cfg.TransformerTimeout,
	})
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(store.Classifiers)+1)
	for _, c := range store.Classifiers {
		members = append(members, Member{Adapter: adapters.NewClassicalAdapter(c.Name, store.Vectorizer, c.Classifier)})
	}

	device := cfg.Device
	available := false
	if t := store.Transformer; t != nil {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		health, err := t.Client.Probe(probeCtx)
		cancel()

		if err != nil {
			logger.Warn("Transformer unavailable, continuing with classical models only",
				"model", t.Name, "error", err)
		} else {
			available = true
			if health.Device != "" {
				device = health.Device
			}
			members = append(members, Member{
				Adapter:     adapters.NewTransformerAdapter(t.Name, t.Client, t.MaxLength),
				HealthCheck: t.Client.HealthCheck,
				Pool:        t.Client.Pool(),
			})
			logger.Info("Transformer available", "model", t.Name, "device", device)
		}
	}

	rt, err := Assemble(cfg, logger, members, device, available)
	if err != nil {
		errors.SafeClose(store, "model store")
		return nil, err
	}
	rt.store = store
	return rt, nil
}

// Assemble wires metrics, model health and the analyzer around a fixed adapter list
func Assemble(cfg *config.Config, logger *monitoring.Logger, members []Member, device string, transformerAvailable bool) (*Runtime, error) {
	metrics := monitoring.NewMetrics()
	health := resilience.NewDegradationManager(resilience.DefaultDegradationConfig())

	list := make([]adapters.Adapter, len(members))
	for i, m := range members {
		list[i] = m.Adapter
		health.RegisterModel(m.Adapter.Name(), m.Adapter.Kind(), m.HealthCheck, m.Pool)
	}

	ensemble, err := analysis.NewEnsemble(list, analysis.Timeouts{
		Classical:   cfg.ClassicalTimeout,
		Transformer: cfg.TransformerTimeout,
	}, metrics, health, logger)
	if err != nil {
		return nil, err
	}

	analyzer := analysis.NewAnalyzer(ensemble, analysis.Options{
		TransformerAvailable: transformerAvailable,
		BatchConcurrency:     cfg.BatchConcurrency,
		Recorders:            []analysis.Recorder{metrics},
	})

	logger.Info("Ensemble ready",
		"models", ensemble.ModelNames(),
		"transformer_available", transformerAvailable,
		"device", device)

	return &Runtime{
		Config:               cfg,
		Analyzer:             analyzer,
		Metrics:              metrics,
		Logger:               logger,
		Health:               health,
		Device:               device,
		TransformerAvailable: transformerAvailable,
	}, nil
}

// Close releases model store resources
func (r *Runtime) Close() error {
	r.Health.GracefulShutdown()
	if r.store != nil {
		return r.store.Close()
	}
	slog.Debug("Runtime closed without a model store")
	return nil
}
