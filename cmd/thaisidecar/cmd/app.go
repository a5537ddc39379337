package cmd

import (
	"fmt"

	"github.com/thai-tokenizer/sidecar/internal/batch"
	"github.com/thai-tokenizer/sidecar/internal/config"
	"github.com/thai-tokenizer/sidecar/internal/document"
	"github.com/thai-tokenizer/sidecar/internal/enhance"
	sidecarerrors "github.com/thai-tokenizer/sidecar/internal/errors"
	"github.com/thai-tokenizer/sidecar/internal/query"
	"github.com/thai-tokenizer/sidecar/internal/searchengine"
	"github.com/thai-tokenizer/sidecar/internal/segment"
	"github.com/thai-tokenizer/sidecar/internal/store"
)

// app bundles every pipeline component the CLI's subcommands wire
// together, built once from resolved configuration.
type app struct {
	cfg          *config.Config
	engines      *segment.Engines
	documentProc *document.Processor
	batchEngine  *batch.Engine
	queryProc    *query.Processor
	enhancer     *enhance.Enhancer
	searchClient *searchengine.Client
	store        *store.Store
}

func buildApp(cfg *config.Config) (*app, error) {
	engines, err := segment.BuildFromConfig(cfg.Segmenter)
	if err != nil {
		return nil, fmt.Errorf("build segmenter: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	documentProc := document.NewProcessor(engines.Segmenter, engines.ByName)

	searchClient := searchengine.NewClient(searchengine.Config{
		BaseURL:                  cfg.SearchEngine.BaseURL,
		APIKey:                   cfg.SearchEngine.APIKey,
		Index:                    cfg.SearchEngine.Index,
		Timeout:                  cfg.SearchEngine.Timeout,
		CircuitBreakerThreshold:  cfg.SearchEngine.CircuitBreakerThreshold,
		CircuitBreakerResetAfter: cfg.SearchEngine.CircuitBreakerResetAfter,
	})

	batchEngine := batch.NewEngine(documentProc, searchengine.NewDocumentAdder(searchClient))
	queryProc := query.NewProcessor(engines.Segmenter, cfg.Query.CacheSize)
	enhancer := enhance.NewEnhancer(engines.Segmenter)

	return &app{
		cfg:          cfg,
		engines:      engines,
		documentProc: documentProc,
		batchEngine:  batchEngine,
		queryProc:    queryProc,
		enhancer:     enhancer,
		searchClient: searchClient,
		store:        st,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) batchOptions() batch.Options {
	return batch.Options{
		MaxConcurrent: a.cfg.Batch.MaxConcurrent,
		ChunkSize:     a.cfg.Batch.ChunkSize,
		Retry: sidecarerrors.RetryConfig{
			MaxRetries:   a.cfg.Batch.RetryMaxAttempts,
			InitialDelay: a.cfg.Batch.RetryInitialDelay,
			Multiplier:   a.cfg.Batch.RetryMultiplier,
		},
		DocumentOptions: document.Options{
			HandleCompounds: true,
		},
	}
}
