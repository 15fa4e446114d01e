package main

import (
	"fmt"
	"strings"

	"github.com/craftlore/ragcheck/internal/batch"
	"github.com/craftlore/ragcheck/internal/config"
	"github.com/craftlore/ragcheck/internal/embed"
	"github.com/craftlore/ragcheck/internal/judge"
	"github.com/craftlore/ragcheck/internal/llm"
	"github.com/craftlore/ragcheck/internal/metrics"
	"github.com/craftlore/ragcheck/internal/rag"
)

var defaultProviderFromConfig = llm.DefaultProviderFromConfig

func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing config (internal error)")
	}
	if strings.TrimSpace(cfg.Embedding.APIKey) == "" && strings.TrimSpace(cfg.Embedding.BaseURL) == "" {
		return nil, fmt.Errorf("no embedding api key configured (set embedding.api_key or OPENAI_API_KEY)")
	}
	return embed.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model), nil
}

func newRetriever(cfg *config.Config, embedder embed.Embedder) (rag.Retriever, error) {
	return rag.NewChromaRetriever(cfg.Retrieval.VectorStoreURL, embedder,
		rag.WithCollection(cfg.Retrieval.Collection))
}

// newCollaboratorFactory builds the per-worker collaborator factory used by
// batch runs. Every call constructs fresh clients so workers share nothing.
func newCollaboratorFactory(cfg *config.Config, evalType batch.Type) batch.Factory {
	return func() (*batch.Collaborators, error) {
		embedder, err := newEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		retriever, err := newRetriever(cfg, embedder)
		if err != nil {
			return nil, err
		}

		provider, err := defaultProviderFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		j := judge.New(provider)
		if cfg.Evaluation.JudgeTimeout > 0 {
			j.Timeout = cfg.Evaluation.JudgeTimeout
		}

		collabs := &batch.Collaborators{
			Retriever: retriever,
			Scorer:    metrics.NewScorer(embedder),
			Judge:     j,
		}
		if evalType == batch.TypeFaithfulness {
			gen, err := rag.NewWikiGenerator(provider)
			if err != nil {
				return nil, err
			}
			collabs.Generator = gen
		}
		return collabs, nil
	}
}
