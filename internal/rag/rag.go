// Package rag provides the retrieval and generation collaborators the
// evaluation harness exercises: a vector-store retriever and an LLM-backed
// answer generator.
package rag

import "context"

// Result holds the retrieved chunks with their source links, index-aligned.
type Result struct {
	Chunks  []string
	Sources []string
}

// Retriever fetches the most relevant knowledge-base chunks for a query.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) (Result, error)
}

// Generator produces an answer grounded in retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, query string, chunks, sources []string) (string, error)
}
