package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/craftlore/ragcheck/internal/embed"
)

const (
	defaultChromaBaseURL = "http://localhost:8000"
	defaultCollection    = "minecraft_wiki"
	defaultTopK          = 5
	unknownSource        = "Unknown Source"
)

// ChromaRetriever queries a Chroma-style vector-store REST endpoint. The
// query text is embedded locally through the Embedder and sent as a
// query-by-embedding request; chunk text and source links are read from the
// stored metadata.
type ChromaRetriever struct {
	baseURL    string
	collection string
	embedder   embed.Embedder
	httpClient *http.Client

	mu           sync.Mutex
	collectionID string
}

// ChromaOption configures a ChromaRetriever.
type ChromaOption func(*ChromaRetriever)

// WithChromaHTTPClient sets a custom HTTP client.
func WithChromaHTTPClient(c *http.Client) ChromaOption {
	return func(r *ChromaRetriever) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithCollection sets the collection name to query.
func WithCollection(name string) ChromaOption {
	return func(r *ChromaRetriever) {
		if name != "" {
			r.collection = name
		}
	}
}

// NewChromaRetriever creates a retriever against the vector store at
// baseURL. An empty baseURL falls back to the local default.
func NewChromaRetriever(baseURL string, embedder embed.Embedder, opts ...ChromaOption) (*ChromaRetriever, error) {
	if embedder == nil {
		return nil, errors.New("rag: nil embedder")
	}
	if baseURL == "" {
		baseURL = defaultChromaBaseURL
	}
	r := &ChromaRetriever{
		baseURL:    baseURL,
		collection: defaultCollection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float64 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type chromaQueryResponse struct {
	Metadatas [][]map[string]any `json:"metadatas"`
	Documents [][]string         `json:"documents"`
}

// Query embeds text and retrieves the topK most similar chunks. topK values
// below 1 fall back to 5.
func (r *ChromaRetriever) Query(ctx context.Context, text string, topK int) (Result, error) {
	if r == nil {
		return Result{}, errors.New("rag: nil retriever")
	}
	if ctx == nil {
		return Result{}, errors.New("rag: nil context")
	}
	if text == "" {
		return Result{}, errors.New("rag: empty query")
	}
	if topK < 1 {
		topK = defaultTopK
	}

	vec, err := embed.EmbedOne(ctx, r.embedder, text)
	if err != nil {
		return Result{}, fmt.Errorf("rag: embed query: %w", err)
	}

	id, err := r.resolveCollection(ctx)
	if err != nil {
		return Result{}, err
	}

	var resp chromaQueryResponse
	path := fmt.Sprintf("/api/v1/collections/%s/query", url.PathEscape(id))
	err = r.post(ctx, path, chromaQueryRequest{
		QueryEmbeddings: [][]float64{vec},
		NResults:        topK,
		Include:         []string{"metadatas", "documents"},
	}, &resp)
	if err != nil {
		return Result{}, err
	}

	return resultFromQueryResponse(&resp), nil
}

func resultFromQueryResponse(resp *chromaQueryResponse) Result {
	var out Result
	if len(resp.Metadatas) > 0 {
		for i, md := range resp.Metadatas[0] {
			chunk, _ := md["text"].(string)
			if chunk == "" && len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
				chunk = resp.Documents[0][i]
			}
			source, _ := md["source"].(string)
			if source == "" {
				source = unknownSource
			}
			out.Chunks = append(out.Chunks, chunk)
			out.Sources = append(out.Sources, source)
		}
	}
	return out
}

// resolveCollection looks up the collection ID by name once and caches it.
func (r *ChromaRetriever) resolveCollection(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collectionID != "" {
		return r.collectionID, nil
	}

	var col chromaCollection
	path := "/api/v1/collections/" + url.PathEscape(r.collection)
	if err := r.get(ctx, path, &col); err != nil {
		return "", err
	}
	if col.ID == "" {
		return "", fmt.Errorf("rag: collection %q not found", r.collection)
	}
	r.collectionID = col.ID
	return r.collectionID, nil
}

func (r *ChromaRetriever) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("rag: build request: %w", err)
	}
	return r.do(req, out)
}

func (r *ChromaRetriever) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("rag: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("rag: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return r.do(req, out)
}

func (r *ChromaRetriever) do(req *http.Request, out any) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rag: vector store request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rag: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rag: vector store status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("rag: decode response: %w", err)
	}
	return nil
}
