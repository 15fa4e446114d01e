package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/craftlore/ragcheck/internal/llm"
)

const (
	noContextAnswer    = "No relevant information found."
	fallbackSourceLink = "https://minecraft.wiki"
	answerMaxTokens    = 1024
)

const wikiAnswerTemplate = `You are a knowledgeable assistant trained on the Minecraft Wiki.
Answer strictly using the provided context. Structure the answer with bullet
points where it helps, and reproduce crafting grids only when the context
contains them.

Context:
{{.Context}}

Query:
{{.Query}}

If the answer is clearly not present in the context, just say "I don't know".`

var wikiAnswerTmpl = template.Must(template.New("wiki_answer").Parse(wikiAnswerTemplate))

// WikiGenerator answers questions from retrieved wiki chunks through an LLM
// provider, appending the most relevant source link to the answer.
type WikiGenerator struct {
	provider llm.Provider
}

// NewWikiGenerator creates a generator backed by provider.
func NewWikiGenerator(provider llm.Provider) (*WikiGenerator, error) {
	if provider == nil {
		return nil, errors.New("rag: nil provider")
	}
	return &WikiGenerator{provider: provider}, nil
}

// Generate produces an answer for query grounded in chunks. With no chunks it
// returns a fixed no-context answer without calling the model. When the model
// answers "I don't know" the appended source falls back to the wiki root.
func (g *WikiGenerator) Generate(ctx context.Context, query string, chunks, sources []string) (string, error) {
	if g == nil || g.provider == nil {
		return "", errors.New("rag: nil generator")
	}
	if ctx == nil {
		return "", errors.New("rag: nil context")
	}
	if len(chunks) == 0 {
		return noContextAnswer, nil
	}

	var b strings.Builder
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "- %s\n", chunk)
	}

	var prompt strings.Builder
	err := wikiAnswerTmpl.Execute(&prompt, struct {
		Context string
		Query   string
	}{Context: strings.TrimRight(b.String(), "\n"), Query: query})
	if err != nil {
		return "", fmt.Errorf("rag: render prompt: %w", err)
	}

	resp, err := g.provider.Complete(ctx, &llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: prompt.String()}},
		MaxTokens: answerMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("rag: generate: %w", err)
	}

	answer := llm.Text(resp)
	if answer == "" {
		return "", errors.New("rag: empty model response")
	}

	source := fallbackSourceLink
	if len(sources) > 0 && sources[0] != "" && sources[0] != unknownSource {
		source = sources[0]
	}
	if strings.Contains(answer, "I don't know") {
		source = fallbackSourceLink
	}
	return answer + "\n\nRead more: " + source, nil
}
