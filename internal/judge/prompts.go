package judge

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Prompt templates for the six judge metrics. Each instructs the model to
// answer with a bare number on a 0-10 scale.

const contextPrecisionTemplate = `You are an expert judge evaluating retrieval quality.

You are given:
<query>
{{.Query}}
</query>

<retrieved_chunks>
{{.Chunks}}
</retrieved_chunks>

Rate how precisely these retrieved chunks match the query.

- Score 10 if all retrieved chunks are perfectly relevant.
- Score 5 if approximately half of the retrieved chunks are relevant.
- Score 0 if none of the retrieved chunks are relevant.

Your response must be strictly a single integer between 0 and 10 with no additional text, punctuation, or explanation.`

const contextRecallTemplate = `You are an expert judge evaluating retrieval completeness.

You are given:
<ground_truth_answer>
{{.GroundTruth}}
</ground_truth_answer>

<retrieved_chunks>
{{.Chunks}}
</retrieved_chunks>

Rate how comprehensively these retrieved chunks cover the details of the ground truth answer.

- Score 10 if the retrieved chunks fully cover all details.
- Score 5 if only some (partial) details are covered.
- Score 0 if none of the details are covered.

Your response must be strictly a single integer between 0 and 10 with no additional text or punctuation.`

const retrievalPrecisionTemplate = `You are an expert judge evaluating focus and precision in retrieved information.

USER QUERY:
<user_query>
"{{.Query}}"
</user_query>

RETRIEVED CHUNKS:
<retrieved_chunks>
{{.Chunks}}
</retrieved_chunks>

Your task is to determine whether the retrieved content stays strictly focused on the user's query.

- Give a score of 10 if all retrieved chunks ONLY contain relevant information.
- Score 5 if about half the retrieved chunks include unrelated or unnecessary content.
- Score 0 if most of the content is irrelevant or off-topic.

Output should be a SINGLE INTEGER between 0 and 10. No text, no explanation, no punctuation.`

const negativeRetrievalTemplate = `You are a strict judge identifying irrelevant or junk information in retrieved content.

USER QUERY:
"{{.Query}}"

RETRIEVED CHUNKS:
{{.Chunks}}

Count how many of the retrieved chunks are completely unrelated to the query - off-topic, irrelevant, or misleading.

- Score 0 if all chunks are clearly relevant.
- Score 5 if about half of the content is off-topic or unrelated.
- Score 10 if most or all chunks are clearly irrelevant or nonsensical.

Return a SINGLE INTEGER between 0 and 10. No explanation, no punctuation, just the score.`

const faithfulnessTemplate = `You are an expert faithfulness evaluator.

<retrieved_context>
{{.Chunks}}
</retrieved_context>

<generated_answer>
{{.Answer}}
</generated_answer>

How faithful is the generated answer to the retrieved context?

Provide a score from 0 to 10, where:
- 10 means the answer is perfectly faithful to the retrieved context.
- 5 means the answer is somewhat faithful, but adds extra information.
- 0 means the answer is completely unfaithful.

Respond with a single numeric score (no extra text).`

const faithfulCoverageTemplate = `You are an expert judge evaluating answer coverage.

<ground_truth_answer>
"{{.GroundTruth}}"
</ground_truth_answer>

<generated_answer>
{{.Answer}}
</generated_answer>

How much of the ground truth answer is present in the generated answer?

Provide a score from 0 to 10, where:
- 10 means the generated answer fully contains all the important details from the ground truth.
- 5 means it contains partial details.
- 0 means it contains none of the important details.

Respond strictly with a single numeric score (no extra text).`

var (
	contextPrecisionTmpl   = template.Must(template.New("context_precision").Parse(contextPrecisionTemplate))
	contextRecallTmpl      = template.Must(template.New("context_recall").Parse(contextRecallTemplate))
	retrievalPrecisionTmpl = template.Must(template.New("retrieval_precision").Parse(retrievalPrecisionTemplate))
	negativeRetrievalTmpl  = template.Must(template.New("negative_retrieval").Parse(negativeRetrievalTemplate))
	faithfulnessTmpl       = template.Must(template.New("faithfulness").Parse(faithfulnessTemplate))
	faithfulCoverageTmpl   = template.Must(template.New("faithful_coverage").Parse(faithfulCoverageTemplate))
)

type promptData struct {
	Query       string
	GroundTruth string
	Answer      string
	Chunks      string
}

func renderPrompt(tmpl *template.Template, data promptData) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		// Templates are static and data is plain strings; Execute cannot fail.
		panic(fmt.Sprintf("judge: render prompt: %v", err))
	}
	return buf.String()
}

func formatChunks(chunks []string) string {
	if len(chunks) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, strings.TrimSpace(c))
	}
	return sb.String()
}

// ContextPrecisionPrompt asks how precisely the chunks match the query.
func ContextPrecisionPrompt(query string, chunks []string) string {
	return renderPrompt(contextPrecisionTmpl, promptData{Query: query, Chunks: formatChunks(chunks)})
}

// ContextRecallPrompt asks how completely the chunks cover the ground truth.
func ContextRecallPrompt(groundTruth string, chunks []string) string {
	return renderPrompt(contextRecallTmpl, promptData{GroundTruth: groundTruth, Chunks: formatChunks(chunks)})
}

// RetrievalPrecisionPrompt asks whether the chunks stay focused on the query.
func RetrievalPrecisionPrompt(query string, chunks []string) string {
	return renderPrompt(retrievalPrecisionTmpl, promptData{Query: query, Chunks: formatChunks(chunks)})
}

// NegativeRetrievalPrompt asks what fraction of the chunks is junk.
func NegativeRetrievalPrompt(query string, chunks []string) string {
	return renderPrompt(negativeRetrievalTmpl, promptData{Query: query, Chunks: formatChunks(chunks)})
}

// FaithfulnessPrompt asks whether the answer sticks to the retrieved context.
func FaithfulnessPrompt(chunks []string, answer string) string {
	return renderPrompt(faithfulnessTmpl, promptData{Chunks: formatChunks(chunks), Answer: answer})
}

// FaithfulCoveragePrompt asks how much of the ground truth the answer carries.
func FaithfulCoveragePrompt(groundTruth, answer string) string {
	return renderPrompt(faithfulCoverageTmpl, promptData{GroundTruth: groundTruth, Answer: answer})
}
