package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/archive-ai/brain/pkg/agent/tools"
	"github.com/archive-ai/brain/pkg/library"
	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/services"
)

const (
	researchSystemPrompt = "You are a research assistant. Answer the question using ONLY the provided sources. " +
		"Cite sources using [Source N] notation. If sources don't contain relevant information, " +
		"say so clearly. Be concise and factual."

	synthesisSystemPrompt = "You are a research synthesizer. Combine the findings into a coherent summary."

	maxResearchQuestions = 10
)

// Chatter runs one chat completion; *llm.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// LibrarySearcher is the slice of the library client research needs.
type LibrarySearcher interface {
	Search(ctx context.Context, query string, topK int) ([]library.Chunk, error)
}

// Source is one citation backing a researched answer.
type Source struct {
	Type       string  `json:"type"`
	Filename   string  `json:"filename,omitempty"`
	Text       string  `json:"text,omitempty"`
	Message    string  `json:"message,omitempty"`
	Timestamp  float64 `json:"timestamp,omitempty"`
	Similarity float64 `json:"similarity"`
}

// ResearchResult is a cited answer drawn from library and memory sources.
type ResearchResult struct {
	Answer                 string   `json:"answer"`
	Sources                []Source `json:"sources"`
	MemoriesConsulted      int      `json:"memories_consulted"`
	LibraryChunksConsulted int      `json:"library_chunks_consulted"`
	TotalSources           int      `json:"total_sources"`
	Success                bool     `json:"success"`
	Error                  string   `json:"error,omitempty"`
}

// QuestionResult pairs one question of a multi-query run with its result.
type QuestionResult struct {
	Question string         `json:"question"`
	Result   ResearchResult `json:"result"`
}

// MultiResearchResult is a multi-question run with its synthesis.
type MultiResearchResult struct {
	Questions    int              `json:"questions"`
	Results      []QuestionResult `json:"results"`
	Synthesis    string           `json:"synthesis"`
	TotalSources int              `json:"total_sources"`
}

// Researcher answers questions from library documents and stored memories,
// citing every source it uses.
type Researcher struct {
	llm     Chatter
	library LibrarySearcher
	memory  tools.MemorySearcher
}

// NewResearcher creates a research agent.
func NewResearcher(chatter Chatter, lib LibrarySearcher, memory tools.MemorySearcher) *Researcher {
	return &Researcher{llm: chatter, library: lib, memory: memory}
}

// Research answers one question. A source backend being down is not fatal:
// the answer is drawn from whatever sources remain, down to none.
func (r *Researcher) Research(ctx context.Context, question string) ResearchResult {
	var sources []Source
	var libraryChunks, memories int

	if chunks, err := r.searchLibrary(ctx, question); err == nil {
		libraryChunks = len(chunks)
		for _, chunk := range chunks {
			sources = append(sources, Source{
				Type:       "library",
				Filename:   chunk.Filename,
				Text:       chunk.Text,
				Similarity: chunk.SimilarityPct,
			})
		}
	}

	if found, err := r.searchMemories(ctx, question); err == nil {
		memories = len(found)
		for _, m := range found {
			sources = append(sources, Source{
				Type:       "memory",
				Message:    m.Message,
				Timestamp:  m.Timestamp,
				Similarity: (1.0 - m.Score) * 100,
			})
		}
	}

	answer, err := r.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: researchSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Question: %s\n\nSources:\n%s\n\nProvide a researched answer with citations:",
			question, formatSources(sources))},
	}, llm.Options{MaxTokens: 500, Temperature: 0.3})
	if err != nil {
		return ResearchResult{
			Sources:                sources,
			MemoriesConsulted:      memories,
			LibraryChunksConsulted: libraryChunks,
			TotalSources:           len(sources),
			Error:                  fmt.Sprintf("LLM request failed: %v", err),
		}
	}

	return ResearchResult{
		Answer:                 strings.TrimSpace(answer),
		Sources:                sources,
		MemoriesConsulted:      memories,
		LibraryChunksConsulted: libraryChunks,
		TotalSources:           len(sources),
		Success:                true,
	}
}

func (r *Researcher) searchLibrary(ctx context.Context, question string) ([]library.Chunk, error) {
	if r.library == nil {
		return nil, errors.New("library not configured")
	}
	return r.library.Search(ctx, question, 5)
}

func (r *Researcher) searchMemories(ctx context.Context, question string) ([]models.Memory, error) {
	if r.memory == nil {
		return nil, errors.New("memory not configured")
	}
	return r.memory.Search(ctx, question, 3, "")
}

// MultiResearch answers each question independently, then synthesizes the
// findings into one summary.
func (r *Researcher) MultiResearch(ctx context.Context, questions []string) (*MultiResearchResult, error) {
	if len(questions) > maxResearchQuestions {
		return nil, &services.ValidationError{
			Field:   "questions",
			Message: fmt.Sprintf("Too many questions (%d). Maximum %d.", len(questions), maxResearchQuestions),
		}
	}

	results := make([]QuestionResult, 0, len(questions))
	var totalSources int
	for _, question := range questions {
		result := r.Research(ctx, question)
		if result.Success {
			totalSources += len(result.Sources)
		}
		results = append(results, QuestionResult{Question: question, Result: result})
	}

	var prompt strings.Builder
	prompt.WriteString("Synthesize findings from the following questions:\n")
	for i, qr := range results {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, qr.Question)
		if qr.Result.Success {
			fmt.Fprintf(&prompt, "   Finding: %s\n\n", qr.Result.Answer)
		}
	}

	synthesis, err := r.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: prompt.String()},
	}, llm.Options{MaxTokens: 800, Temperature: 0.4})
	if err != nil {
		synthesis = "(Synthesis failed)"
	}

	return &MultiResearchResult{
		Questions:    len(questions),
		Results:      results,
		Synthesis:    strings.TrimSpace(synthesis),
		TotalSources: totalSources,
	}, nil
}

func formatSources(sources []Source) string {
	if len(sources) == 0 {
		return "(No sources available)"
	}
	formatted := make([]string, 0, len(sources))
	for i, source := range sources {
		switch source.Type {
		case "library":
			formatted = append(formatted, fmt.Sprintf("[Source %d] %s: %s",
				i+1, source.Filename, truncate(source.Text, 300)))
		case "memory":
			formatted = append(formatted, fmt.Sprintf("[Source %d] Memory: %s",
				i+1, truncate(source.Message, 200)))
		}
	}
	return strings.Join(formatted, "\n\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
