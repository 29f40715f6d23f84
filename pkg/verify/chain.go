// Package verify implements Chain-of-Verification: a draft answer is
// cross-examined with independently answered verification questions, then
// revised if the examination found problems.
package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/archive-ai/brain/pkg/llm"
)

const maxQuestions = 3

// Completer runs one text completion; *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// QA is one verification question and its independent answer.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Result is a completed verification chain.
type Result struct {
	InitialResponse       string   `json:"initial_response"`
	VerificationQuestions []string `json:"verification_questions"`
	VerificationQA        []QA     `json:"verification_qa"`
	FinalResponse         string   `json:"final_response"`
	Revised               bool     `json:"revised"`
}

// Chain runs the four-stage verification flow against one engine.
type Chain struct {
	llm Completer
}

// NewChain creates a verification chain.
func NewChain(completer Completer) *Chain {
	return &Chain{llm: completer}
}

// Verify drafts an answer to prompt (or takes initialResponse as the draft
// when non-empty), questions it, answers the questions without sight of the
// draft, and revises. Failures in the questioning stages degrade to the
// unrevised draft; only a failed draft is a hard error.
func (c *Chain) Verify(ctx context.Context, prompt, initialResponse string) (*Result, error) {
	if initialResponse == "" {
		draft, err := c.llm.Complete(ctx, prompt, llm.Options{MaxTokens: 256, Temperature: 0.7})
		if err != nil {
			return nil, fmt.Errorf("failed to generate initial response: %w", err)
		}
		initialResponse = strings.TrimSpace(draft)
	}

	questions, err := c.plan(ctx, prompt, initialResponse)
	if err != nil || len(questions) == 0 {
		return &Result{
			InitialResponse: initialResponse,
			FinalResponse:   initialResponse,
		}, nil
	}

	qa := make([]QA, 0, len(questions))
	for _, question := range questions {
		answer, err := c.llm.Complete(ctx, question, llm.Options{MaxTokens: 100, Temperature: 0.3})
		if err != nil {
			continue
		}
		qa = append(qa, QA{Question: question, Answer: strings.TrimSpace(answer)})
	}

	final, err := c.revise(ctx, prompt, initialResponse, qa)
	if err != nil {
		final = initialResponse
	}

	return &Result{
		InitialResponse:       initialResponse,
		VerificationQuestions: questions,
		VerificationQA:        qa,
		FinalResponse:         final,
		Revised:               strings.TrimSpace(final) != strings.TrimSpace(initialResponse),
	}, nil
}

// plan asks the engine for verification questions about the draft.
func (c *Chain) plan(ctx context.Context, prompt, response string) ([]string, error) {
	planPrompt := fmt.Sprintf(`Given this question and answer, generate 2-3 specific verification questions to check if the answer is factually correct.

Question: %s
Answer: %s

Generate verification questions that:
1. Check specific factual claims
2. Can be answered with yes/no or brief facts
3. Would reveal errors if the original answer was wrong

Format: One question per line, numbered.
Verification questions:`, prompt, response)

	text, err := c.llm.Complete(ctx, planPrompt, llm.Options{MaxTokens: 150, Temperature: 0.3})
	if err != nil {
		return nil, err
	}
	return parseQuestions(text), nil
}

func (c *Chain) revise(ctx context.Context, prompt, response string, qa []QA) (string, error) {
	pairs := make([]string, 0, len(qa))
	for _, item := range qa {
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", item.Question, item.Answer))
	}

	revisionPrompt := fmt.Sprintf(`Review this answer in light of verification results. If the verification reveals any errors or inconsistencies, provide a corrected answer. If the answer is correct, return it as-is.

Original Question: %s
Original Answer: %s

Verification Results:
%s

Provide the final answer (corrected if needed):`, prompt, response, strings.Join(pairs, "\n"))

	text, err := c.llm.Complete(ctx, revisionPrompt, llm.Options{MaxTokens: 300, Temperature: 0.5})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// parseQuestions pulls numbered or dashed lines out of the planning output,
// capped at maxQuestions.
func parseQuestions(text string) []string {
	var questions []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := line[0]
		if (first < '0' || first > '9') && first != '-' {
			continue
		}
		clean := strings.TrimSpace(strings.TrimLeft(line, "0123456789.-) "))
		if clean != "" {
			questions = append(questions, clean)
		}
		if len(questions) == maxQuestions {
			break
		}
	}
	return questions
}
