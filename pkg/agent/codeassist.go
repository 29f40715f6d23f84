package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/archive-ai/brain/pkg/agent/tools"
	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/sandbox"
)

const (
	generationSystemPrompt = "You are a Python code generation assistant. Generate clean, working Python code " +
		"based on the user's task description. Include test/demonstration code that shows " +
		"the function working. Return ONLY Python code followed by a brief explanation."

	debuggingSystemPrompt = "You are a Python code debugging assistant. The user provided code that failed. " +
		"Analyze the error and provide a corrected version. " +
		"Return ONLY the corrected Python code, followed by a brief explanation."

	defaultCodeAttempts = 3
	maxCodeAttempts     = 5
	defaultCodeTimeout  = 10
	maxCodeTimeout      = 30
)

// CodeResult is one code-assistance run: the final code, what it printed in
// the sandbox, and how many generate/execute rounds it took.
type CodeResult struct {
	Task        string `json:"task"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
	TestOutput  string `json:"test_output,omitempty"`
	Success     bool   `json:"success"`
	Attempts    int    `json:"attempts"`
	Error       string `json:"error,omitempty"`
}

// CodeAssistant generates code, runs it in the sandbox, and feeds failures
// back to the model for debugging until it works or attempts run out.
type CodeAssistant struct {
	llm     Chatter
	sandbox *sandbox.Client
}

// NewCodeAssistant creates a code assistant.
func NewCodeAssistant(chatter Chatter, sb *sandbox.Client) *CodeAssistant {
	return &CodeAssistant{llm: chatter, sandbox: sb}
}

// Assist runs the generate/execute/debug loop for task. maxAttempts and
// timeout are clamped to sane ranges; zero selects the defaults.
func (a *CodeAssistant) Assist(ctx context.Context, task string, maxAttempts, timeout int) CodeResult {
	maxAttempts = clamp(maxAttempts, 1, maxCodeAttempts, defaultCodeAttempts)
	timeout = clamp(timeout, 1, maxCodeTimeout, defaultCodeTimeout)

	var lastError string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, explanation, err := a.generate(ctx, task, lastError)
		if err != nil {
			return CodeResult{
				Task:        task,
				Explanation: fmt.Sprintf("Code generation error: %v", err),
				Attempts:    attempt,
				Error:       fmt.Sprintf("Code generation error: %v", err),
			}
		}

		// Blocking validation failures feed the debugging prompt without
		// touching the sandbox.
		valid, msg := tools.ValidateCode(code)
		if valid {
			result, errText := a.execute(ctx, code, timeout)
			if errText == "" && result.Status == "success" {
				output := result.Result
				if msg != "" {
					output = msg + "\n\n" + output
				}
				return CodeResult{
					Task:        task,
					Code:        code,
					Explanation: explanation,
					TestOutput:  output,
					Success:     true,
					Attempts:    attempt,
				}
			}

			if errText != "" {
				lastError = errText
			} else if result.Error != "" {
				lastError = result.Error
			} else {
				lastError = "Unknown error"
			}
		} else {
			lastError = "Validation Error: " + msg
		}

		if attempt == maxAttempts {
			return CodeResult{
				Task:        task,
				Code:        code,
				Explanation: explanation,
				Attempts:    attempt,
				Error:       lastError,
			}
		}
	}

	return CodeResult{
		Task:     task,
		Attempts: maxAttempts,
		Error:    "Code generation failed after maximum attempts",
	}
}

// generate asks the model for code; when previousError is set the debugging
// prompt is used instead of the generation prompt.
func (a *CodeAssistant) generate(ctx context.Context, task, previousError string) (code, explanation string, err error) {
	systemPrompt := generationSystemPrompt
	userPrompt := fmt.Sprintf("Task: %s\n\nGenerate Python code:", task)
	if previousError != "" {
		systemPrompt = debuggingSystemPrompt
		userPrompt = fmt.Sprintf("Task: %s\n\nPrevious Error:\n%s\n\nProvide corrected code:", task, previousError)
	}

	response, err := a.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}, llm.Options{MaxTokens: 1000, Temperature: 0.2})
	if err != nil {
		return "", "", err
	}

	code, explanation = splitCodeResponse(response)
	return code, explanation, nil
}

// splitCodeResponse separates generated code from its explanation: a
// ```python fence first, then an "Explanation:" marker, then everything as
// code.
func splitCodeResponse(response string) (code, explanation string) {
	if idx := strings.Index(response, "```python"); idx >= 0 {
		rest := response[idx+len("```python"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			code = strings.TrimSpace(rest[:end])
			explanation = strings.TrimSpace(rest[end+len("```"):])
			if explanation == "" {
				explanation = "Code generated successfully"
			}
			return code, explanation
		}
	}
	if idx := strings.Index(response, "\n\nExplanation:"); idx >= 0 {
		return strings.TrimSpace(response[:idx]),
			strings.TrimSpace(response[idx+len("\n\nExplanation:"):])
	}
	return strings.TrimSpace(response), "Code generated (no explicit explanation provided)"
}

func (a *CodeAssistant) execute(ctx context.Context, code string, timeout int) (*sandbox.ExecuteResult, string) {
	return a.sandbox.ExecuteObservation(ctx, sandbox.ExecuteRequest{Code: code, Timeout: timeout})
}

// clamp bounds v to [min, max]; v <= 0 selects def.
func clamp(v, min, max, def int) int {
	if v <= 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
