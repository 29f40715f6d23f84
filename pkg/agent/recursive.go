// Package agent hosts the specialized agents built on the ReAct controller:
// the recursive corpus processor, the research assistant, and the code
// assistant.
package agent

import (
	"context"
	"strings"

	"github.com/archive-ai/brain/pkg/agent/controller"
	"github.com/archive-ai/brain/pkg/agent/tools"
	"github.com/archive-ai/brain/pkg/sandbox"
)

// rlmSystemPrompt instructs the model to process an oversized corpus through
// sandboxed Python instead of its context window.
const rlmSystemPrompt = `You are a Recursive Language Model (RLM).
You have been tasked with processing a large text document that is TOO LARGE to fit in your context window.

You cannot see the document directly.
Instead, it is available in your Python environment as a string variable named ` + "`CORPUS`" + `.

Your goal is to answer the user's question by writing Python code to inspect ` + "`CORPUS`" + `.

### Capabilities
1. **Inspect Data:** You can ` + "`print(len(CORPUS))`" + ` or ` + "`print(CORPUS[:500])`" + ` to see the data.
2. **Filter/Search:** You can use regex (` + "`re`" + ` module) or string methods to find relevant sections.
3. **Recursive Calls:** You have a special function ` + "`ask_llm(prompt)`" + ` available.
   - You can pass chunks of ` + "`CORPUS`" + ` to ` + "`ask_llm`" + ` to summarize them or extract specific facts.
   - Example: ` + "`summary = ask_llm(f\"Summarize this text: {chunk}\")`" + `

### Rules
- **Do NOT try to print the entire CORPUS.** It will crash the interface.
- **Do NOT guess.** Use the data in ` + "`CORPUS`" + `.
- **Iterate:** If a search fails, write new code to try a different strategy.
- **Final Answer:** When you have the answer, output it clearly.

### Example Workflow
Question: "What is the main conclusion of the paper?"
Thought: I check the length of the corpus.
Action: CodeExecution
Action Input: print(len(CORPUS))
Observation: 50000
Thought: It's 50,000 chars. I'll read the last 2000 chars to find the conclusion.
Action: CodeExecution
Action Input: print(CORPUS[-2000:])
Observation: ... In conclusion, the results show...
Thought: I see the conclusion section. I will ask the LLM to summarize it.
Action: CodeExecution
Action Input: print(ask_llm(f"Summarize this conclusion: {CORPUS[-2000:]}"))
Observation: The main conclusion is that...
Final Answer: The conclusion is...
`

// RecursiveResult is a recursive run plus its nested ask_llm call count.
type RecursiveResult struct {
	controller.Result
	NestedCalls int `json:"nested_calls"`
}

// Recursive processes corpora too large for a context window. The corpus is
// shipped to the sandbox as the CORPUS variable; sandboxed code can call
// back into the host's LLM through ask_llm.
type Recursive struct {
	llm       controller.Completer
	sandbox   *sandbox.Client
	callbacks *sandbox.CallbackRegistry

	// callbackBaseURL is this service's own address, as reachable from the
	// sandbox. The ask_llm endpoint hangs off it.
	callbackBaseURL string
}

// NewRecursive creates the recursive agent.
func NewRecursive(completer controller.Completer, sb *sandbox.Client, callbacks *sandbox.CallbackRegistry, callbackBaseURL string) *Recursive {
	return &Recursive{
		llm:             completer,
		sandbox:         sb,
		callbacks:       callbacks,
		callbackBaseURL: strings.TrimRight(callbackBaseURL, "/"),
	}
}

// Solve answers a question about corpus. Each run registers a fresh
// execution ID so nested ask_llm calls can be attributed and capped; the
// registration is pruned when the run finishes.
func (r *Recursive) Solve(ctx context.Context, question, corpus string) RecursiveResult {
	executionID := r.callbacks.Register()
	defer r.callbacks.Release(executionID)

	registry := tools.NewRegistry()
	registry.Register(tools.Tool{
		Name:        "CodeExecution",
		Description: "Execute Python code. Variable 'CORPUS' contains the text. Function 'ask_llm(prompt)' is available.",
		Run: func(ctx context.Context, code string) string {
			return r.execute(ctx, executionID, corpus, code)
		},
	})

	c := controller.New(r.llm, registry)
	c.SystemPrompt = rlmSystemPrompt

	result := c.Solve(ctx, question)
	return RecursiveResult{
		Result:      result,
		NestedCalls: r.callbacks.Calls(executionID),
	}
}

// execute validates then runs code against the corpus. Blocking validation
// failures never reach the sandbox; warnings ride along with the output.
func (r *Recursive) execute(ctx context.Context, executionID, corpus, code string) string {
	code = strings.TrimSpace(code)

	ok, msg := tools.ValidateCode(code)
	if !ok {
		return "Validation Error: " + msg
	}
	warning := msg

	result, errText := r.sandbox.ExecuteObservation(ctx, sandbox.ExecuteRequest{
		Code:        code,
		Context:     map[string]string{"CORPUS": corpus},
		ExecutionID: executionID,
		CallbackURL: r.callbackBaseURL + "/internal/ask_llm",
	})
	if errText != "" {
		return errText
	}

	var output string
	if trimmed := strings.TrimSpace(result.Result); trimmed != "" {
		output = "Output:\n" + trimmed
	}
	if trimmed := strings.TrimSpace(result.Error); trimmed != "" {
		output += "\nErrors:\n" + trimmed
	}
	if output == "" {
		output = "Code executed (no output)."
	}
	if warning != "" {
		return warning + "\n\n" + output
	}
	return output
}
