// Package controller implements the ReAct reasoning loop: the agent
// alternates Thought, Action, and Observation until it reaches a final
// answer or the step limit.
package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/archive-ai/brain/pkg/agent/tools"
	"github.com/archive-ai/brain/pkg/llm"
)

// MaxSteps bounds the reasoning loop to prevent runaway agents.
const MaxSteps = 10

// HardCap is the ceiling no step-limit override may exceed.
const HardCap = 50

// FinalAnswerAction is the pseudo-action that terminates the loop.
const FinalAnswerAction = "Final Answer"

// Completer generates the next reasoning step from a completion prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Step is one Thought/Action/Observation cycle in the reasoning trace.
type Step struct {
	Number      int    `json:"step_number"`
	Thought     string `json:"thought"`
	Action      string `json:"action,omitempty"`
	ActionInput string `json:"action_input,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// Result is a finished agent run with its full reasoning trace.
type Result struct {
	Answer     string `json:"answer"`
	Steps      []Step `json:"steps"`
	TotalSteps int    `json:"total_steps"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Controller drives the ReAct loop over a tool registry.
type Controller struct {
	llm   Completer
	tools *tools.Registry

	// SystemPrompt replaces the default preamble when set (the recursive
	// agent supplies its own). The default preamble embeds the tool list.
	SystemPrompt string

	// MaxSteps overrides the default step limit when positive. Values
	// above HardCap are clamped.
	MaxSteps int
}

// New creates a ReAct controller.
func New(completer Completer, registry *tools.Registry) *Controller {
	return &Controller{llm: completer, tools: registry}
}

// Solve answers a question by iterating Thought/Action/Observation. Tool
// failures become observations the agent can recover from; only LLM
// failures abort the run.
func (c *Controller) Solve(ctx context.Context, question string) Result {
	var steps []Step

	limit := c.MaxSteps
	if limit <= 0 {
		limit = MaxSteps
	}
	if limit > HardCap {
		limit = HardCap
	}

	for stepNum := 1; stepNum <= limit; stepNum++ {
		prompt := c.buildPrompt(question, steps)

		response, err := c.llm.Complete(ctx, prompt, llm.Options{
			MaxTokens:   256,
			Temperature: 0.7,
			Stop:        []string{"Observation:"},
		})
		if err != nil {
			return Result{
				Steps:      steps,
				TotalSteps: len(steps),
				Error:      fmt.Sprintf("Error at step %d: %v", stepNum, err),
			}
		}

		p := parseStep(strings.TrimSpace(response))
		step := Step{
			Number:      stepNum,
			Thought:     p.Thought,
			Action:      p.Action,
			ActionInput: p.ActionInput,
		}

		if strings.EqualFold(p.Action, FinalAnswerAction) {
			step.Observation = "Task complete"
			steps = append(steps, step)
			return Result{
				Answer:     p.ActionInput,
				Steps:      steps,
				TotalSteps: len(steps),
				Success:    true,
			}
		}

		switch {
		case p.Action == "":
			step.Observation = "No action specified. Please use the exact format."
		default:
			step.Observation = c.executeAction(ctx, p.Action, p.ActionInput)
		}
		steps = append(steps, step)
	}

	return Result{
		Answer:     "Unable to complete task within step limit",
		Steps:      steps,
		TotalSteps: len(steps),
		Error:      fmt.Sprintf("Maximum steps (%d) reached", limit),
	}
}

func (c *Controller) executeAction(ctx context.Context, action, input string) string {
	tool, ok := c.tools.Get(action)
	if !ok {
		return fmt.Sprintf("Error: Tool '%s' not found. Available tools: %s",
			action, strings.Join(c.tools.Names(), ", "))
	}
	return tool.Run(ctx, input)
}

// buildPrompt renders the completion prompt: preamble, question, the trace
// so far, and a trailing "Thought:" cue.
func (c *Controller) buildPrompt(question string, steps []Step) string {
	var b strings.Builder

	if c.SystemPrompt != "" {
		b.WriteString(c.SystemPrompt)
		b.WriteString("\n\nQuestion: ")
		b.WriteString(question)
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, `You are a helpful AI assistant that can reason and use tools to answer questions.

Available Tools:
%s

Use the following format:

Thought: [your reasoning about what to do next]
Action: [tool name from available tools, or "Final Answer"]
Action Input: [input for the tool, or your final answer if Action is "Final Answer"]
Observation: [result from the tool - this will be provided by the system]

Question: %s
`, c.tools.Describe(), question)
	}

	for _, step := range steps {
		b.WriteString("\nThought: " + step.Thought)
		if step.Action != "" {
			b.WriteString("\nAction: " + step.Action)
		}
		if step.ActionInput != "" {
			b.WriteString("\nAction Input: " + step.ActionInput)
		}
		if step.Observation != "" {
			b.WriteString("\nObservation: " + step.Observation)
		}
	}
	b.WriteString("\nThought:")

	return b.String()
}
