package controller

import (
	"regexp"
	"strings"
)

var (
	actionPattern      = regexp.MustCompile(`(?m)Action:\s*(.+)`)
	actionInputPattern = regexp.MustCompile(`(?s)Action Input:\s*(.+?)(?:\n\n|$)`)
	finalAnswerPattern = regexp.MustCompile(`(?s)Final Answer:\s*(.+)`)
)

// parsed is one decoded LLM turn.
type parsed struct {
	Thought     string
	Action      string
	ActionInput string
}

// parseStep decodes a Thought/Action/Action Input block. The model's output
// is rarely byte-perfect, so the parser is tolerant: the thought is
// everything before the first Action marker, the action is the remainder of
// its line, and an inline "Final Answer: ..." without an Action line is
// normalized into one.
func parseStep(response string) parsed {
	var p parsed

	if idx := strings.Index(response, "Action:"); idx >= 0 {
		p.Thought = strings.TrimSpace(response[:idx])
	} else {
		p.Thought = strings.TrimSpace(response)
	}

	if m := actionPattern.FindStringSubmatch(response); m != nil {
		action := strings.TrimSpace(m[1])
		// "Action: Calculator Action Input: 2+2" collapsed onto one line.
		if cut := strings.Index(action, "Action Input:"); cut >= 0 {
			action = strings.TrimSpace(action[:cut])
		}
		p.Action = action
	}
	if m := actionInputPattern.FindStringSubmatch(response); m != nil {
		p.ActionInput = strings.TrimSpace(m[1])
	}

	// Models sometimes skip the Action line and emit the answer directly.
	if p.Action == "" {
		if m := finalAnswerPattern.FindStringSubmatch(response); m != nil {
			p.Action = FinalAnswerAction
			p.ActionInput = strings.TrimSpace(m[1])
			if idx := strings.Index(response, "Final Answer:"); idx >= 0 {
				p.Thought = strings.TrimSpace(response[:idx])
			}
		}
	}

	return p
}
