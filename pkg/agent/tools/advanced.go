package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/sandbox"
)

const maxSearchQueryLength = 500

// MemorySearcher is the slice of the vector store the tools need.
type MemorySearcher interface {
	Search(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error)
}

// Advanced returns the basic registry extended with the infrastructure
// tools: memory search, sandboxed code execution, date/time, and JSON.
// WebSearch ships as an honestly-labelled placeholder so agents learn its
// absence instead of hallucinating results.
func Advanced(memory MemorySearcher, sb *sandbox.Client) *Registry {
	r := Basic()
	r.Register(Tool{
		Name: "MemorySearch",
		Description: "Search past conversations for relevant information using semantic similarity. " +
			"Use this when you need to recall previous discussions or find related context. " +
			"Input format: plain text query describing what you're looking for. " +
			"Example: 'conversations about quantum physics'",
		Run: func(ctx context.Context, input string) string {
			return memorySearch(ctx, memory, input)
		},
	})
	r.Register(Tool{
		Name: "CodeExecution",
		Description: "Execute Python code in a secure sandbox to perform calculations or data processing. " +
			"Use this for complex math, data transformations, or algorithmic problems. " +
			"IMPORTANT: Your code MUST print() the final result to see output. " +
			"Input format: valid Python code as a single string. " +
			"Good example: 'result = 7*6*5*4*3*2*1\\nprint(result)' " +
			"Bad example: 'result = 7*6*5*4*3*2*1' (no print, no output!) " +
			"WARNING: Code runs in isolation with 10-second timeout.",
		Run: func(ctx context.Context, input string) string {
			return codeExecution(ctx, sb, input)
		},
	})
	r.Register(Tool{
		Name: "DateTime",
		Description: "Get current date and time information in various formats. " +
			"Use this when you need to know the current date, time, or timestamp. " +
			"Input format: 'date' (for date only), 'time' (for time only), 'now' (for both), " +
			"'timestamp' (Unix time), or 'iso' (ISO 8601 format). " +
			"Example: 'date' returns '2025-12-28'",
		Run: func(_ context.Context, input string) string {
			return dateTime(input, time.Now())
		},
	})
	r.Register(Tool{
		Name: "JSON",
		Description: "Parse, validate, and extract data from JSON strings. " +
			"Use this to work with JSON data or extract specific fields. " +
			"Input format: Just the JSON string itself (do NOT add extra quotes). " +
			"For extraction: 'fieldname:{json_here}' " +
			"Examples: '{\"name\":\"Alice\"}' or 'name:{\"name\":\"Alice\",\"age\":30}'",
		Run: func(_ context.Context, input string) string {
			return jsonTool(input)
		},
	})
	r.Register(Tool{
		Name: "WebSearch",
		Description: "Search the web for current information (NOT YET IMPLEMENTED - this is a placeholder). " +
			"Input format: search query as plain text",
		Run: func(_ context.Context, input string) string {
			return fmt.Sprintf("Web search for '%s' is not yet implemented.\n"+
				"This feature requires integration with a search API.", input)
		},
	})
	return r
}

func memorySearch(ctx context.Context, memory MemorySearcher, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Error: Search query cannot be empty"
	}
	if len(query) > maxSearchQueryLength {
		return fmt.Sprintf("Error: Query too long (%d chars). Maximum %d characters.", len(query), maxSearchQueryLength)
	}

	results, err := memory.Search(ctx, query, 3, "")
	if err != nil {
		return fmt.Sprintf("Error searching memories: %v", err)
	}
	if len(results) == 0 {
		return "No relevant memories found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant memories:\n\n", len(results))
	for i, m := range results {
		// Score is raw cosine distance; present it as a match percentage.
		pct := (1.0 - m.Score) * 100
		if pct < 0 {
			pct = 0
		}
		fmt.Fprintf(&b, "%d. [%.1f%% match] %s\n", i+1, pct, m.Message)
		fmt.Fprintf(&b, "   (Surprise: %.3f, Timestamp: %s)\n\n",
			m.SurpriseScore,
			time.Unix(int64(m.Timestamp), 0).Format("2006-01-02 15:04:05"))
	}
	return strings.TrimSpace(b.String())
}

// codeExecution validates then runs code in the sandbox. Validation
// failures never reach the sandbox; warnings ride along with the result.
func codeExecution(ctx context.Context, sb *sandbox.Client, code string) string {
	code = strings.TrimSpace(code)

	ok, msg := ValidateCode(code)
	if !ok {
		return "Validation Error: " + msg
	}
	warning := msg

	result, errText := sb.ExecuteObservation(ctx, sandbox.ExecuteRequest{Code: code, Timeout: 10})
	if errText != "" {
		return errText
	}

	var output string
	switch {
	case result.Status != "success" && result.Error != "":
		output = "Execution Error:\n" + result.Error
	case strings.TrimSpace(result.Result) != "":
		output = "Output:\n" + strings.TrimSpace(result.Result)
		if result.Error != "" {
			output += "\n\nWarnings/Errors:\n" + result.Error
		}
	default:
		if strings.Contains(code, "def ") && !strings.Contains(strings.ToLower(code), "print(") {
			output = "Code executed successfully (no output).\n" +
				"HINT: Your code defined a function but didn't call it or print the result. " +
				"Try calling the function and printing the output, like: print(factorial(7))"
		} else {
			output = "Code executed successfully (no output).\nHINT: Add print() statements to see output."
		}
	}

	if warning != "" {
		return warning + "\n\n" + output
	}
	return output
}

var dateTimeModes = map[string]bool{
	"now": true, "current": true, "date": true, "time": true,
	"timestamp": true, "iso": true, "": true,
}

func dateTime(input string, now time.Time) string {
	mode := strings.ToLower(stripWrappingQuotes(strings.TrimSpace(input)))
	if !dateTimeModes[mode] {
		return fmt.Sprintf("Invalid mode '%s'. Valid modes: now, date, time, timestamp, iso", strings.TrimSpace(input))
	}
	switch mode {
	case "date":
		return "Current date: " + now.Format("2006-01-02")
	case "time":
		return "Current time: " + now.Format("15:04:05")
	case "timestamp":
		return fmt.Sprintf("Unix timestamp: %d", now.Unix())
	case "iso":
		return "ISO 8601: " + now.Format(time.RFC3339)
	default: // now, current, empty
		return "Current date and time: " + now.Format("2006-01-02 15:04:05")
	}
}

func jsonTool(input string) string {
	cleaned := strings.TrimSpace(input)
	if len(cleaned) >= 2 && strings.HasPrefix(cleaned, "'") && strings.HasSuffix(cleaned, "'") {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = strings.Trim(cleaned, "`")

	// key:json extraction — only when the part after the first colon looks
	// like a JSON document.
	if idx := strings.Index(cleaned, ":"); idx > 0 {
		key := strings.TrimSpace(cleaned[:idx])
		rest := strings.TrimSpace(cleaned[idx+1:])
		if strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
			var data any
			if err := json.Unmarshal([]byte(rest), &data); err == nil {
				if obj, isObj := data.(map[string]any); isObj {
					if value, found := obj[key]; found {
						pretty, _ := json.MarshalIndent(value, "", "  ")
						return fmt.Sprintf("Extracted '%s': %s", key, pretty)
					}
					pretty, _ := json.MarshalIndent(data, "", "  ")
					return fmt.Sprintf("Parsed JSON (key '%s' not found):\n%s", key, pretty)
				}
			}
		}
	}

	var data any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		echo := input
		if len(echo) > 100 {
			echo = echo[:100]
		}
		return fmt.Sprintf("Invalid JSON: %v\nInput received: %s...", err, echo)
	}
	pretty, _ := json.MarshalIndent(data, "", "  ")
	switch v := data.(type) {
	case map[string]any:
		return fmt.Sprintf("Valid JSON object with %d keys:\n%s", len(v), pretty)
	case []any:
		return fmt.Sprintf("Valid JSON array with %d items:\n%s", len(v), pretty)
	default:
		return fmt.Sprintf("Valid JSON value:\n%s", pretty)
	}
}
