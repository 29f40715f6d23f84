// Package router classifies incoming chat messages into intents with
// ordered regex groups. Memory-search phrasing wins over help phrasing, and
// anything unmatched falls through to plain chat.
package router

import (
	"regexp"
	"strings"
)

// Intent is what the user is asking the system to do.
type Intent string

const (
	IntentChat         Intent = "chat"
	IntentSearchMemory Intent = "search_memory"
	IntentHelp         Intent = "help"
)

// Route is a classified message. Search routes carry the extracted query
// in Params["query"].
type Route struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Params     map[string]string `json:"params,omitempty"`
}

var searchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(remember|recall|search|find|lookup|what did i say)\b`),
	regexp.MustCompile(`\b(previous|earlier|before|past)\b.*\b(conversation|message|topic)\b`),
	regexp.MustCompile(`\b(history|memories)\b`),
}

var helpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(help|assist|guide|how do|what can|commands)\b`),
	regexp.MustCompile(`\b(instructions|tutorial|explain)\b.*\b(works?|use)\b`),
	regexp.MustCompile(`^\s*(help|\?|what)\s*$`),
}

// triggerPhrases are stripped from search messages to leave the query.
// The longer "what did i say about" must precede its prefix-free variant.
var triggerPhrases = []string{
	"remember", "recall", "search", "find", "lookup",
	"what did i say about", "what did i say",
}

var (
	fillerPattern = regexp.MustCompile(`\b(the|a|an|about|for|to)\b`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// RouteMessage classifies a message. Empty messages are chat with full
// confidence, pattern matches score 0.9, and the chat fallback scores 0.8.
func RouteMessage(message string) Route {
	if strings.TrimSpace(message) == "" {
		return Route{Intent: IntentChat, Confidence: 1.0}
	}
	lower := strings.ToLower(message)

	for _, p := range searchPatterns {
		if p.MatchString(lower) {
			return Route{
				Intent:     IntentSearchMemory,
				Confidence: 0.9,
				Params:     map[string]string{"query": extractQuery(lower, message)},
			}
		}
	}
	for _, p := range helpPatterns {
		if p.MatchString(lower) {
			return Route{Intent: IntentHelp, Confidence: 0.9}
		}
	}
	return Route{Intent: IntentChat, Confidence: 0.8}
}

// extractQuery strips trigger phrases and filler words from a search message.
// When nothing substantive remains, the original message is the query.
func extractQuery(lower, original string) string {
	query := lower
	for _, phrase := range triggerPhrases {
		query = strings.ReplaceAll(query, phrase, "")
	}
	query = fillerPattern.ReplaceAllString(query, "")
	query = strings.TrimSpace(spacePattern.ReplaceAllString(query, " "))
	if query == "" {
		return strings.TrimSpace(original)
	}
	return query
}
