package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/router"
	"github.com/archive-ai/brain/pkg/stream"
)

const helpText = `I can help you with:
- Chat: just talk to me and I'll respond using the configured language engines.
- Memory search: ask "what did I say about X" or "recall X" to search stored memories.
- Agents: POST /agent, /agent/advanced, and /agent/recursive run tool-using reasoning loops.
- Research: POST /research answers questions with library and memory citations.
- Code assistance: POST /code_assist generates and tests Python code.
- Verification: POST /verify double-checks an answer with follow-up questions.
- Personas: manage speaking styles under /personas.`

// PersonaProvider supplies the system prompt of the currently active
// persona, or "" when none is active.
type PersonaProvider interface {
	ActiveSystemPrompt() string
}

// MemorySearcher runs a vector search over stored memories.
type MemorySearcher interface {
	Search(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error)
}

// ChatService routes incoming messages to the help responder, the memory
// store, or a language engine, and captures every turn on the input stream.
type ChatService struct {
	engines  *llm.Engines
	personas PersonaProvider
	memory   MemorySearcher
	capture  *stream.Capture
}

// NewChatService creates the chat service. personas, memory, and capture may
// be nil; the corresponding behavior degrades gracefully.
func NewChatService(engines *llm.Engines, personas PersonaProvider, memory MemorySearcher, capture *stream.Capture) *ChatService {
	return &ChatService{
		engines:  engines,
		personas: personas,
		memory:   memory,
		capture:  capture,
	}
}

// ProcessChat handles one routed chat turn.
func (s *ChatService) ProcessChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, NewValidationError("message", "Message cannot be empty")
	}

	route := router.RouteMessage(req.Message)
	slog.Info("Routed chat message",
		"intent", route.Intent,
		"confidence", route.Confidence,
		"session_id", req.SessionID)

	var (
		response  string
		engineTag string
		err       error
	)
	switch route.Intent {
	case router.IntentHelp:
		response = helpText
		engineTag = "router"
	case router.IntentSearchMemory:
		response, err = s.searchMemories(ctx, route.Params["query"], req.SessionID)
		engineTag = "router"
	default:
		response, engineTag, err = s.chat(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	s.captureTurn(ctx, req, engineTag)

	return &models.ChatResponse{
		Response:   response,
		Engine:     engineTag,
		Intent:     string(route.Intent),
		Confidence: route.Confidence,
	}, nil
}

func (s *ChatService) chat(ctx context.Context, req models.ChatRequest) (string, string, error) {
	messages := make([]llm.Message, 0, 3)
	if s.personas != nil {
		if prompt := s.personas.ActiveSystemPrompt(); prompt != "" {
			messages = append(messages, llm.Message{Role: "system", Content: prompt})
		}
	}
	if req.History != "" {
		messages = append(messages, llm.Message{
			Role:    "system",
			Content: "Previous conversation context:\n" + req.History,
		})
	}
	messages = append(messages, llm.Message{Role: "user", Content: req.Message})

	response, engineTag, err := s.engines.Chat(ctx, req.Engine, messages, llm.Options{
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	return response, engineTag, nil
}

func (s *ChatService) searchMemories(ctx context.Context, query, sessionID string) (string, error) {
	if s.memory == nil {
		return "Memory search is not available right now.", nil
	}
	memories, err := s.memory.Search(ctx, query, 5, sessionID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(memories) == 0 {
		return fmt.Sprintf("I couldn't find any memories matching '%s'.", query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here's what I found about '%s':\n\n", query)
	for i, m := range memories {
		pct := (1 - m.Score) * 100
		if pct < 0 {
			pct = 0
		}
		fmt.Fprintf(&sb, "%d. [%.1f%% match] %s\n", i+1, pct, m.Message)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// captureTurn appends the message to the surprise worker's input stream.
// Capture failures are logged and ignored: losing one capture must never
// break a conversation.
func (s *ChatService) captureTurn(ctx context.Context, req models.ChatRequest, engineTag string) {
	if s.capture == nil {
		return
	}
	metadata := map[string]string{"engine": engineTag}
	if req.SessionID != "" {
		metadata["session_id"] = req.SessionID
	}
	if _, err := s.capture.Append(ctx, req.Message, metadata); err != nil {
		slog.Warn("Failed to capture chat message", "error", err)
	}
}
