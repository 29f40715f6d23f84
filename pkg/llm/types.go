package llm

// Message is a single chat turn sent to an engine.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single engine call. Zero MaxTokens lets the engine decide.
type Options struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// completionRequest is the wire body for POST /v1/completions.
type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
	Logprobs    int      `json:"logprobs,omitempty"`
	Echo        bool     `json:"echo,omitempty"`
}

// chatRequest is the wire body for POST /v1/chat/completions.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stop        []string  `json:"stop,omitempty"`
}

// logprobData carries echo-mode token logprobs. Entries can be null
// (the first token of an echoed prompt has no logprob).
type logprobData struct {
	Tokens        []string   `json:"tokens"`
	TokenLogprobs []*float64 `json:"token_logprobs"`
}

type choice struct {
	Text         string       `json:"text"`
	Message      *Message     `json:"message"`
	Logprobs     *logprobData `json:"logprobs"`
	FinishReason string       `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type apiResponse struct {
	ID      string    `json:"id"`
	Object  string    `json:"object"`
	Model   string    `json:"model"`
	Choices []choice  `json:"choices"`
	Usage   usage     `json:"usage"`
	Error   *apiError `json:"error,omitempty"`
}
