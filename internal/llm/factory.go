package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ordersift/ordersift/internal/service"
)

// Config holds configuration for hosted-model clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewDisambiguator creates the chat-completion client used for fallback
// disambiguation.
func NewDisambiguator(cfg Config) (service.Disambiguator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewEncoder creates the embeddings client used as the phrase encoder.
func NewEncoder(cfg Config) (service.Encoder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return newOpenAIEncoder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
