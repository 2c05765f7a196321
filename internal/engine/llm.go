package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Completer sends a single prompt to a language model and returns the raw reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// ErrLLMUnavailable is returned while the circuit breaker is open.
var ErrLLMUnavailable = errors.New("llm: circuit open")

// LLMClient wraps the go-kit chat client with rate limiting and a circuit breaker.
type LLMClient struct {
	complete func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// NewLLMClient builds a client from engine config.
func NewLLMClient(c Config) *LLMClient {
	client := llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)

	lc := newLLMClient(func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
		return client.Complete(ctx, "", prompt,
			llm.WithChatTemperature(temperature),
			llm.WithChatMaxTokens(maxTokens),
		)
	}, c.LLMRPS)
	slog.Info("llm client initialized", slog.String("model", c.LLMModel), slog.Float64("rps", c.LLMRPS))
	return lc
}

func newLLMClient(fn func(context.Context, string, int, float64) (string, error), rps float64) *LLMClient {
	lc := &LLMClient{complete: fn}
	if rps > 0 {
		lc.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	lc.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return lc
}

// Complete sends prompt and returns the reply with markdown fences removed.
func (c *LLMClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	metrics.LLMCalls.Add(1)
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, prompt, maxTokens, temperature)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.LLMBreakerRejects.Add(1)
			return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
		}
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(out.(string)), nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the outermost {...} object in s, tolerating
// prose before or after it. Returns "" if no balanced object is found.
func ExtractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if esc {
			esc = false
			continue
		}
		if inStr {
			switch ch {
			case '\\':
				esc = true
			case '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
