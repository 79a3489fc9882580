package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "http://localhost:8000/v1"

// Client scores sentences through the completions endpoint of an
// OpenAI-compatible server (vLLM, llama.cpp, OpenAI). The prompt is echoed
// with token logprobs and perplexity is derived client-side.
type Client struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient validates the model name and endpoint and returns a client.
func NewClient(model, baseURL, apiKey string) (*Client, error) {
	if model == "" {
		return nil, fmt.Errorf("model name is empty")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	return &Client{
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

type completionRequest struct {
	Model     string   `json:"model"`
	Prompt    []string `json:"prompt"`
	MaxTokens int      `json:"max_tokens"`
	Echo      bool     `json:"echo"`
	Logprobs  int      `json:"logprobs"`
}

type completionChoice struct {
	Index    int `json:"index"`
	Logprobs struct {
		TokenLogprobs []*float64 `json:"token_logprobs"`
	} `json:"logprobs"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
}

// Score requests echoed prompt logprobs for every sentence in one call and
// returns perplexities aligned to the input order.
func (c *Client) Score(ctx context.Context, sentences []string) ([]float64, error) {
	if len(sentences) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(completionRequest{
		Model:    c.model,
		Prompt:   sentences,
		Echo:     true,
		Logprobs: 0,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(c.apiKey, "Bearer "))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completions request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading completions response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completions endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result completionResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse completions response: %w", err)
	}
	if len(result.Choices) != len(sentences) {
		return nil, fmt.Errorf("sent %d prompts, got %d choices", len(sentences), len(result.Choices))
	}

	perplexities := make([]float64, len(sentences))
	for _, choice := range result.Choices {
		if choice.Index < 0 || choice.Index >= len(sentences) {
			return nil, fmt.Errorf("choice index %d out of range", choice.Index)
		}
		ppl, err := perplexity(choice.Logprobs.TokenLogprobs)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", choice.Index, err)
		}
		perplexities[choice.Index] = ppl
	}

	log.Debug().
		Int("sentences", len(sentences)).
		Int("tokens", CountTokens(c.model, sentences)).
		Msg("Scored batch")

	return perplexities, nil
}

// perplexity folds echoed token logprobs into exp(-mean). The first token of
// an echoed prompt carries a null logprob and is skipped.
func perplexity(logprobs []*float64) (float64, error) {
	var sum float64
	var count int
	for _, lp := range logprobs {
		if lp == nil {
			continue
		}
		sum += *lp
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("no token logprobs returned, cannot compute perplexity")
	}
	return math.Exp(-sum / float64(count)), nil
}
