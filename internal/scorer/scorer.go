// Package scorer computes sentence perplexity against a language model served
// over an OpenAI-compatible completions endpoint.
package scorer

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Scorer returns one perplexity per input sentence, index-aligned.
type Scorer interface {
	Score(ctx context.Context, sentences []string) ([]float64, error)
}

// New constructs a scorer for the named model. Construction failures are
// wrapped with a descriptive message; nothing is retried.
func New(modelName, baseURL, apiKey string) (Scorer, error) {
	client, err := NewClient(modelName, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize the language model: %w", err)
	}
	return client, nil
}

// ScoreBatches splits sentences into contiguous chunks of at most batchSize,
// scores each chunk sequentially and concatenates the results in order. A
// failure in any batch aborts the whole run.
func ScoreBatches(ctx context.Context, s Scorer, sentences []string, batchSize int) ([]float64, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be a positive integer, got %d", batchSize)
	}

	perplexities := make([]float64, 0, len(sentences))
	for start := 0; start < len(sentences); start += batchSize {
		end := start + batchSize
		if end > len(sentences) {
			end = len(sentences)
		}
		batch := sentences[start:end]

		scores, err := s.Score(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("scoring batch starting at row %d: %w", start, err)
		}
		if len(scores) != len(batch) {
			return nil, fmt.Errorf("batch starting at row %d: sent %d sentences, got %d scores", start, len(batch), len(scores))
		}
		perplexities = append(perplexities, scores...)
	}
	return perplexities, nil
}

// CountTokens estimates the token total of the sentences for the given model.
func CountTokens(model string, sentences []string) int {
	total := 0
	for _, s := range sentences {
		total += llms.CountTokens(model, s)
	}
	return total
}
