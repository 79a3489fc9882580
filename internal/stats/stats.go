// Package stats aggregates perplexity scores for the run summary.
package stats

import "fmt"

// Summary describes a scored run.
type Summary struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// Average returns the arithmetic mean of the perplexities. An empty list is
// an error, not a zero.
func Average(perplexities []float64) (float64, error) {
	if len(perplexities) == 0 {
		return 0, fmt.Errorf("no perplexities to average")
	}
	var sum float64
	for _, p := range perplexities {
		sum += p
	}
	return sum / float64(len(perplexities)), nil
}

// Summarize computes count, mean, min and max in one pass.
func Summarize(perplexities []float64) (Summary, error) {
	mean, err := Average(perplexities)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		Count: len(perplexities),
		Mean:  mean,
		Min:   perplexities[0],
		Max:   perplexities[0],
	}
	for _, p := range perplexities[1:] {
		if p < s.Min {
			s.Min = p
		}
		if p > s.Max {
			s.Max = p
		}
	}
	return s, nil
}
