package scoring

import (
	"context"
	"fmt"
	"time"

	"SentiFlow/internal/domain/models"
	pkghttp "SentiFlow/pkg/http"
)

type scoreRequest struct {
	Texts []string `json:"texts"`
}

type scoreResponse struct {
	Results []models.ScoreResult `json:"results"`
}

// HTTPScorer calls the external scoring service. The whole batch succeeds or
// fails as one call; a response with a mismatched result count is treated as
// a failure so callers never pair results with the wrong inputs.
type HTTPScorer struct {
	url    string
	client *pkghttp.Client
}

// NewHTTPScorer creates a scorer over the service URL.
func NewHTTPScorer(url string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{
		url:    url,
		client: pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
	}
}

func (s *HTTPScorer) ScoreBatch(ctx context.Context, texts []string) ([]models.ScoreResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp scoreResponse
	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    s.url,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: scoreRequest{Texts: texts},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}

	if len(resp.Results) != len(texts) {
		return nil, fmt.Errorf("score batch: got %d results for %d texts", len(resp.Results), len(texts))
	}
	for i := range resp.Results {
		if !resp.Results[i].Sentiment.Valid() {
			return nil, fmt.Errorf("score batch: result %d: %w", i, models.ErrBadSentiment)
		}
	}
	return resp.Results, nil
}
