package sources

import (
	"context"
	"fmt"
	"time"

	"SentiFlow/internal/domain/models"
	pkghttp "SentiFlow/pkg/http"
	"SentiFlow/pkg/util"
)

// feedResponse is the JSON shape a news feed endpoint returns.
type feedResponse struct {
	Items []feedItem `json:"items"`
}

type feedItem struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
}

// HTTPSource polls a JSON news feed endpoint.
type HTTPSource struct {
	name   string
	url    string
	client *pkghttp.Client
	now    func() time.Time
}

// NewHTTPSource creates a source over a JSON feed URL.
func NewHTTPSource(name, url string, timeout time.Duration, now func() time.Time) *HTTPSource {
	if now == nil {
		now = time.Now
	}
	return &HTTPSource{
		name:   name,
		url:    url,
		client: pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		now:    now,
	}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) Fetch(ctx context.Context) ([]models.RawItem, error) {
	var resp feedResponse
	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    s.url,
		Headers: map[string]string{
			"Accept": "application/json",
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", s.name, err)
	}

	items := make([]models.RawItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		text := it.Title
		if it.Summary != "" {
			text += ". " + it.Summary
		}
		if text == "" {
			continue
		}
		items = append(items, models.RawItem{
			Text:        text,
			SourceName:  s.name,
			PublishedAt: util.ParseTimeDefault(it.PublishedAt, s.now()),
		})
	}
	return items, nil
}
