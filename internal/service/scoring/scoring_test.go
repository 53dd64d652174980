package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SentiFlow/internal/domain/models"
)

func TestLexiconScorerLabels(t *testing.T) {
	s := NewLexiconScorer()
	texts := []string{
		"TSLA surges and rallies on record profit",
		"AAPL plunges after downgrade and lawsuit",
		"the market opened today",
	}
	results, err := s.ScoreBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(texts) {
		t.Fatalf("got %d results for %d texts", len(results), len(texts))
	}
	if results[0].Sentiment != models.SentimentPositive {
		t.Errorf("bullish text scored %s", results[0].Sentiment)
	}
	if results[1].Sentiment != models.SentimentNegative {
		t.Errorf("bearish text scored %s", results[1].Sentiment)
	}
	if results[2].Sentiment != models.SentimentNeutral {
		t.Errorf("plain text scored %s", results[2].Sentiment)
	}
	for i, r := range results {
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("result %d confidence %v out of range", i, r.Confidence)
		}
	}
}

func TestLexiconScorerExtractsEntities(t *testing.T) {
	s := NewLexiconScorer()
	results, err := s.ScoreBatch(context.Background(), []string{"$NVDA beats expectations"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results[0].Entities) != 1 || results[0].Entities[0] != "NVDA" {
		t.Fatalf("entities = %v", results[0].Entities)
	}
}

func TestHTTPScorerRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		resp := scoreResponse{Results: make([]models.ScoreResult, len(req.Texts))}
		for i := range resp.Results {
			resp.Results[i] = models.ScoreResult{Sentiment: models.SentimentPositive, Confidence: 0.9}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, time.Second)
	results, err := s.ScoreBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
}

func TestHTTPScorerRejectsCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{Results: []models.ScoreResult{
			{Sentiment: models.SentimentNeutral, Confidence: 0.5},
		}})
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, time.Second)
	if _, err := s.ScoreBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestHTTPScorerRejectsBadLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"sentiment":"euphoric","confidence":0.9}]}`))
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, time.Second)
	if _, err := s.ScoreBatch(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected label error")
	}
}
