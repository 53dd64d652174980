package sources

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"SentiFlow/internal/domain/models"
)

var simSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA", "META"}

var simTemplates = []string{
	"%s stock surges on strong earnings report",
	"Analysts bullish on %s following product launch",
	"%s faces regulatory scrutiny in Europe",
	"Market volatility impacts %s trading",
	"%s CEO announces strategic partnership",
	"Investors cautious on %s amid market uncertainty",
	"%s beats quarterly expectations",
	"Technical analysis suggests %s breakout incoming",
}

// SimSource generates synthetic headlines for demo runs without live feeds.
// A fixed seed makes consecutive runs reproducible.
type SimSource struct {
	mu    sync.Mutex
	rng   *rand.Rand
	count int
	now   func() time.Time
	n     int
}

// NewSimSource creates a simulated source emitting n items per poll.
func NewSimSource(n int, seed int64, now func() time.Time) *SimSource {
	if now == nil {
		now = time.Now
	}
	if n <= 0 {
		n = 4
	}
	return &SimSource{
		rng: rand.New(rand.NewSource(seed)),
		now: now,
		n:   n,
	}
}

func (s *SimSource) Name() string { return "simulated" }

func (s *SimSource) Fetch(ctx context.Context) ([]models.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.RawItem, 0, s.n)
	for i := 0; i < s.n; i++ {
		sym := simSymbols[s.rng.Intn(len(simSymbols))]
		tpl := simTemplates[s.rng.Intn(len(simTemplates))]
		s.count++
		// A serial suffix keeps successive polls from colliding in dedup.
		text := fmt.Sprintf(tpl+" (wire #%d)", sym, s.count)
		items = append(items, models.RawItem{
			Text:        text,
			SourceName:  s.Name(),
			PublishedAt: s.now(),
		})
	}
	return items, nil
}
