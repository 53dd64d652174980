package sources

import (
	"reflect"
	"testing"
)

func TestExtractSymbolsCashtag(t *testing.T) {
	got := ExtractSymbols("traders pile into $TSLA ahead of earnings")
	want := []string{"TSLA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractSymbolsKnownTickerOnly(t *testing.T) {
	got := ExtractSymbols("NVDA rallies while the CEO of ACME watches")
	want := []string{"NVDA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractSymbolsCompanyName(t *testing.T) {
	got := ExtractSymbols("Apple announces a partnership with Microsoft")
	want := []string{"AAPL", "MSFT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractSymbolsSortedAndDeduped(t *testing.T) {
	got := ExtractSymbols("$MSFT and Microsoft and MSFT again, plus $AAPL")
	want := []string{"AAPL", "MSFT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractSymbolsNone(t *testing.T) {
	if got := ExtractSymbols("nothing market related here"); len(got) != 0 {
		t.Fatalf("expected no symbols, got %v", got)
	}
}
