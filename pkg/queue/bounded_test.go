package queue

import (
	"sync"
	"testing"
)

func TestBoundedFIFO(t *testing.T) {
	q := NewBounded[int](4)
	for i := 1; i <= 3; i++ {
		if dropped := q.Push(i); dropped {
			t.Fatalf("unexpected drop for %d", i)
		}
	}
	for i := 1; i <= 3; i++ {
		if got := <-q.C(); got != i {
			t.Fatalf("expected %d, got %d", i, got)
		}
	}
}

func TestDropNewestKeepsHead(t *testing.T) {
	q := NewBounded[int](2, WithPolicy[int](DropNewest))
	q.Push(1)
	q.Push(2)
	if dropped := q.Push(3); !dropped {
		t.Fatalf("expected overflow drop")
	}
	if got := <-q.C(); got != 1 {
		t.Fatalf("expected oldest item preserved, got %d", got)
	}
	if got := <-q.C(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if q.Drops() != 1 {
		t.Fatalf("expected 1 drop, got %d", q.Drops())
	}
}

func TestDropOldestAdmitsNew(t *testing.T) {
	q := NewBounded[int](2, WithPolicy[int](DropOldest))
	q.Push(1)
	q.Push(2)
	if dropped := q.Push(3); !dropped {
		t.Fatalf("expected overflow drop")
	}
	if got := <-q.C(); got != 2 {
		t.Fatalf("expected head evicted, got %d", got)
	}
	if got := <-q.C(); got != 3 {
		t.Fatalf("expected newest admitted, got %d", got)
	}
}

func TestDropOldestConcurrentProducers(t *testing.T) {
	q := NewBounded[int](8, WithPolicy[int](DropOldest))

	// Every Push under DropOldest must admit its own item, even when another
	// producer grabs the slot freed by an eviction. With enough pushes from
	// competing goroutines the queue must end exactly full.
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(p*1000 + i)
			}
		}(p)
	}
	wg.Wait()

	if q.Len() != q.Cap() {
		t.Fatalf("queue holds %d items after %d pushes, cap %d", q.Len(), 400, q.Cap())
	}
}

func TestZeroCapacityClamped(t *testing.T) {
	q := NewBounded[string](0)
	if q.Cap() != 1 {
		t.Fatalf("expected capacity clamped to 1, got %d", q.Cap())
	}
}
