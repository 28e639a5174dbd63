package ghostsync

import (
	"sync"
	"testing"
)

func TestBitsetBasics(t *testing.T) {
	b := NewBitset(130) // spans three words
	if b.Len() != 130 {
		t.Fatalf("len %d", b.Len())
	}
	if !b.Set(0) || !b.Set(64) || !b.Set(129) {
		t.Fatal("setting a clear bit must report true")
	}
	if b.Set(64) {
		t.Fatal("setting a set bit must report false")
	}
	if !b.Test(129) || b.Test(1) {
		t.Fatal("test mismatch")
	}
	if !b.Clear(64) || b.Clear(64) {
		t.Fatal("clear must report the previous state")
	}
	if b.Count() != 2 {
		t.Fatalf("count %d", b.Count())
	}
}

func TestBitsetClearAllIdempotent(t *testing.T) {
	b := NewBitset(256)
	for i := 0; i < 256; i += 3 {
		b.Set(i)
	}
	b.ClearAll()
	if b.Count() != 0 {
		t.Fatalf("count %d after ClearAll", b.Count())
	}
	b.ClearAll() // double clear is a no-op
	if b.Count() != 0 {
		t.Fatal("double ClearAll changed state")
	}
}

func TestBitsetConcurrentSingleWinner(t *testing.T) {
	const bits = 1024
	const claimers = 8

	b := NewBitset(bits)
	wins := make([]int, claimers)
	var wg sync.WaitGroup
	for c := 0; c < claimers; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			for i := 0; i < bits; i++ {
				if b.Set(i) {
					wins[c]++
				}
			}
		}(c)
	}
	wg.Wait()

	total := 0
	for _, w := range wins {
		total += w
	}
	if total != bits {
		t.Fatalf("expected exactly one winner per bit, got %d wins", total)
	}
}
