package scheduler

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryDeduplicatesInitialSymbols(t *testing.T) {
	r := NewSymbolRegistry([]string{"000001", "000858", "600519", "000858"})

	if r.Count() != 3 {
		t.Errorf("expected 3 unique symbols, got %d", r.Count())
	}

	seen := map[string]int{}
	for _, symbol := range r.List() {
		seen[symbol]++
	}
	if seen["000858"] != 1 {
		t.Errorf("expected 000858 exactly once, got %d", seen["000858"])
	}
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewSymbolRegistry(nil)

	if !r.Add("600519") {
		t.Error("first Add should report insertion")
	}
	if r.Add("600519") {
		t.Error("second Add of same symbol should report no-op")
	}
	if !r.Contains("600519") {
		t.Error("symbol should be present after Add")
	}

	if !r.Remove("600519") {
		t.Error("Remove of present symbol should report removal")
	}
	if r.Remove("600519") {
		t.Error("Remove of absent symbol should report no-op")
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d symbols", r.Count())
	}
}

func TestRegistryListIsSorted(t *testing.T) {
	r := NewSymbolRegistry([]string{"600519", "000001", "300750"})

	list := r.List()
	want := []string{"000001", "300750", "600519"}
	for i, symbol := range want {
		if list[i] != symbol {
			t.Fatalf("expected sorted list %v, got %v", want, list)
		}
	}
}

func TestRegistryConcurrentAddAndList(t *testing.T) {
	r := NewSymbolRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		symbol := fmt.Sprintf("%06d", i)
		go func() {
			defer wg.Done()
			r.Add(symbol)
		}()
		go func() {
			defer wg.Done()
			// Every snapshot must be internally consistent: no duplicates.
			seen := map[string]bool{}
			for _, s := range r.List() {
				if seen[s] {
					t.Errorf("duplicate symbol %s in List snapshot", s)
				}
				seen[s] = true
			}
		}()
	}
	wg.Wait()

	if r.Count() != 50 {
		t.Errorf("expected 50 symbols after concurrent adds, got %d", r.Count())
	}
}

func TestAddThenListIncludesSymbolOnce(t *testing.T) {
	r := NewSymbolRegistry([]string{"000001"})
	r.Add("600519")

	count := 0
	for _, symbol := range r.List() {
		if symbol == "600519" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 600519 exactly once after Add, got %d occurrences", count)
	}
}
