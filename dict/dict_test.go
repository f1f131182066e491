package dict

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"
)

func TestAddFindRemove(t *testing.T) {
	d := New()
	if !d.Add([]byte("a")) || !d.Add([]byte("b")) {
		t.Fatalf("Add of fresh keys failed")
	}
	if d.Add([]byte("a")) {
		t.Fatalf("duplicate Add succeeded")
	}
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	if !d.Find([]byte("a")) || d.Find([]byte("c")) {
		t.Errorf("Find gave wrong answers")
	}
	if !d.Remove([]byte("a")) || d.Remove([]byte("a")) {
		t.Errorf("Remove gave wrong answers")
	}
	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1", d.Len())
	}
}

func TestGrowAndShrink(t *testing.T) {
	d := New()
	for i := 0; i < 1000; i++ {
		d.Add([]byte(fmt.Sprintf("key%d", i)))
	}
	if d.Len() != 1000 {
		t.Fatalf("Len = %d, want 1000", d.Len())
	}
	if len(d.buckets) < 1000 {
		t.Errorf("table did not grow: %d buckets", len(d.buckets))
	}
	for i := 0; i < 1000; i++ {
		if !d.Find([]byte(fmt.Sprintf("key%d", i))) {
			t.Fatalf("key%d lost", i)
		}
	}
	for i := 0; i < 995; i++ {
		if !d.Remove([]byte(fmt.Sprintf("key%d", i))) {
			t.Fatalf("key%d not removed", i)
		}
	}
	if len(d.buckets) >= 1024 {
		t.Errorf("table did not shrink: %d buckets for %d keys", len(d.buckets), d.Len())
	}
	for i := 995; i < 1000; i++ {
		if !d.Find([]byte(fmt.Sprintf("key%d", i))) {
			t.Fatalf("key%d lost during shrink", i)
		}
	}
}

func TestPresize(t *testing.T) {
	d := New()
	d.Presize(100)
	if len(d.buckets) < 100 {
		t.Errorf("Presize(100) left %d buckets", len(d.buckets))
	}
	before := len(d.buckets)
	for i := 0; i < 100; i++ {
		d.Add([]byte(fmt.Sprintf("key%d", i)))
	}
	if len(d.buckets) != before {
		t.Errorf("presized table rehashed anyway: %d → %d", before, len(d.buckets))
	}
}

func TestIterate(t *testing.T) {
	d := New()
	want := map[string]bool{}
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("key%d", i)
		d.Add([]byte(k))
		want[k] = true
	}
	got := map[string]bool{}
	it := d.Iterate()
	for k, ok := it.Next(); ok; k, ok = it.Next() {
		if got[string(k)] {
			t.Fatalf("key %q yielded twice", k)
		}
		got[string(k)] = true
	}
	if len(got) != len(want) {
		t.Fatalf("iterated %d keys, want %d", len(got), len(want))
	}
	for k := range want {
		if !got[k] {
			t.Errorf("key %q never yielded", k)
		}
	}
}

func TestRandomKeyCoverage(t *testing.T) {
	d := New()
	var keys []string
	for i := 0; i < 16; i++ {
		k := fmt.Sprintf("key%d", i)
		d.Add([]byte(k))
		keys = append(keys, k)
	}
	r := rand.New(rand.NewPCG(3, 3))
	counts := map[string]int{}
	for i := 0; i < 16000; i++ {
		counts[string(d.RandomKey(r))]++
	}
	sort.Strings(keys)
	for _, k := range keys {
		// Bucket sampling is only approximately uniform; just require that
		// every key shows up a sensible number of times.
		if counts[k] < 200 {
			t.Errorf("key %q drawn %d times out of 16000", k, counts[k])
		}
	}
}
