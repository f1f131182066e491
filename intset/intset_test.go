package intset

import (
	"math"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
)

func TestAddFindRemove(t *testing.T) {
	s := New()
	for _, v := range []int64{5, -3, 10, 5, 0} {
		s.Add(v)
	}
	if got := s.Len(); got != 4 {
		t.Fatalf("Len = %d, want 4", got)
	}
	deepEq(t, contents(s), []int64{-3, 0, 5, 10})

	if !s.Find(5) || s.Find(6) {
		t.Errorf("Find gave wrong answers")
	}
	if !s.Remove(5) || s.Remove(5) {
		t.Errorf("Remove gave wrong answers")
	}
	deepEq(t, contents(s), []int64{-3, 0, 10})
}

func TestAddReportsInsertion(t *testing.T) {
	s := New()
	if !s.Add(7) {
		t.Errorf("first Add(7) = false")
	}
	if s.Add(7) {
		t.Errorf("second Add(7) = true")
	}
}

func TestWidthUpgrade(t *testing.T) {
	s := New()
	s.Add(1)
	s.Add(2)
	if s.width != width16 {
		t.Fatalf("width = %d, want %d", s.width, width16)
	}

	s.Add(100000)
	if s.width != width32 {
		t.Fatalf("width = %d, want %d after 32-bit value", s.width, width32)
	}
	deepEq(t, contents(s), []int64{1, 2, 100000})

	s.Add(math.MinInt64)
	if s.width != width64 {
		t.Fatalf("width = %d, want %d after 64-bit value", s.width, width64)
	}
	deepEq(t, contents(s), []int64{math.MinInt64, 1, 2, 100000})

	// Out-of-width values can never be present in a narrower set.
	if s.Find(math.MaxInt64) {
		t.Errorf("Find(MaxInt64) = true")
	}
}

func TestUpgradePlacesValueAtEitherEnd(t *testing.T) {
	s := New()
	s.Add(10)
	s.Add(-20)
	s.Add(math.MaxInt32)
	deepEq(t, contents(s), []int64{-20, 10, math.MaxInt32})

	s2 := New()
	s2.Add(10)
	s2.Add(math.MinInt32)
	deepEq(t, contents(s2), []int64{math.MinInt32, 10})
}

func TestRemoveOutOfWidth(t *testing.T) {
	s := New()
	s.Add(1)
	if s.Remove(1 << 40) {
		t.Errorf("Remove of out-of-width value = true")
	}
}

func TestRandomUniform(t *testing.T) {
	s := New()
	for i := int64(0); i < 8; i++ {
		s.Add(i)
	}
	r := rand.New(rand.NewPCG(1, 2))
	counts := make(map[int64]int)
	for i := 0; i < 8000; i++ {
		counts[s.Random(r)]++
	}
	for v := int64(0); v < 8; v++ {
		if counts[v] < 700 || counts[v] > 1300 {
			t.Errorf("value %d drawn %d times out of 8000", v, counts[v])
		}
	}
}

func TestAgainstModel(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 42))
	s := New()
	model := make(map[int64]bool)
	values := []int64{-5, 0, 1, 77, -40000, 40000, 1 << 33, -(1 << 50), math.MaxInt64}
	for i := 0; i < 5000; i++ {
		v := values[r.IntN(len(values))]
		if r.IntN(2) == 0 {
			if s.Add(v) != !model[v] {
				t.Fatalf("step %d: Add(%d) disagrees with model", i, v)
			}
			model[v] = true
		} else {
			if s.Remove(v) != model[v] {
				t.Fatalf("step %d: Remove(%d) disagrees with model", i, v)
			}
			delete(model, v)
		}
	}
	want := make([]int64, 0, len(model))
	for v := range model {
		want = append(want, v)
	}
	slices.Sort(want)
	deepEq(t, contents(s), want)
}

func contents(s *IntSet) []int64 {
	out := make([]int64, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, s.Get(i))
	}
	return out
}

func deepEq[T any](t testing.TB, a, e T) {
	t.Helper()
	if !reflect.DeepEqual(a, e) {
		t.Errorf("** got %v, wanted %v", a, e)
	}
}
