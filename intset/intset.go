// Package intset implements a sorted packed array of unique integers.
//
// Elements are stored contiguously in a single byte buffer using the
// narrowest of three fixed widths (16, 32 or 64 bits) that fits every
// element. Adding an element that does not fit the current width upgrades
// the whole buffer; widths never downgrade. Membership is a binary search.
package intset

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
)

const (
	width16 = 2
	width32 = 4
	width64 = 8
)

type IntSet struct {
	width int
	buf   []byte
	n     int
}

func New() *IntSet {
	return &IntSet{width: width16}
}

func widthFor(v int64) int {
	if v >= math.MinInt16 && v <= math.MaxInt16 {
		return width16
	} else if v >= math.MinInt32 && v <= math.MaxInt32 {
		return width32
	}
	return width64
}

func (s *IntSet) Len() int {
	return s.n
}

// Get returns the i-th smallest element. i must be within [0, Len).
func (s *IntSet) Get(i int) int64 {
	return s.getAt(i, s.width)
}

func (s *IntSet) getAt(i, width int) int64 {
	off := i * width
	switch width {
	case width16:
		return int64(int16(binary.LittleEndian.Uint16(s.buf[off:])))
	case width32:
		return int64(int32(binary.LittleEndian.Uint32(s.buf[off:])))
	case width64:
		return int64(binary.LittleEndian.Uint64(s.buf[off:]))
	default:
		panic("intset: invalid width")
	}
}

func (s *IntSet) putAt(i int, v int64) {
	off := i * s.width
	switch s.width {
	case width16:
		binary.LittleEndian.PutUint16(s.buf[off:], uint16(int16(v)))
	case width32:
		binary.LittleEndian.PutUint32(s.buf[off:], uint32(int32(v)))
	case width64:
		binary.LittleEndian.PutUint64(s.buf[off:], uint64(v))
	default:
		panic("intset: invalid width")
	}
}

// search returns the position v occupies or would occupy, and whether it is
// already present.
func (s *IntSet) search(v int64) (int, bool) {
	lo, hi := 0, s.n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		cur := s.Get(mid)
		if cur == v {
			return mid, true
		} else if cur < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, false
}

func (s *IntSet) Find(v int64) bool {
	if widthFor(v) > s.width {
		return false
	}
	_, found := s.search(v)
	return found
}

// Add inserts v, reporting whether it was absent. The buffer is upgraded
// first when v does not fit the current element width; an upgrade implies
// the insert succeeds because out-of-width values cannot be present yet.
func (s *IntSet) Add(v int64) bool {
	if w := widthFor(v); w > s.width {
		s.upgradeAdd(v, w)
		return true
	}
	pos, found := s.search(v)
	if found {
		return false
	}
	s.buf = append(s.buf, make([]byte, s.width)...)
	copy(s.buf[(pos+1)*s.width:], s.buf[pos*s.width:s.n*s.width])
	s.n++
	s.putAt(pos, v)
	return true
}

func (s *IntSet) upgradeAdd(v int64, w int) {
	old, oldWidth, n := s.buf, s.width, s.n
	s.width = w
	s.buf = make([]byte, (n+1)*w)
	s.n = n + 1
	// v is either smaller or larger than every current element, so it goes
	// to one of the two ends.
	shift := 0
	if v < 0 {
		shift = 1
	}
	prev := &IntSet{width: oldWidth, buf: old, n: n}
	for i := n - 1; i >= 0; i-- {
		s.putAt(i+shift, prev.Get(i))
	}
	if shift == 1 {
		s.putAt(0, v)
	} else {
		s.putAt(n, v)
	}
}

func (s *IntSet) Remove(v int64) bool {
	if widthFor(v) > s.width {
		return false
	}
	pos, found := s.search(v)
	if !found {
		return false
	}
	copy(s.buf[pos*s.width:], s.buf[(pos+1)*s.width:s.n*s.width])
	s.n--
	s.buf = s.buf[:s.n*s.width]
	return true
}

// Random returns a uniformly chosen element. The set must be non-empty.
func (s *IntSet) Random(r *rand.Rand) int64 {
	return s.Get(r.IntN(s.n))
}
