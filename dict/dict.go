// Package dict implements a chained hash table over byte-string keys with
// no associated values, sized in powers of two.
//
// The table grows when the entry count reaches the bucket count and shrinks
// when usage drops below a tenth of it. RandomKey samples buckets uniformly
// and then walks the chosen chain, which makes keys in short chains slightly
// more likely than keys in long ones; callers that need exact uniformity
// must not rely on it.
package dict

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

const minBuckets = 4

type Dict struct {
	buckets []*entry
	used    int
}

type entry struct {
	key  []byte
	next *entry
}

func New() *Dict {
	return &Dict{buckets: make([]*entry, minBuckets)}
}

func (d *Dict) Len() int {
	return d.used
}

func (d *Dict) bucketFor(key []byte) int {
	return int(xxhash.Sum64(key) & uint64(len(d.buckets)-1))
}

// Add inserts key, reporting whether it was absent. The dict keeps the
// slice; callers must not mutate it afterwards.
func (d *Dict) Add(key []byte) bool {
	if d.Find(key) {
		return false
	}
	if d.used >= len(d.buckets) {
		d.resize(len(d.buckets) * 2)
	}
	i := d.bucketFor(key)
	d.buckets[i] = &entry{key: key, next: d.buckets[i]}
	d.used++
	return true
}

func (d *Dict) Find(key []byte) bool {
	for e := d.buckets[d.bucketFor(key)]; e != nil; e = e.next {
		if string(e.key) == string(key) {
			return true
		}
	}
	return false
}

func (d *Dict) Remove(key []byte) bool {
	i := d.bucketFor(key)
	for p, e := (*entry)(nil), d.buckets[i]; e != nil; p, e = e, e.next {
		if string(e.key) == string(key) {
			if p == nil {
				d.buckets[i] = e.next
			} else {
				p.next = e.next
			}
			d.used--
			if len(d.buckets) > minBuckets && d.used*10 < len(d.buckets) {
				d.resize(len(d.buckets) / 2)
			}
			return true
		}
	}
	return false
}

// Presize grows the bucket array up front so n inserts need no rehash.
func (d *Dict) Presize(n int) {
	size := minBuckets
	for size < n {
		size *= 2
	}
	if size > len(d.buckets) {
		d.resize(size)
	}
}

func (d *Dict) resize(size int) {
	if size < minBuckets {
		size = minBuckets
	}
	old := d.buckets
	d.buckets = make([]*entry, size)
	for _, e := range old {
		for e != nil {
			next := e.next
			i := d.bucketFor(e.key)
			e.next = d.buckets[i]
			d.buckets[i] = e
			e = next
		}
	}
}

// RandomKey returns a key sampled as described in the package comment.
// The dict must be non-empty.
func (d *Dict) RandomKey(r *rand.Rand) []byte {
	if d.used == 0 {
		panic("dict: RandomKey on empty dict")
	}
	var e *entry
	for e == nil {
		e = d.buckets[r.IntN(len(d.buckets))]
	}
	n := 0
	for x := e; x != nil; x = x.next {
		n++
	}
	for i := r.IntN(n); i > 0; i-- {
		e = e.next
	}
	return e.key
}

// Iter walks every key exactly once. The dict must not be mutated while an
// iterator is live.
type Iter struct {
	d *Dict
	i int
	e *entry
}

func (d *Dict) Iterate() *Iter {
	return &Iter{d: d, i: -1}
}

func (it *Iter) Next() ([]byte, bool) {
	for it.e == nil {
		it.i++
		if it.i >= len(it.d.buckets) {
			return nil, false
		}
		it.e = it.d.buckets[it.i]
	}
	key := it.e.key
	it.e = it.e.next
	return key, true
}
