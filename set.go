package keva

import (
	"math/rand/v2"

	"github.com/andreyvit/keva/dict"
	"github.com/andreyvit/keva/intset"
)

type setEncoding uint8

const (
	setIntset setEncoding = iota
	setHashtable
)

// Set is an unordered unique-element collection with two interchangeable
// physical encodings: a packed sorted integer array while every element is
// an integer and the cardinality stays small, and a hash table of byte
// strings otherwise. Promotion is one-way; a set never returns to the
// packed encoding.
type Set struct {
	enc setEncoding
	is  *intset.IntSet
	ht  *dict.Dict
}

func newIntsetSet() *Set {
	return &Set{enc: setIntset, is: intset.New()}
}

func newHashSet() *Set {
	return &Set{enc: setHashtable, ht: dict.New()}
}

// newSetFor picks the encoding that can hold value: the packed one for
// integer-encodable values, the hash table for everything else.
func newSetFor(value *Obj) *Set {
	if _, ok := value.Int64(); ok {
		return newIntsetSet()
	}
	return newHashSet()
}

func (s *Set) typeName() string { return "set" }

func (s *Set) Size() int {
	switch s.enc {
	case setIntset:
		return s.is.Len()
	case setHashtable:
		return s.ht.Len()
	default:
		panic("keva: unknown set encoding")
	}
}

// Add inserts the element, reporting whether it was absent. Inserting a
// non-integer into the packed encoding promotes first; exceeding the
// configured cardinality promotes after the insert.
func (s *Set) Add(ele *Literal, cfg *Config) bool {
	switch s.enc {
	case setIntset:
		if v, ok := ele.Int64(); ok {
			if s.is.Add(v) {
				if s.is.Len() > cfg.SetMaxIntsetEntries {
					s.convert(setHashtable)
				}
				return true
			}
			return false
		}
		s.convert(setHashtable)
		// The set held only integers, so a non-integer element cannot
		// collide.
		if !s.ht.Add(ele.Obj().Bytes()) {
			panic("keva: duplicate element after intset conversion")
		}
		return true
	case setHashtable:
		return s.ht.Add(ele.Obj().Bytes())
	default:
		panic("keva: unknown set encoding")
	}
}

func (s *Set) Remove(ele *Literal) bool {
	switch s.enc {
	case setIntset:
		// Only integer values can be present in an intset.
		if v, ok := ele.Int64(); ok {
			return s.is.Remove(v)
		}
		return false
	case setHashtable:
		return s.ht.Remove(ele.bytes())
	default:
		panic("keva: unknown set encoding")
	}
}

func (s *Set) Find(ele *Literal) bool {
	switch s.enc {
	case setIntset:
		v, ok := ele.Int64()
		return ok && s.is.Find(v)
	case setHashtable:
		return s.ht.Find(ele.bytes())
	default:
		panic("keva: unknown set encoding")
	}
}

// Random returns a random element as a borrowing literal. The packed
// encoding is exactly uniform; the hash table samples buckets and is
// slightly biased towards short chains.
func (s *Set) Random(r *rand.Rand) Literal {
	switch s.enc {
	case setIntset:
		return litFromInt64(s.is.Random(r))
	case setHashtable:
		return litFromBytes(s.ht.RandomKey(r))
	default:
		panic("keva: unknown set encoding")
	}
}

// convert streams every element into a presized hash table and swaps the
// storage. Only the packed → hash direction exists.
func (s *Set) convert(target setEncoding) {
	if s.enc != setIntset || target != setHashtable {
		panic("keva: unsupported set conversion")
	}
	ht := dict.New()
	ht.Presize(s.is.Len())
	it := s.iterate()
	var ele Literal
	for it.next(&ele) {
		if !ht.Add(ele.Obj().Bytes()) {
			panic("keva: duplicate element during set conversion")
		}
		ele.ClearDirty()
	}
	s.enc = setHashtable
	s.is = nil
	s.ht = ht
}

type setIter struct {
	enc setEncoding
	is  *intset.IntSet
	ii  int
	di  *dict.Iter
}

// iterate yields every element exactly once. Mutating the set invalidates
// the iterator and any borrowed literals it produced.
func (s *Set) iterate() *setIter {
	it := &setIter{enc: s.enc}
	switch s.enc {
	case setIntset:
		it.is = s.is
	case setHashtable:
		it.di = s.ht.Iterate()
	default:
		panic("keva: unknown set encoding")
	}
	return it
}

func (it *setIter) next(ele *Literal) bool {
	switch it.enc {
	case setIntset:
		if it.ii >= it.is.Len() {
			return false
		}
		*ele = litFromInt64(it.is.Get(it.ii))
		it.ii++
		return true
	case setHashtable:
		key, ok := it.di.Next()
		if !ok {
			return false
		}
		*ele = litFromBytes(key)
		return true
	default:
		panic("keva: unknown set encoding")
	}
}

/* ---------------------------------------------------------------------------
 * Set commands
 * ------------------------------------------------------------------------- */

func saddCommand(c *Client) {
	key := c.argv[1].String()
	set := c.db.lookupWrite(key)
	c.argv[2] = tryObjectEncoding(c.argv[2])
	var s *Set
	if set == nil {
		s = newSetFor(c.argv[2])
		c.db.add(key, s)
	} else {
		var ok bool
		if s, ok = c.checkSet(set); !ok {
			return
		}
	}
	ele := litFromObj(c.argv[2])
	if s.Add(&ele, &c.srv.cfg) {
		c.db.signalModified(key)
		c.srv.dirty++
		c.addReplyInt64(1)
	} else {
		c.addReplyInt64(0)
	}
}

func sremCommand(c *Client) {
	key := c.argv[1].String()
	set := c.lookupWriteOrReply(key, replyCZero)
	if set == nil {
		return
	}
	s, ok := c.checkSet(set)
	if !ok {
		return
	}
	c.argv[2] = tryObjectEncoding(c.argv[2])
	ele := litFromObj(c.argv[2])
	if s.Remove(&ele) {
		if s.Size() == 0 {
			c.db.remove(key)
		}
		c.db.signalModified(key)
		c.srv.dirty++
		c.addReplyInt64(1)
	} else {
		c.addReplyInt64(0)
	}
}

func smoveCommand(c *Client) {
	srcKey, dstKey := c.argv[1].String(), c.argv[2].String()
	src := c.db.lookupWrite(srcKey)
	dst := c.db.lookupWrite(dstKey)
	c.argv[3] = tryObjectEncoding(c.argv[3])

	if src == nil {
		c.addReplyInt64(0)
		return
	}
	srcSet, ok := c.checkSet(src)
	if !ok {
		return
	}
	var dstSet *Set
	if dst != nil {
		if dstSet, ok = c.checkSet(dst); !ok {
			return
		}
	}

	// Moving within the same set is a no-op.
	if srcSet == dstSet {
		c.addReplyInt64(1)
		return
	}

	ele := litFromObj(c.argv[3])
	if !srcSet.Remove(&ele) {
		c.addReplyInt64(0)
		return
	}
	if srcSet.Size() == 0 {
		c.db.remove(srcKey)
	}
	c.db.signalModified(srcKey)
	c.db.signalModified(dstKey)
	c.srv.dirty++

	if dstSet == nil {
		dstSet = newSetFor(c.argv[3])
		c.db.add(dstKey, dstSet)
	}
	// An extra key changed when the element landed in the destination.
	if dstSet.Add(&ele, &c.srv.cfg) {
		c.srv.dirty++
	}
	c.addReplyInt64(1)
}

func sismemberCommand(c *Client) {
	set := c.lookupReadOrReply(c.argv[1].String(), replyCZero)
	if set == nil {
		return
	}
	s, ok := c.checkSet(set)
	if !ok {
		return
	}
	c.argv[2] = tryObjectEncoding(c.argv[2])
	ele := litFromObj(c.argv[2])
	if s.Find(&ele) {
		c.addReplyInt64(1)
	} else {
		c.addReplyInt64(0)
	}
}

func scardCommand(c *Client) {
	set := c.lookupReadOrReply(c.argv[1].String(), replyCZero)
	if set == nil {
		return
	}
	s, ok := c.checkSet(set)
	if !ok {
		return
	}
	c.addReplyInt64(int64(s.Size()))
}

func spopCommand(c *Client) {
	key := c.argv[1].String()
	set := c.lookupWriteOrReply(key, replyNilBulk)
	if set == nil {
		return
	}
	s, ok := c.checkSet(set)
	if !ok {
		return
	}

	ele := s.Random(c.srv.rnd)
	// Materialise before removal: the literal may borrow the set's own
	// storage, and the reply and the rewritten argv both outlive it.
	eleobj := ele.Obj()
	if !s.Remove(&ele) {
		panic("keva: failed to remove a random set element")
	}
	ele.ClearDirty()

	// Propagation must observe a deterministic command, so the in-flight
	// record becomes SREM key element.
	c.rewriteCommand(newObjString("SREM"), c.argv[1], eleobj)

	c.addReplyBulkObj(eleobj)
	if s.Size() == 0 {
		c.db.remove(key)
	}
	c.db.signalModified(key)
	c.srv.dirty++
}

func srandmemberCommand(c *Client) {
	set := c.lookupReadOrReply(c.argv[1].String(), replyNilBulk)
	if set == nil {
		return
	}
	s, ok := c.checkSet(set)
	if !ok {
		return
	}
	ele := s.Random(c.srv.rnd)
	c.addReplyBulkLiteral(&ele)
	ele.ClearDirty()
}
