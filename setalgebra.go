package keva

import "slices"

// Multi-key set algebra: intersection, union and difference, each either
// streamed as a reply or stored into a destination key.
//
// Destination discipline: the result is always accumulated into a fresh
// set and installed only after every source has been fully iterated, so a
// destination key that aliases a source is safe.

func sinterGenericCommand(c *Client, setKeys []*Obj, dstKey *Obj) {
	sets := make([]*Set, len(setKeys))
	for j, keyObj := range setKeys {
		key := keyObj.String()
		var v Value
		if dstKey != nil {
			v = c.db.lookupWrite(key)
		} else {
			v = c.db.lookupRead(key)
		}
		if v == nil {
			// A missing source makes the intersection empty.
			if dstKey != nil {
				if c.db.remove(dstKey.String()) {
					c.db.signalModified(dstKey.String())
					c.srv.dirty++
				}
				c.addReplyInt64(0)
			} else {
				c.replies = append(c.replies, replyEmptyMultiBulk)
			}
			return
		}
		s, ok := c.checkSet(v)
		if !ok {
			return
		}
		sets[j] = s
	}

	// Iterating the smallest set and probing the rest keeps the probe
	// count minimal.
	slices.SortFunc(sets, func(a, b *Set) int { return a.Size() - b.Size() })

	var dstSet *Set
	var replySlot int
	if dstKey == nil {
		replySlot = c.addDeferredMultiBulkLen()
	} else {
		dstSet = newIntsetSet()
	}

	cardinality := 0
	it := sets[0].iterate()
	var ele Literal
	for it.next(&ele) {
		j := 1
		for ; j < len(sets); j++ {
			if !sets[j].Find(&ele) {
				break
			}
		}
		if j == len(sets) {
			if dstKey == nil {
				c.addReplyBulkLiteral(&ele)
				cardinality++
			} else {
				dstSet.Add(&ele, &c.srv.cfg)
			}
		}
		ele.ClearDirty()
	}

	if dstKey != nil {
		storeAlgebraResult(c, dstKey.String(), dstSet)
	} else {
		c.setDeferredMultiBulkLen(replySlot, cardinality)
	}
}

const (
	opUnion = iota
	opDiff
)

func sunionDiffGenericCommand(c *Client, setKeys []*Obj, dstKey *Obj, op int) {
	sets := make([]*Set, len(setKeys))
	for j, keyObj := range setKeys {
		key := keyObj.String()
		var v Value
		if dstKey != nil {
			v = c.db.lookupWrite(key)
		} else {
			v = c.db.lookupRead(key)
		}
		if v == nil {
			// Missing sources behave as empty sets.
			sets[j] = nil
			continue
		}
		s, ok := c.checkSet(v)
		if !ok {
			return
		}
		sets[j] = s
	}

	dstSet := newIntsetSet()
	cardinality := 0

	var ele Literal
	for j, s := range sets {
		if op == opDiff && j == 0 && s == nil {
			break // the result can only be empty
		}
		if s == nil {
			continue
		}
		it := s.iterate()
		for it.next(&ele) {
			if op == opUnion || j == 0 {
				if dstSet.Add(&ele, &c.srv.cfg) {
					cardinality++
				}
			} else {
				if dstSet.Remove(&ele) {
					cardinality--
				}
			}
			ele.ClearDirty()
		}
		if op == opDiff && cardinality == 0 {
			break // nothing left to subtract from
		}
	}

	if dstKey == nil {
		c.addReplyMultiBulkLen(cardinality)
		it := dstSet.iterate()
		for it.next(&ele) {
			c.addReplyBulkLiteral(&ele)
			ele.ClearDirty()
		}
	} else {
		storeAlgebraResult(c, dstKey.String(), dstSet)
	}
}

// storeAlgebraResult replaces dstKey with the accumulated set, or deletes
// the key when the result is empty, replying with the cardinality either
// way. Called strictly after all source iteration: see the aliasing note
// above.
func storeAlgebraResult(c *Client, dstKey string, dstSet *Set) {
	c.db.remove(dstKey)
	if dstSet.Size() > 0 {
		c.db.add(dstKey, dstSet)
		c.addReplyInt64(int64(dstSet.Size()))
	} else {
		c.addReplyInt64(0)
	}
	c.db.signalModified(dstKey)
	c.srv.dirty++
}

func sinterCommand(c *Client) {
	sinterGenericCommand(c, c.argv[1:], nil)
}

func sinterstoreCommand(c *Client) {
	sinterGenericCommand(c, c.argv[2:], c.argv[1])
}

func smembersCommand(c *Client) {
	// SMEMBERS is the single-key intersection.
	sinterGenericCommand(c, c.argv[1:], nil)
}

func sunionCommand(c *Client) {
	sunionDiffGenericCommand(c, c.argv[1:], nil, opUnion)
}

func sunionstoreCommand(c *Client) {
	sunionDiffGenericCommand(c, c.argv[2:], c.argv[1], opUnion)
}

func sdiffCommand(c *Client) {
	sunionDiffGenericCommand(c, c.argv[1:], nil, opDiff)
}

func sdiffstoreCommand(c *Client) {
	sunionDiffGenericCommand(c, c.argv[2:], c.argv[1], opDiff)
}
