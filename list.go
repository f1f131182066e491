package keva

import (
	"container/list"
	"strconv"
	"strings"

	"github.com/andreyvit/keva/ziplist"
)

type listEncoding uint8

const (
	listZiplist listEncoding = iota
	listLinked
)

// List is an ordered sequence with two interchangeable physical encodings:
// a packed buffer of short entries and a doubly-linked list of shared value
// objects. Promotion to the linked encoding is one-way, triggered by length
// or by an oversized raw value.
type List struct {
	enc listEncoding
	zl  *ziplist.ZipList
	ll  *list.List
}

func newZiplistList() *List {
	return &List{enc: listZiplist, zl: ziplist.New()}
}

func (l *List) typeName() string { return "list" }

func (l *List) Len() int {
	switch l.enc {
	case listZiplist:
		return l.zl.Len()
	case listLinked:
		return l.ll.Len()
	default:
		panic("keva: unknown list encoding")
	}
}

// tryConversion promotes to the linked encoding when value is a raw byte
// object too long for the packed one. Integer-encoded objects are never too
// long.
func (l *List) tryConversion(value *Obj, cfg *Config) {
	if l.enc != listZiplist {
		return
	}
	if value.enc == encRaw && len(value.b) > cfg.ListMaxZiplistValue {
		l.convert(listLinked)
	}
}

func (l *List) Push(value *Obj, head bool, cfg *Config) {
	l.tryConversion(value, cfg)
	if l.enc == listZiplist && l.zl.Len() >= cfg.ListMaxZiplistEntries {
		l.convert(listLinked)
	}
	switch l.enc {
	case listZiplist:
		l.zl.Push(value.Bytes(), head)
	case listLinked:
		if head {
			l.ll.PushFront(value)
		} else {
			l.ll.PushBack(value)
		}
	default:
		panic("keva: unknown list encoding")
	}
}

// Pop removes and returns the element at the chosen end, or nil when the
// list is empty. The caller observes emptiness and deletes the key.
func (l *List) Pop(head bool) *Obj {
	switch l.enc {
	case listZiplist:
		var off int
		var ok bool
		if head {
			off, ok = l.zl.Head()
		} else {
			off, ok = l.zl.Tail()
		}
		if !ok {
			return nil
		}
		value := objFromZiplistEntry(l.zl, off)
		l.zl.Delete(off)
		return value
	case listLinked:
		var e *list.Element
		if head {
			e = l.ll.Front()
		} else {
			e = l.ll.Back()
		}
		if e == nil {
			return nil
		}
		l.ll.Remove(e)
		return e.Value.(*Obj)
	default:
		panic("keva: unknown list encoding")
	}
}

func objFromZiplistEntry(zl *ziplist.ZipList, off int) *Obj {
	b, i, isInt := zl.Get(off)
	if isInt {
		return newObjInt(i)
	}
	owned := make([]byte, len(b))
	copy(owned, b)
	return newObj(owned)
}

// convert streams the packed entries into a fresh linked list and swaps the
// storage. Only the packed → linked direction exists.
func (l *List) convert(target listEncoding) {
	if l.enc != listZiplist || target != listLinked {
		panic("keva: unsupported list conversion")
	}
	ll := list.New()
	it := l.iterate()
	var ele Literal
	for it.next(&ele) {
		ll.PushBack(ele.Obj())
		ele.ClearDirty()
	}
	l.enc = listLinked
	l.zl = nil
	l.ll = ll
}

type listIter struct {
	enc   listEncoding
	zl    *ziplist.ZipList
	zlOff int
	zlOK  bool
	ln    *list.Element
}

// iterate yields elements head to tail. Mutation through anything but the
// iterator invalidates it.
func (l *List) iterate() *listIter {
	it := &listIter{enc: l.enc}
	switch l.enc {
	case listZiplist:
		it.zl = l.zl
		it.zlOff, it.zlOK = l.zl.Head()
	case listLinked:
		it.ln = l.ll.Front()
	default:
		panic("keva: unknown list encoding")
	}
	return it
}

func (it *listIter) next(ele *Literal) bool {
	switch it.enc {
	case listZiplist:
		if !it.zlOK {
			return false
		}
		b, i, isInt := it.zl.Get(it.zlOff)
		if isInt {
			*ele = litFromInt64(i)
		} else {
			*ele = litFromBytes(b)
		}
		it.zlOff, it.zlOK = it.zl.Next(it.zlOff)
		return true
	case listLinked:
		if it.ln == nil {
			return false
		}
		*ele = litFromObj(it.ln.Value.(*Obj))
		it.ln = it.ln.Next()
		return true
	default:
		panic("keva: unknown list encoding")
	}
}

/* ---------------------------------------------------------------------------
 * List commands
 * ------------------------------------------------------------------------- */

func pushGenericCommand(c *Client, head bool) {
	key := c.argv[1].String()
	v := c.db.lookupWrite(key)
	c.argv[2] = tryObjectEncoding(c.argv[2])
	var lobj *List
	if v == nil {
		if tryDeliver(c.db, key, c.argv[2]) {
			c.addReplyInt64(1)
			return
		}
		lobj = newZiplistList()
		c.db.add(key, lobj)
	} else {
		var ok bool
		if lobj, ok = c.checkList(v); !ok {
			return
		}
		if tryDeliver(c.db, key, c.argv[2]) {
			c.db.signalModified(key)
			c.addReplyInt64(1)
			return
		}
	}
	lobj.Push(c.argv[2], head, &c.srv.cfg)
	c.addReplyInt64(int64(lobj.Len()))
	c.db.signalModified(key)
	c.srv.dirty++
}

func lpushCommand(c *Client) { pushGenericCommand(c, true) }
func rpushCommand(c *Client) { pushGenericCommand(c, false) }

// pushxGenericCommand covers LPUSHX/RPUSHX (pivot == nil) and LINSERT
// (pivot != nil): the key must already hold a list, and with a pivot the
// value lands next to the first element equal to it.
func pushxGenericCommand(c *Client, pivot, value *Obj, head bool) {
	key := c.argv[1].String()
	v := c.lookupReadOrReply(key, replyCZero)
	if v == nil {
		return
	}
	lobj, ok := c.checkList(v)
	if !ok {
		return
	}

	if pivot != nil {
		inserted := false

		// The value might not be insertable at all, but converting inside
		// the scan is not possible, so assume it will be and convert the
		// packed encoding up front if the value demands it.
		lobj.tryConversion(value, &c.srv.cfg)

		switch lobj.enc {
		case listZiplist:
			for off, ok := lobj.zl.Head(); ok; off, ok = lobj.zl.Next(off) {
				if lobj.zl.Compare(off, pivot.Bytes()) {
					if head {
						lobj.zl.InsertBefore(off, value.Bytes())
					} else {
						lobj.zl.InsertAfter(off, value.Bytes())
					}
					if lobj.zl.Len() > c.srv.cfg.ListMaxZiplistEntries {
						lobj.convert(listLinked)
					}
					inserted = true
				}
				if inserted {
					break
				}
			}
		case listLinked:
			for ln := lobj.ll.Front(); ln != nil; ln = ln.Next() {
				if equalObj(ln.Value.(*Obj), pivot) {
					if head {
						lobj.ll.InsertBefore(value, ln)
					} else {
						lobj.ll.InsertAfter(value, ln)
					}
					inserted = true
					break
				}
			}
		default:
			panic("keva: unknown list encoding")
		}

		if !inserted {
			// Pivot not found is distinct from key missing.
			c.addReplyInt64(-1)
			return
		}
		c.db.signalModified(key)
		c.srv.dirty++
	} else {
		lobj.Push(value, head, &c.srv.cfg)
		c.db.signalModified(key)
		c.srv.dirty++
	}

	c.addReplyInt64(int64(lobj.Len()))
}

func lpushxCommand(c *Client) {
	c.argv[2] = tryObjectEncoding(c.argv[2])
	pushxGenericCommand(c, nil, c.argv[2], true)
}

func rpushxCommand(c *Client) {
	c.argv[2] = tryObjectEncoding(c.argv[2])
	pushxGenericCommand(c, nil, c.argv[2], false)
}

func linsertCommand(c *Client) {
	c.argv[4] = tryObjectEncoding(c.argv[4])
	switch {
	case strings.EqualFold(c.argv[2].String(), "after"):
		pushxGenericCommand(c, c.argv[3], c.argv[4], false)
	case strings.EqualFold(c.argv[2].String(), "before"):
		pushxGenericCommand(c, c.argv[3], c.argv[4], true)
	default:
		c.addReplyError(syntaxErr)
	}
}

func llenCommand(c *Client) {
	v := c.lookupReadOrReply(c.argv[1].String(), replyCZero)
	if v == nil {
		return
	}
	lobj, ok := c.checkList(v)
	if !ok {
		return
	}
	c.addReplyInt64(int64(lobj.Len()))
}

func lindexCommand(c *Client) {
	v := c.lookupReadOrReply(c.argv[1].String(), replyNilBulk)
	if v == nil {
		return
	}
	lobj, ok := c.checkList(v)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.argv[2].String())
	if err != nil {
		c.addReplyError("value is not an integer or out of range")
		return
	}

	switch lobj.enc {
	case listZiplist:
		if off, ok := lobj.zl.Index(index); ok {
			b, i, isInt := lobj.zl.Get(off)
			if isInt {
				c.addReplyBulkBytes(strconv.AppendInt(nil, i, 10))
			} else {
				owned := make([]byte, len(b))
				copy(owned, b)
				c.addReplyBulkBytes(owned)
			}
		} else {
			c.addReplyNilBulk()
		}
	case listLinked:
		if ln := listIndexNode(lobj.ll, index); ln != nil {
			c.addReplyBulkObj(ln.Value.(*Obj))
		} else {
			c.addReplyNilBulk()
		}
	default:
		panic("keva: unknown list encoding")
	}
}

// listIndexNode returns the i-th node, counting from the tail for negative
// i, walking from whichever end is closer.
func listIndexNode(ll *list.List, i int) *list.Element {
	n := ll.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil
	}
	if i < n/2 {
		ln := ll.Front()
		for ; i > 0; i-- {
			ln = ln.Next()
		}
		return ln
	}
	ln := ll.Back()
	for j := n - 1; j > i; j-- {
		ln = ln.Prev()
	}
	return ln
}

func lsetCommand(c *Client) {
	key := c.argv[1].String()
	v := c.lookupWriteOrReply(key, replyNoSuchKey)
	if v == nil {
		return
	}
	lobj, ok := c.checkList(v)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.argv[2].String())
	if err != nil {
		c.addReplyError("value is not an integer or out of range")
		return
	}
	c.argv[3] = tryObjectEncoding(c.argv[3])
	value := c.argv[3]

	// A long value may force the packed encoding out even though the length
	// does not change.
	lobj.tryConversion(value, &c.srv.cfg)
	switch lobj.enc {
	case listZiplist:
		off, ok := lobj.zl.Index(index)
		if !ok {
			c.addReplyError(outOfRangeErr)
			return
		}
		next, more := lobj.zl.Delete(off)
		if more {
			lobj.zl.InsertBefore(next, value.Bytes())
		} else {
			lobj.zl.Push(value.Bytes(), false)
		}
		c.addReplyStatus("OK")
		c.db.signalModified(key)
		c.srv.dirty++
	case listLinked:
		ln := listIndexNode(lobj.ll, index)
		if ln == nil {
			c.addReplyError(outOfRangeErr)
			return
		}
		ln.Value = value
		c.addReplyStatus("OK")
		c.db.signalModified(key)
		c.srv.dirty++
	default:
		panic("keva: unknown list encoding")
	}
}

func popGenericCommand(c *Client, head bool) {
	key := c.argv[1].String()
	v := c.lookupWriteOrReply(key, replyNilBulk)
	if v == nil {
		return
	}
	lobj, ok := c.checkList(v)
	if !ok {
		return
	}
	value := lobj.Pop(head)
	if value == nil {
		c.addReplyNilBulk()
		return
	}
	c.addReplyBulkObj(value)
	if lobj.Len() == 0 {
		c.db.remove(key)
	}
	c.db.signalModified(key)
	c.srv.dirty++
}

func lpopCommand(c *Client) { popGenericCommand(c, true) }
func rpopCommand(c *Client) { popGenericCommand(c, false) }

func lrangeCommand(c *Client) {
	start, err1 := strconv.Atoi(c.argv[2].String())
	end, err2 := strconv.Atoi(c.argv[3].String())
	if err1 != nil || err2 != nil {
		c.addReplyError("value is not an integer or out of range")
		return
	}
	v := c.lookupReadOrReply(c.argv[1].String(), replyEmptyMultiBulk)
	if v == nil {
		return
	}
	lobj, ok := c.checkList(v)
	if !ok {
		return
	}
	llen := lobj.Len()

	if start < 0 {
		start = llen + start
	}
	if end < 0 {
		end = llen + end
	}
	if start < 0 {
		start = 0
	}
	// start >= 0 here, so this also catches end < 0.
	if start > end || start >= llen {
		c.replies = append(c.replies, replyEmptyMultiBulk)
		return
	}
	if end >= llen {
		end = llen - 1
	}
	rangeLen := end - start + 1

	c.addReplyMultiBulkLen(rangeLen)
	switch lobj.enc {
	case listZiplist:
		off, _ := lobj.zl.Index(start)
		for ; rangeLen > 0; rangeLen-- {
			b, i, isInt := lobj.zl.Get(off)
			if isInt {
				c.addReplyBulkBytes(strconv.AppendInt(nil, i, 10))
			} else {
				owned := make([]byte, len(b))
				copy(owned, b)
				c.addReplyBulkBytes(owned)
			}
			off, _ = lobj.zl.Next(off)
		}
	case listLinked:
		ln := listIndexNode(lobj.ll, start)
		for ; rangeLen > 0; rangeLen-- {
			c.addReplyBulkObj(ln.Value.(*Obj))
			ln = ln.Next()
		}
	default:
		panic("keva: unknown list encoding")
	}
}

func ltrimCommand(c *Client) {
	start, err1 := strconv.Atoi(c.argv[2].String())
	end, err2 := strconv.Atoi(c.argv[3].String())
	if err1 != nil || err2 != nil {
		c.addReplyError("value is not an integer or out of range")
		return
	}
	key := c.argv[1].String()
	v := c.lookupWriteOrReply(key, replyOK)
	if v == nil {
		return
	}
	lobj, ok := c.checkList(v)
	if !ok {
		return
	}
	llen := lobj.Len()

	if start < 0 {
		start = llen + start
	}
	if end < 0 {
		end = llen + end
	}
	if start < 0 {
		start = 0
	}
	var ltrim, rtrim int
	if start > end || start >= llen {
		// An out-of-range start or start > end empties the list.
		ltrim, rtrim = llen, 0
	} else {
		if end >= llen {
			end = llen - 1
		}
		ltrim, rtrim = start, llen-end-1
	}

	switch lobj.enc {
	case listZiplist:
		lobj.zl.DeleteRange(0, ltrim)
		lobj.zl.DeleteRange(-rtrim, rtrim)
	case listLinked:
		for j := 0; j < ltrim; j++ {
			lobj.ll.Remove(lobj.ll.Front())
		}
		for j := 0; j < rtrim; j++ {
			lobj.ll.Remove(lobj.ll.Back())
		}
	default:
		panic("keva: unknown list encoding")
	}
	if lobj.Len() == 0 {
		c.db.remove(key)
	}
	c.db.signalModified(key)
	c.srv.dirty++
	c.addReplyStatus("OK")
}

func lremCommand(c *Client) {
	key := c.argv[1].String()
	toRemove, err := strconv.Atoi(c.argv[2].String())
	if err != nil {
		c.addReplyError("value is not an integer or out of range")
		return
	}
	v := c.lookupWriteOrReply(key, replyCZero)
	if v == nil {
		return
	}
	lobj, ok := c.checkList(v)
	if !ok {
		return
	}

	reverse := false
	if toRemove < 0 {
		toRemove = -toRemove
		reverse = true
	}

	removed := 0
	switch lobj.enc {
	case listZiplist:
		ele := c.argv[3]
		var off int
		var okOff bool
		if reverse {
			off, okOff = lobj.zl.Tail()
		} else {
			off, okOff = lobj.zl.Head()
		}
		for okOff && (toRemove == 0 || removed < toRemove) {
			if lobj.zl.Compare(off, ele.Bytes()) {
				var more bool
				off, more = lobj.zl.Delete(off)
				removed++
				c.srv.dirty++
				if reverse {
					if more {
						// The replacement entry was already checked on the
						// way down; step back over it.
						off, okOff = lobj.zl.Prev(off)
					} else {
						// Deleted the old tail; resume at the new one.
						off, okOff = lobj.zl.Tail()
					}
				} else {
					okOff = more
				}
				continue
			}
			if reverse {
				off, okOff = lobj.zl.Prev(off)
			} else {
				off, okOff = lobj.zl.Next(off)
			}
		}
	case listLinked:
		c.argv[3] = tryObjectEncoding(c.argv[3])
		ele := c.argv[3]
		var ln *list.Element
		if reverse {
			ln = lobj.ll.Back()
		} else {
			ln = lobj.ll.Front()
		}
		for ln != nil && (toRemove == 0 || removed < toRemove) {
			var aux *list.Element
			if reverse {
				aux = ln.Prev()
			} else {
				aux = ln.Next()
			}
			if equalObj(ln.Value.(*Obj), ele) {
				lobj.ll.Remove(ln)
				removed++
				c.srv.dirty++
			}
			ln = aux
		}
	default:
		panic("keva: unknown list encoding")
	}

	if lobj.Len() == 0 {
		c.db.remove(key)
	}
	c.addReplyInt64(int64(removed))
	if removed > 0 {
		c.db.signalModified(key)
	}
}

// rpoplpushHandlePush lands value at the head of the destination list, or
// hands it straight to a waiter blocked on the destination key. The pushed
// value is always echoed to the client.
func rpoplpushHandlePush(c *Client, dstKey string, dstList *List, value *Obj) {
	if !tryDeliver(c.db, dstKey, value) {
		if dstList == nil {
			dstList = newZiplistList()
			c.db.add(dstKey, dstList)
			c.db.signalModified(dstKey)
		} else {
			c.db.signalModified(dstKey)
			c.srv.dirty++
		}
		dstList.Push(value, true, &c.srv.cfg)
	}
	c.addReplyBulkObj(value)
}

func rpoplpushCommand(c *Client) {
	srcKey := c.argv[1].String()
	v := c.lookupWriteOrReply(srcKey, replyNilBulk)
	if v == nil {
		return
	}
	src, ok := c.checkList(v)
	if !ok {
		return
	}
	if src.Len() == 0 {
		c.addReplyNilBulk()
		return
	}

	dstKey := c.argv[2].String()
	dv := c.db.lookupWrite(dstKey)
	var dst *List
	if dv != nil {
		if dst, ok = c.checkList(dv); !ok {
			return
		}
	}
	value := src.Pop(false)
	rpoplpushHandlePush(c, dstKey, dst, value)

	if src.Len() == 0 {
		c.db.remove(srcKey)
	}
	// A rotation (source == destination) was already signalled above.
	if srcKey != dstKey {
		c.db.signalModified(srcKey)
	}
	c.srv.dirty++
}

