// Package ziplist implements a packed list of short byte strings and inline
// integers stored in a single contiguous buffer.
//
// Entry layout:
//
//	prevlen:32 kind:8 payload
//
// prevlen is the stored size of the preceding entry (0 for the first one),
// which makes backward traversal possible. kind selects the payload: a byte
// string prefixed with a uvarint length, or a little-endian integer of 16,
// 32 or 64 bits. Values pushed as byte strings in canonical decimal integer
// form are stored inline as integers; forms such as "01" stay strings.
//
// Positions handed out by Head, Tail, Index, Next and Prev are byte offsets
// into the buffer; any mutation invalidates all outstanding positions.
package ziplist

import (
	"encoding/binary"
	"math"
	"strconv"
)

const (
	kindStr byte = iota
	kindInt16
	kindInt32
	kindInt64
)

const prevLenSize = 4

type ZipList struct {
	buf  []byte
	n    int
	tail int // offset of the last entry, meaningless when n == 0
}

func New() *ZipList {
	return &ZipList{}
}

func (zl *ZipList) Len() int {
	return zl.n
}

// entrySize returns the stored size of the entry at off, header included.
func (zl *ZipList) entrySize(off int) int {
	p := off + prevLenSize
	switch zl.buf[p] {
	case kindStr:
		slen, vn := binary.Uvarint(zl.buf[p+1:])
		return prevLenSize + 1 + vn + int(slen)
	case kindInt16:
		return prevLenSize + 1 + 2
	case kindInt32:
		return prevLenSize + 1 + 4
	case kindInt64:
		return prevLenSize + 1 + 8
	default:
		panic("ziplist: corrupt entry kind")
	}
}

func (zl *ZipList) prevLen(off int) int {
	return int(binary.LittleEndian.Uint32(zl.buf[off:]))
}

func (zl *ZipList) setPrevLen(off, n int) {
	binary.LittleEndian.PutUint32(zl.buf[off:], uint32(n))
}

// Get returns the entry at off: either a byte slice aliasing the buffer
// (valid until the next mutation) or an inline integer.
func (zl *ZipList) Get(off int) (b []byte, i int64, isInt bool) {
	p := off + prevLenSize
	switch zl.buf[p] {
	case kindStr:
		slen, vn := binary.Uvarint(zl.buf[p+1:])
		start := p + 1 + vn
		return zl.buf[start : start+int(slen)], 0, false
	case kindInt16:
		return nil, int64(int16(binary.LittleEndian.Uint16(zl.buf[p+1:]))), true
	case kindInt32:
		return nil, int64(int32(binary.LittleEndian.Uint32(zl.buf[p+1:]))), true
	case kindInt64:
		return nil, int64(binary.LittleEndian.Uint64(zl.buf[p+1:])), true
	default:
		panic("ziplist: corrupt entry kind")
	}
}

// Head and Tail return the offset of the first/last entry.
func (zl *ZipList) Head() (int, bool) {
	if zl.n == 0 {
		return 0, false
	}
	return 0, true
}

func (zl *ZipList) Tail() (int, bool) {
	if zl.n == 0 {
		return 0, false
	}
	return zl.tail, true
}

// Next returns the offset of the entry following off.
func (zl *ZipList) Next(off int) (int, bool) {
	if off == zl.tail {
		return 0, false
	}
	return off + zl.entrySize(off), true
}

// Prev returns the offset of the entry preceding off.
func (zl *ZipList) Prev(off int) (int, bool) {
	if off == 0 {
		return 0, false
	}
	return off - zl.prevLen(off), true
}

// Index returns the offset of the i-th entry; negative i counts from the
// tail (-1 is the last entry).
func (zl *ZipList) Index(i int) (int, bool) {
	if i < 0 {
		i = zl.n + i
	}
	if i < 0 || i >= zl.n {
		return 0, false
	}
	var off int
	if i <= zl.n/2 {
		off = 0
		for ; i > 0; i-- {
			off += zl.entrySize(off)
		}
	} else {
		off = zl.tail
		for j := zl.n - 1; j > i; j-- {
			off -= zl.prevLen(off)
		}
	}
	return off, true
}

func encodeEntry(prev int, value []byte) []byte {
	if i, err := strconv.ParseInt(string(value), 10, 64); err == nil && len(value) > 0 && isCanonicalInt(value, i) {
		return encodeIntEntry(prev, i)
	}
	e := make([]byte, prevLenSize+1+binary.MaxVarintLen64+len(value))
	binary.LittleEndian.PutUint32(e, uint32(prev))
	e[prevLenSize] = kindStr
	vn := binary.PutUvarint(e[prevLenSize+1:], uint64(len(value)))
	n := copy(e[prevLenSize+1+vn:], value)
	return e[:prevLenSize+1+vn+n]
}

func encodeIntEntry(prev int, i int64) []byte {
	var e []byte
	if i >= math.MinInt16 && i <= math.MaxInt16 {
		e = make([]byte, prevLenSize+1+2)
		e[prevLenSize] = kindInt16
		binary.LittleEndian.PutUint16(e[prevLenSize+1:], uint16(int16(i)))
	} else if i >= math.MinInt32 && i <= math.MaxInt32 {
		e = make([]byte, prevLenSize+1+4)
		e[prevLenSize] = kindInt32
		binary.LittleEndian.PutUint32(e[prevLenSize+1:], uint32(int32(i)))
	} else {
		e = make([]byte, prevLenSize+1+8)
		e[prevLenSize] = kindInt64
		binary.LittleEndian.PutUint64(e[prevLenSize+1:], uint64(i))
	}
	binary.LittleEndian.PutUint32(e, uint32(prev))
	return e
}

// isCanonicalInt rejects strings like "01" or "+5" that parse but do not
// round-trip, so stored integers always render back to the original bytes.
func isCanonicalInt(value []byte, i int64) bool {
	return strconv.FormatInt(i, 10) == string(value)
}

// Push appends value at the head or tail.
func (zl *ZipList) Push(value []byte, head bool) {
	if zl.n == 0 {
		e := encodeEntry(0, value)
		zl.buf = append(zl.buf, e...)
		zl.tail = 0
		zl.n = 1
		return
	}
	if head {
		zl.insertAt(0, value)
	} else {
		e := encodeEntry(zl.entrySize(zl.tail), value)
		newTail := len(zl.buf)
		zl.buf = append(zl.buf, e...)
		zl.tail = newTail
		zl.n++
	}
}

// InsertBefore inserts value immediately before the entry at off.
func (zl *ZipList) InsertBefore(off int, value []byte) {
	zl.insertAt(off, value)
}

// InsertAfter inserts value immediately after the entry at off.
func (zl *ZipList) InsertAfter(off int, value []byte) {
	if next, ok := zl.Next(off); ok {
		zl.insertAt(next, value)
	} else {
		zl.Push(value, false)
	}
}

// insertAt places value before the entry at off. off always addresses an
// existing entry here; appends go through Push.
func (zl *ZipList) insertAt(off int, value []byte) {
	e := encodeEntry(zl.prevLen(off), value)
	zl.buf = append(zl.buf, make([]byte, len(e))...)
	copy(zl.buf[off+len(e):], zl.buf[off:len(zl.buf)-len(e)])
	copy(zl.buf[off:], e)
	zl.tail += len(e)
	zl.setPrevLen(off+len(e), len(e))
	zl.n++
}

// Delete removes the entry at off and returns the offset of the entry that
// took its place, if any.
func (zl *ZipList) Delete(off int) (int, bool) {
	size := zl.entrySize(off)
	oldPrev := zl.prevLen(off)
	last := off == zl.tail
	copy(zl.buf[off:], zl.buf[off+size:])
	zl.buf = zl.buf[:len(zl.buf)-size]
	zl.n--
	if zl.n == 0 {
		zl.tail = 0
		return 0, false
	}
	if last {
		zl.tail = off - oldPrev
		return 0, false
	}
	zl.tail -= size
	// The successor inherited off's position; its prevlen still describes
	// the deleted entry and must describe the entry before it instead.
	zl.setPrevLen(off, oldPrev)
	return off, true
}

// DeleteRange removes count entries starting at index i; negative i counts
// from the tail as in Index.
func (zl *ZipList) DeleteRange(i, count int) {
	off, ok := zl.Index(i)
	if !ok {
		return
	}
	for j := 0; j < count && zl.n > 0; j++ {
		var more bool
		off, more = zl.Delete(off)
		if !more {
			break
		}
	}
}

// Compare reports whether the entry at off equals value, comparing
// integer-encoded entries by parsing value.
func (zl *ZipList) Compare(off int, value []byte) bool {
	b, i, isInt := zl.Get(off)
	if isInt {
		v, err := strconv.ParseInt(string(value), 10, 64)
		return err == nil && v == i && isCanonicalInt(value, v)
	}
	return string(b) == string(value)
}
