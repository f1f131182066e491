package keva

import "strconv"

type objEnc uint8

const (
	encRaw objEnc = iota
	encInt
)

// Obj is a string value object. It is immutable once created and may be
// shared freely between the keyspace, containers and client argument
// vectors; the garbage collector stands in for the original's refcounts.
//
// An integer-encoded Obj carries the value in i and renders the decimal
// form lazily.
type Obj struct {
	enc objEnc
	b   []byte
	i   int64
}

func newObj(b []byte) *Obj {
	return &Obj{enc: encRaw, b: b}
}

func newObjString(s string) *Obj {
	return &Obj{enc: encRaw, b: []byte(s)}
}

func newObjInt(i int64) *Obj {
	return &Obj{enc: encInt, i: i}
}

// tryObjectEncoding returns an integer-encoded equivalent of o when its
// bytes are a canonical decimal integer, else o itself. Command handlers
// apply it to value arguments before touching containers, which is what
// makes the packed encodings see integers as integers.
func tryObjectEncoding(o *Obj) *Obj {
	if o.enc != encRaw {
		return o
	}
	if i, ok := parseCanonicalInt(o.b); ok {
		return newObjInt(i)
	}
	return o
}

func parseCanonicalInt(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	i, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil || strconv.FormatInt(i, 10) != string(b) {
		return 0, false
	}
	return i, true
}

// Bytes returns the canonical byte form, rendering integer-encoded objects
// on first use.
func (o *Obj) Bytes() []byte {
	if o.enc == encInt && o.b == nil {
		o.b = strconv.AppendInt(nil, o.i, 10)
	}
	return o.b
}

func (o *Obj) String() string {
	return string(o.Bytes())
}

func (o *Obj) Int64() (int64, bool) {
	if o.enc == encInt {
		return o.i, true
	}
	return parseCanonicalInt(o.b)
}

func (o *Obj) Len() int {
	return len(o.Bytes())
}

func (o *Obj) typeName() string { return "string" }

// equalObj compares semantic values: two integer-encoded objects compare by
// value, everything else by canonical bytes.
func equalObj(a, b *Obj) bool {
	if a.enc == encInt && b.enc == encInt {
		return a.i == b.i
	}
	return string(a.Bytes()) == string(b.Bytes())
}
