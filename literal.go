package keva

// Literal is the cross-encoding element currency: a tagged view holding
// either an integer or a byte slice. The byte variant usually borrows from a
// container's storage and stays valid only until the container mutates or
// the producing iterator advances.
//
// Obj materialises a value object on demand and caches it; a literal that
// materialised is "dirty" and the final consumer clears it with ClearDirty.
// With a garbage collector clearing is about dropping the cache, not about
// freeing, but the contract is kept so borrowing and ownership stay visible
// at every call site.
type Literal struct {
	isInt bool
	i     int64
	b     []byte
	obj   *Obj
	dirty bool
}

func litFromInt64(i int64) Literal {
	return Literal{isInt: true, i: i}
}

func litFromBytes(b []byte) Literal {
	return Literal{b: b}
}

func litFromObj(o *Obj) Literal {
	if o.enc == encInt {
		return Literal{isInt: true, i: o.i, obj: o}
	}
	return Literal{b: o.Bytes(), obj: o}
}

// Int64 reports the integer value: direct for the integer variant, parsed
// from canonical decimal bytes otherwise.
func (l *Literal) Int64() (int64, bool) {
	if l.isInt {
		return l.i, true
	}
	return parseCanonicalInt(l.b)
}

// Obj returns a value object for the literal, materialising (and copying
// borrowed bytes) on first use. A literal that materialised here is dirty.
func (l *Literal) Obj() *Obj {
	if l.obj == nil {
		if l.isInt {
			l.obj = newObjInt(l.i)
		} else {
			b := make([]byte, len(l.b))
			copy(b, l.b)
			l.obj = newObj(b)
		}
		l.dirty = true
	}
	return l.obj
}

func (l *Literal) ClearDirty() {
	if l.dirty {
		l.obj = nil
		l.dirty = false
	}
}

// bytes returns the canonical byte form. The byte variant aliases the
// borrowed storage; the integer variant materialises, so the literal may
// come back dirty.
func (l *Literal) bytes() []byte {
	if l.isInt {
		return l.Obj().Bytes()
	}
	return l.b
}

func (l *Literal) equal(other *Literal) bool {
	if a, ok := l.Int64(); ok {
		b, ok2 := other.Int64()
		return ok2 && a == b
	}
	if _, ok := other.Int64(); ok {
		return false
	}
	return string(l.b) == string(other.b)
}
