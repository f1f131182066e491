package keva

// Replies are produced as a flat stream of typed values, exactly the shape
// the wire codec (an external collaborator) would serialise: a multi-bulk
// header followed by its elements, rather than a nested tree. That keeps
// the deferred-length trick of SINTER and the two-element handoff reply of
// the blocking pops identical to their original form.

type ReplyKind uint8

const (
	ReplyStatus ReplyKind = iota
	ReplyError
	ReplyInt
	ReplyBulk
	ReplyNilBulk
	ReplyMultiBulkLen
	ReplyNilMultiBulk
)

type Reply struct {
	Kind ReplyKind
	N    int64  // ReplyInt value or ReplyMultiBulkLen count
	Bulk []byte // ReplyBulk payload
	Msg  string // ReplyStatus or ReplyError text
}

const (
	wrongTypeErr  = "Operation against a key holding the wrong kind of value"
	outOfRangeErr = "index out of range"
	noSuchKeyErr  = "no such key"
	syntaxErr     = "syntax error"
)

func (c *Client) addReplyStatus(msg string) {
	c.replies = append(c.replies, Reply{Kind: ReplyStatus, Msg: msg})
}

func (c *Client) addReplyError(msg string) {
	c.replies = append(c.replies, Reply{Kind: ReplyError, Msg: msg})
}

func (c *Client) addReplyInt64(n int64) {
	c.replies = append(c.replies, Reply{Kind: ReplyInt, N: n})
}

func (c *Client) addReplyBulkBytes(b []byte) {
	c.replies = append(c.replies, Reply{Kind: ReplyBulk, Bulk: b})
}

func (c *Client) addReplyBulkObj(o *Obj) {
	c.addReplyBulkBytes(o.Bytes())
}

func (c *Client) addReplyBulkLiteral(l *Literal) {
	if l.isInt {
		c.addReplyBulkBytes(l.Obj().Bytes())
	} else {
		b := make([]byte, len(l.b))
		copy(b, l.b)
		c.addReplyBulkBytes(b)
	}
}

func (c *Client) addReplyNilBulk() {
	c.replies = append(c.replies, Reply{Kind: ReplyNilBulk})
}

func (c *Client) addReplyMultiBulkLen(n int) {
	c.replies = append(c.replies, Reply{Kind: ReplyMultiBulkLen, N: int64(n)})
}

func (c *Client) addReplyNilMultiBulk() {
	c.replies = append(c.replies, Reply{Kind: ReplyNilMultiBulk})
}

// addDeferredMultiBulkLen reserves a header slot whose count is not known
// yet; setDeferredMultiBulkLen fills it in once iteration finished.
func (c *Client) addDeferredMultiBulkLen() int {
	c.replies = append(c.replies, Reply{Kind: ReplyMultiBulkLen, N: -1})
	return len(c.replies) - 1
}

func (c *Client) setDeferredMultiBulkLen(slot int, n int) {
	c.replies[slot].N = int64(n)
}
