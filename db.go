package keva

// Value is anything the keyspace can hold: a string object, a list or a
// set. Command handlers recover the concrete container with a type
// assertion, which is the original's type-tag check at the keyspace level.
type Value interface {
	typeName() string
}

// DB is one keyspace: a flat key → value map plus the table of clients
// blocked on keys of this database.
type DB struct {
	srv          *Server
	num          int
	dict         map[string]Value
	blockingKeys map[string][]*Client
}

func newDB(srv *Server, num int) *DB {
	return &DB{
		srv:          srv,
		num:          num,
		dict:         make(map[string]Value),
		blockingKeys: make(map[string][]*Client),
	}
}

func (db *DB) lookupRead(key string) Value {
	return db.dict[key]
}

func (db *DB) lookupWrite(key string) Value {
	return db.dict[key]
}

func (db *DB) add(key string, v Value) {
	db.dict[key] = v
}

func (db *DB) remove(key string) bool {
	if _, ok := db.dict[key]; !ok {
		return false
	}
	delete(db.dict, key)
	return true
}

// signalModified notifies external collaborators (keyspace watchers) that
// key changed. Commands emit exactly one signal per affected key.
func (db *DB) signalModified(key string) {
	if f := db.srv.onModified; f != nil {
		f(db.num, key)
	}
}

// Exists reports key presence; exposed for tests and collaborators.
func (db *DB) Exists(key string) bool {
	_, ok := db.dict[key]
	return ok
}

func (db *DB) Len() int {
	return len(db.dict)
}

func (c *Client) lookupReadOrReply(key string, miss Reply) Value {
	v := c.db.lookupRead(key)
	if v == nil {
		c.replies = append(c.replies, miss)
	}
	return v
}

func (c *Client) lookupWriteOrReply(key string, miss Reply) Value {
	v := c.db.lookupWrite(key)
	if v == nil {
		c.replies = append(c.replies, miss)
	}
	return v
}

// checkSet narrows v to a set, emitting the shared wrong-type error
// otherwise.
func (c *Client) checkSet(v Value) (*Set, bool) {
	s, ok := v.(*Set)
	if !ok {
		c.addReplyError(wrongTypeErr)
	}
	return s, ok
}

func (c *Client) checkList(v Value) (*List, bool) {
	l, ok := v.(*List)
	if !ok {
		c.addReplyError(wrongTypeErr)
	}
	return l, ok
}

var (
	replyCZero          = Reply{Kind: ReplyInt, N: 0}
	replyNilBulk        = Reply{Kind: ReplyNilBulk}
	replyEmptyMultiBulk = Reply{Kind: ReplyMultiBulkLen, N: 0}
	replyOK             = Reply{Kind: ReplyStatus, Msg: "OK"}
	replyNoSuchKey      = Reply{Kind: ReplyError, Msg: noSuchKeyErr}
)
