package keva

import (
	"fmt"
	"strings"
)

type clientFlags uint8

const (
	clientBlocked clientFlags = 1 << iota
	clientUnblocked
	clientMulti
)

// Client is the per-connection handle the dispatch loop hands to command
// handlers. The connection itself (socket, codec) lives outside the core;
// the client carries the argument vector, the reply stream and the blocking
// state.
type Client struct {
	srv     *Server
	db      *DB
	argv    []*Obj
	flags   clientFlags
	replies []Reply
	bpop    blockedState
}

type blockedState struct {
	keys    []string
	timeout int64 // absolute unix seconds, 0 = no expiry
	target  *Obj  // BRPOPLPUSH destination, nil for plain pops
}

func (s *Server) NewClient() *Client {
	return s.NewClientDB(0)
}

func (s *Server) NewClientDB(db int) *Client {
	return &Client{srv: s, db: s.dbs[db]}
}

func (c *Client) Blocked() bool {
	return c.flags&clientBlocked != 0
}

// SetMulti marks the client as executing inside a MULTI/EXEC batch, which
// forbids blocking: blocking commands return an immediate nil instead.
func (c *Client) SetMulti(on bool) {
	if on {
		c.flags |= clientMulti
	} else {
		c.flags &^= clientMulti
	}
}

// Argv exposes the in-flight command record, after any rewrite (SPOP
// propagates as SREM). Consumed by replication/journaling collaborators.
func (c *Client) Argv() []string {
	args := make([]string, len(c.argv))
	for i, o := range c.argv {
		args[i] = o.String()
	}
	return args
}

// TakeReplies drains the accumulated reply stream.
func (c *Client) TakeReplies() []Reply {
	r := c.replies
	c.replies = nil
	return r
}

// rewriteCommand replaces the in-flight command record so that propagation
// observes a deterministic equivalent of what was executed.
func (c *Client) rewriteCommand(argv ...*Obj) {
	c.argv = argv
}

// Do executes one command against the client's database and returns the
// replies it produced. Replies delivered to other clients (blocking
// handoffs) land in their own reply streams.
func (c *Client) Do(args ...string) []Reply {
	if len(args) == 0 {
		panic("keva: empty command")
	}
	if c.Blocked() {
		panic("keva: command from a blocked client")
	}
	c.argv = make([]*Obj, len(args))
	for i, a := range args {
		c.argv[i] = newObjString(a)
	}
	mark := len(c.replies)
	name := strings.ToUpper(args[0])
	cmd, ok := c.srv.commands[name]
	if !ok {
		c.addReplyError(fmt.Sprintf("unknown command '%s'", args[0]))
		return c.replies[mark:]
	}
	if (cmd.arity > 0 && len(args) != cmd.arity) || len(args) < -cmd.arity {
		c.addReplyError(fmt.Sprintf("wrong number of arguments for '%s' command", cmd.name))
		return c.replies[mark:]
	}
	cmd.handler(c)
	return c.replies[mark:]
}
