package keva

import "slices"

// Blocking pops park the client against one or more keys instead of
// returning: the connection's read side is detached (the dispatch loop's
// job) and the client is recorded in the per-key waiter lists. A later push
// against any of those keys hands the element straight to the oldest
// waiter, bypassing the list entirely.

// blockForKeys records the blocking state and inserts the client into the
// waiter list of every key, oldest first. A timeout of 0 never expires.
// Keys are deduplicated so the client appears exactly once per list.
func blockForKeys(c *Client, keys []*Obj, timeout int64, target *Obj) {
	c.bpop.timeout = timeout
	c.bpop.target = target

	for _, keyObj := range keys {
		key := keyObj.String()
		if slices.Contains(c.bpop.keys, key) {
			continue
		}
		c.bpop.keys = append(c.bpop.keys, key)
		c.db.blockingKeys[key] = append(c.db.blockingKeys[key], c)
	}
	c.flags |= clientBlocked
	c.srv.blocked = append(c.srv.blocked, c)
}

// unblockClient removes the client from every waiter list it appears in,
// dropping per-key lists that become empty, and queues it for the dispatch
// loop to re-examine. After this returns the client is in no blocking
// table.
func (s *Server) unblockClient(c *Client) {
	for _, key := range c.bpop.keys {
		waiters := c.db.blockingKeys[key]
		for i, w := range waiters {
			if w == c {
				waiters = append(waiters[:i], waiters[i+1:]...)
				break
			}
		}
		if len(waiters) == 0 {
			delete(c.db.blockingKeys, key)
		} else {
			c.db.blockingKeys[key] = waiters
		}
	}
	c.bpop = blockedState{}
	c.flags &^= clientBlocked
	c.flags |= clientUnblocked

	for i, b := range s.blocked {
		if b == c {
			s.blocked = append(s.blocked[:i], s.blocked[i+1:]...)
			break
		}
	}
	s.unblocked = append(s.unblocked, c)
}

// Unblock releases a parked client without a reply, for the disconnect
// path. No-op when the client is not blocked.
func (s *Server) Unblock(c *Client) {
	if c.Blocked() {
		s.unblockClient(c)
	}
}

// tryDeliver is consulted before any list push commits. When waiters exist
// for key, the element goes to the oldest one and the push never lands:
// either straight into the waiter's reply (plain pop) or onto its target
// list (pop-and-push). A waiter whose target holds a non-list value gets
// the wrong-type error and the next waiter is tried; only when every
// waiter was skipped does the caller fall back to a normal push.
//
// The iteration is bounded by the waiter count at entry; waiters that
// block during delivery are not considered this round.
func tryDeliver(db *DB, key string, ele *Obj) bool {
	numWaiters := len(db.blockingKeys[key])
	for ; numWaiters > 0; numWaiters-- {
		waiters := db.blockingKeys[key]
		if len(waiters) == 0 {
			panic("keva: blocking table out of sync")
		}
		receiver := waiters[0]
		target := receiver.bpop.target
		db.srv.unblockClient(receiver)

		if target == nil {
			receiver.addReplyMultiBulkLen(2)
			receiver.addReplyBulkBytes([]byte(key))
			receiver.addReplyBulkObj(ele)
			return true
		}

		dstKey := target.String()
		dv := db.lookupWrite(dstKey)
		if dv != nil {
			dstList, ok := dv.(*List)
			if !ok {
				// The target is wrong-typed: this waiter is dropped with the
				// error and the element is offered to the next one.
				receiver.addReplyError(wrongTypeErr)
				continue
			}
			rpoplpushHandlePush(receiver, dstKey, dstList, ele)
		} else {
			rpoplpushHandlePush(receiver, dstKey, nil, ele)
		}
		return true
	}
	return false
}

// HandleTimeouts is the periodic deadline sweep, driven by the event
// loop's timer tick. Expired waiters are unblocked with a nil reply.
func (s *Server) HandleTimeouts() {
	now := s.now().Unix()
	expired := make([]*Client, 0, 4)
	for _, c := range s.blocked {
		if c.bpop.timeout != 0 && now >= c.bpop.timeout {
			expired = append(expired, c)
		}
	}
	for _, c := range expired {
		c.addReplyNilMultiBulk()
		s.unblockClient(c)
	}
}

// parseTimeout converts a relative timeout argument into an absolute unix
// deadline; 0 means no expiry.
func parseTimeout(c *Client, o *Obj) (int64, bool) {
	tval, ok := o.Int64()
	if !ok {
		c.addReplyError("timeout is not an integer or out of range")
		return 0, false
	}
	if tval < 0 {
		c.addReplyError("timeout is negative")
		return 0, false
	}
	if tval > 0 {
		tval += c.srv.now().Unix()
	}
	return tval, true
}

func blockingPopGenericCommand(c *Client, head bool) {
	timeout, ok := parseTimeout(c, c.argv[len(c.argv)-1])
	if !ok {
		return
	}

	for j := 1; j < len(c.argv)-1; j++ {
		v := c.db.lookupWrite(c.argv[j].String())
		if v == nil {
			continue
		}
		lobj, isList := v.(*List)
		if !isList {
			c.addReplyError(wrongTypeErr)
			return
		}
		if lobj.Len() == 0 {
			continue
		}

		// Data is available, so this degrades to the non-blocking pop. The
		// command record is narrowed to the winning key and the reply gets
		// the two-element header the blocking form promises; the pop itself
		// appends the value.
		origArgv := c.argv
		c.argv = []*Obj{origArgv[0], origArgv[j]}
		c.addReplyMultiBulkLen(2)
		c.addReplyBulkObj(origArgv[j])
		popGenericCommand(c, head)
		c.argv = origArgv
		return
	}

	// Blocking inside MULTI/EXEC is forbidden; the only option is to treat
	// the miss as an immediate timeout.
	if c.flags&clientMulti != 0 {
		c.addReplyNilMultiBulk()
		return
	}

	blockForKeys(c, c.argv[1:len(c.argv)-1], timeout, nil)
}

func blpopCommand(c *Client) { blockingPopGenericCommand(c, true) }
func brpopCommand(c *Client) { blockingPopGenericCommand(c, false) }

func brpoplpushCommand(c *Client) {
	timeout, ok := parseTimeout(c, c.argv[3])
	if !ok {
		return
	}

	v := c.db.lookupWrite(c.argv[1].String())
	if v == nil {
		if c.flags&clientMulti != 0 {
			// Blocking against an empty list in a MULTI state returns
			// immediately.
			c.addReplyNilBulk()
		} else {
			blockForKeys(c, c.argv[1:2], timeout, c.argv[2])
		}
		return
	}
	if _, isList := v.(*List); !isList {
		c.addReplyError(wrongTypeErr)
		return
	}
	// The source exists and lists are never left empty, so the plain
	// RPOPLPUSH applies.
	rpoplpushCommand(c)
}
