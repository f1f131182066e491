package keva

import (
	"fmt"
	"strconv"
	"testing"
)

func TestSAddBasics(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	replyEq(t, c.Do("SADD", "s", "1"), intReply(1))
	replyEq(t, c.Do("SADD", "s", "1"), intReply(0))
}

func TestSetIntsetEncoding(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "s", "1")
	c.Do("SADD", "s", "2")
	if s := setAt(t, env, "s"); s.enc != setIntset {
		t.Fatalf("enc = %d, want intset", s.enc)
	}
	replyEq(t, c.Do("SCARD", "s"), intReply(2))
	replyEq(t, c.Do("SISMEMBER", "s", "2"), intReply(1))
	replyEq(t, c.Do("SISMEMBER", "s", "3"), intReply(0))
}

func TestSetPromotionOnNonInteger(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "s", "1")
	c.Do("SADD", "s", "2")
	replyEq(t, c.Do("SADD", "s", "x"), intReply(1))

	s := setAt(t, env, "s")
	if s.enc != setHashtable {
		t.Fatalf("enc = %d, want hashtable after non-integer add", s.enc)
	}
	replyEq(t, c.Do("SCARD", "s"), intReply(3))
	replyEq(t, c.Do("SISMEMBER", "s", "2"), intReply(1))
	replyEq(t, c.Do("SISMEMBER", "s", "x"), intReply(1))
}

func TestSetPromotionOnSize(t *testing.T) {
	const max = 16
	env := setup(t, Config{SetMaxIntsetEntries: max})
	c := env.client()

	for i := 1; i <= max; i++ {
		c.Do("SADD", "s", strconv.Itoa(i))
	}
	if s := setAt(t, env, "s"); s.enc != setIntset {
		t.Fatalf("promoted too early at %d entries", max)
	}
	c.Do("SADD", "s", strconv.Itoa(max+1))
	if s := setAt(t, env, "s"); s.enc != setHashtable {
		t.Fatalf("not promoted past %d entries", max)
	}
	replyEq(t, c.Do("SCARD", "s"), intReply(max+1))
	for i := 1; i <= max+1; i++ {
		replyEq(t, c.Do("SISMEMBER", "s", strconv.Itoa(i)), intReply(1))
	}
}

func TestSetNeverDemotes(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "s", "x")
	c.Do("SADD", "s", "1")
	c.Do("SREM", "s", "x")
	if s := setAt(t, env, "s"); s.enc != setHashtable {
		t.Fatalf("set demoted after removing the non-integer element")
	}
}

func TestSRemDeletesEmptyKey(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "s", "1")
	env.modified = nil
	replyEq(t, c.Do("SREM", "s", "1"), intReply(1))
	if env.srv.dbs[0].Exists("s") {
		t.Fatalf("key still exists after the set became empty")
	}
	if len(env.modified) != 1 || env.modified[0] != "s" {
		t.Fatalf("modified signals = %v, want exactly one for s", env.modified)
	}
	replyEq(t, c.Do("SREM", "s", "1"), intReply(0))
}

func TestSRemMiss(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "s", "1")
	dirty := env.srv.Dirty()
	replyEq(t, c.Do("SREM", "s", "2"), intReply(0))
	if env.srv.Dirty() != dirty {
		t.Errorf("failed SREM bumped the dirty counter")
	}
}

func TestSMove(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "src", "a")
	c.Do("SADD", "src", "b")
	c.Do("SADD", "dst", "c")
	replyEq(t, c.Do("SMOVE", "src", "dst", "a"), intReply(1))
	replyEq(t, c.Do("SISMEMBER", "src", "a"), intReply(0))
	replyEq(t, c.Do("SISMEMBER", "dst", "a"), intReply(1))

	// Moving a missing element reports 0.
	replyEq(t, c.Do("SMOVE", "src", "dst", "nope"), intReply(0))

	// Moving the last element deletes the source key.
	replyEq(t, c.Do("SMOVE", "src", "dst", "b"), intReply(1))
	if env.srv.dbs[0].Exists("src") {
		t.Fatalf("src still exists after moving its last element")
	}

	// Missing source reports 0.
	replyEq(t, c.Do("SMOVE", "src", "dst", "b"), intReply(0))
}

func TestSMoveCreatesDestination(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "src", "7")
	replyEq(t, c.Do("SMOVE", "src", "fresh", "7"), intReply(1))
	if s := setAt(t, env, "fresh"); s.enc != setIntset {
		t.Fatalf("fresh destination for an integer should be intset-encoded")
	}
}

func TestSMoveWrongType(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "src", "a")
	c.Do("RPUSH", "lst", "x")
	replyEq(t, c.Do("SMOVE", "src", "lst", "a"), errReply(wrongTypeErr))
	replyEq(t, c.Do("SISMEMBER", "src", "a"), intReply(1))
}

func TestSPop(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	members := map[string]bool{"a": true, "b": true, "c": true}
	for m := range members {
		c.Do("SADD", "s", m)
	}
	c.TakeReplies()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		replies := c.Do("SPOP", "s")
		if len(replies) != 1 || replies[0].Kind != ReplyBulk {
			t.Fatalf("SPOP replies = %v", replies)
		}
		got := string(replies[0].Bulk)
		if !members[got] || seen[got] {
			t.Fatalf("SPOP returned %q (members %v, seen %v)", got, members, seen)
		}
		seen[got] = true

		// Propagation must observe SREM of the popped element.
		wantArgv := []string{"SREM", "s", got}
		gotArgv := c.Argv()
		if len(gotArgv) != 3 || gotArgv[0] != wantArgv[0] || gotArgv[1] != wantArgv[1] || gotArgv[2] != wantArgv[2] {
			t.Fatalf("argv after SPOP = %v, want %v", gotArgv, wantArgv)
		}
	}
	if env.srv.dbs[0].Exists("s") {
		t.Fatalf("key still exists after popping every member")
	}
	replyEq(t, c.Do("SPOP", "s"), nilBulk())
}

func TestSRandMember(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "s", "10")
	c.Do("SADD", "s", "20")
	c.TakeReplies()
	for i := 0; i < 20; i++ {
		replies := c.Do("SRANDMEMBER", "s")
		got := string(replies[0].Bulk)
		if got != "10" && got != "20" {
			t.Fatalf("SRANDMEMBER returned %q", got)
		}
	}
	replyEq(t, c.Do("SCARD", "s"), intReply(2))

	replyEq(t, c.Do("SRANDMEMBER", "missing"), nilBulk())
}

func TestSetWrongTypeErrors(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("RPUSH", "lst", "x")
	for _, cmd := range [][]string{
		{"SADD", "lst", "v"},
		{"SREM", "lst", "v"},
		{"SISMEMBER", "lst", "v"},
		{"SCARD", "lst"},
		{"SPOP", "lst"},
		{"SRANDMEMBER", "lst"},
	} {
		replyEq(t, c.Do(cmd...), errReply(wrongTypeErr))
	}
}

func TestSetUniquenessInvariant(t *testing.T) {
	env := setup(t, Config{SetMaxIntsetEntries: 4})
	c := env.client()

	added := map[string]bool{}
	for i := 0; i < 200; i++ {
		m := fmt.Sprintf("%d", i%17)
		if i%3 == 0 {
			m = fmt.Sprintf("str%d", i%11)
		}
		replies := c.Do("SADD", "s", m)
		wantInserted := int64(0)
		if !added[m] {
			wantInserted = 1
		}
		replyEq(t, replies, intReply(wantInserted))
		added[m] = true
	}
	replyEq(t, c.Do("SCARD", "s"), intReply(int64(len(added))))
}

func TestSMembers(t *testing.T) {
	env := setup(t, Config{})
	c := env.client()

	c.Do("SADD", "s", "b")
	c.Do("SADD", "s", "a")
	c.TakeReplies()
	replies := c.Do("SMEMBERS", "s")
	if replies[0].Kind != ReplyMultiBulkLen || replies[0].N != 2 {
		t.Fatalf("SMEMBERS header = %v", replies[0])
	}
	deep := sortedBulkStrings(replies)
	if len(deep) != 2 || deep[0] != "a" || deep[1] != "b" {
		t.Fatalf("SMEMBERS = %v", deep)
	}
}
