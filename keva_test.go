package keva

import (
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// testClock is an injectable clock in the style of the journaltest harness:
// tests advance it explicitly and the server never sees the real time.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (tc *testClock) Now() time.Time {
	return tc.now
}

func (tc *testClock) Advance(d time.Duration) {
	tc.now = tc.now.Add(d)
}

type testEnv struct {
	srv      *Server
	clock    *testClock
	modified []string
}

func setup(t testing.TB, cfg Config) *testEnv {
	t.Helper()
	env := &testEnv{clock: newTestClock()}
	env.srv = NewServer(Options{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    env.clock.Now,
		Seed:   1,
		OnModified: func(db int, key string) {
			env.modified = append(env.modified, key)
		},
	})
	return env
}

func (env *testEnv) client() *Client {
	return env.srv.NewClient()
}

func intReply(n int64) Reply  { return Reply{Kind: ReplyInt, N: n} }
func bulk(s string) Reply     { return Reply{Kind: ReplyBulk, Bulk: []byte(s)} }
func nilBulk() Reply          { return Reply{Kind: ReplyNilBulk} }
func mbLen(n int64) Reply     { return Reply{Kind: ReplyMultiBulkLen, N: n} }
func nilMulti() Reply         { return Reply{Kind: ReplyNilMultiBulk} }
func status(msg string) Reply { return Reply{Kind: ReplyStatus, Msg: msg} }
func errReply(msg string) Reply {
	return Reply{Kind: ReplyError, Msg: msg}
}

// testingT is the slice of testing.TB that both *testing.T and *rapid.T
// provide.
type testingT interface {
	Helper()
	Errorf(format string, args ...any)
}

func replyEq(t testingT, got []Reply, want ...Reply) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("** replies differ (-want +got):\n%s", diff)
	}
}

// bulkStrings extracts the bulk payloads of a reply stream, skipping
// headers, for order-insensitive comparisons.
func bulkStrings(replies []Reply) []string {
	out := []string{}
	for _, r := range replies {
		if r.Kind == ReplyBulk {
			out = append(out, string(r.Bulk))
		}
	}
	return out
}

func sortedBulkStrings(replies []Reply) []string {
	out := bulkStrings(replies)
	sort.Strings(out)
	return out
}

func setAt(t testing.TB, env *testEnv, key string) *Set {
	t.Helper()
	v := env.srv.dbs[0].lookupRead(key)
	if v == nil {
		t.Fatalf("key %q missing", key)
	}
	s, ok := v.(*Set)
	if !ok {
		t.Fatalf("key %q holds a %s, not a set", key, v.typeName())
	}
	return s
}

func listAt(t testing.TB, env *testEnv, key string) *List {
	t.Helper()
	v := env.srv.dbs[0].lookupRead(key)
	if v == nil {
		t.Fatalf("key %q missing", key)
	}
	l, ok := v.(*List)
	if !ok {
		t.Fatalf("key %q holds a %s, not a list", key, v.typeName())
	}
	return l
}

func lrangeAll(c *Client, key string) []string {
	return bulkStrings(c.Do("LRANGE", key, "0", "-1"))
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}
