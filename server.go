package keva

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

// Server is the process-wide engine state: configuration, the databases,
// the dirty counter consumed by persistence/replication collaborators, and
// the blocking bookkeeping shared by all databases.
//
// Everything here is mutated only by the currently executing command; the
// scheduling model is single-threaded and cooperative, so there are no
// locks.
type Server struct {
	cfg Config
	log *slog.Logger
	now func() time.Time
	rnd *rand.Rand

	dbs []*DB

	dirty      uint64
	onModified func(db int, key string)

	blocked   []*Client // registration order, scanned by HandleTimeouts
	unblocked []*Client // ready for the dispatch loop to re-examine

	commands map[string]command
}

type command struct {
	name    string
	arity   int // exact when positive, minimum -arity when negative
	handler func(*Client)
}

type Options struct {
	Config    Config
	Databases int
	Logger    *slog.Logger

	// Now and Seed make time and randomness injectable for tests.
	Now  func() time.Time
	Seed uint64

	// OnModified observes every signal-modified notification.
	OnModified func(db int, key string)
}

func NewServer(opt Options) *Server {
	opt.Config.applyDefaults()
	if opt.Databases == 0 {
		opt.Databases = 1
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	s := &Server{
		cfg:        opt.Config,
		log:        opt.Logger,
		now:        opt.Now,
		rnd:        rand.New(rand.NewPCG(opt.Seed, opt.Seed^0x9E3779B97F4A7C15)),
		onModified: opt.OnModified,
	}
	s.dbs = make([]*DB, opt.Databases)
	for i := range s.dbs {
		s.dbs[i] = newDB(s, i)
	}
	s.registerCommands()
	return s
}

// Dirty returns the monotonic count of mutating operations.
func (s *Server) Dirty() uint64 {
	return s.dirty
}

// BlockedClients returns the number of currently parked clients.
func (s *Server) BlockedClients() int {
	return len(s.blocked)
}

// TakeUnblocked drains the queue of clients released since the last call;
// the dispatch loop re-attaches their connections and re-examines them.
func (s *Server) TakeUnblocked() []*Client {
	u := s.unblocked
	s.unblocked = nil
	for _, c := range u {
		c.flags &^= clientUnblocked
	}
	return u
}

func (s *Server) registerCommands() {
	s.commands = make(map[string]command)
	add := func(name string, arity int, handler func(*Client)) {
		s.commands[name] = command{name: name, arity: arity, handler: handler}
	}

	add("SADD", 3, saddCommand)
	add("SREM", 3, sremCommand)
	add("SMOVE", 4, smoveCommand)
	add("SISMEMBER", 3, sismemberCommand)
	add("SCARD", 2, scardCommand)
	add("SPOP", 2, spopCommand)
	add("SRANDMEMBER", 2, srandmemberCommand)
	add("SMEMBERS", 2, smembersCommand)
	add("SINTER", -2, sinterCommand)
	add("SINTERSTORE", -3, sinterstoreCommand)
	add("SUNION", -2, sunionCommand)
	add("SUNIONSTORE", -3, sunionstoreCommand)
	add("SDIFF", -2, sdiffCommand)
	add("SDIFFSTORE", -3, sdiffstoreCommand)

	add("LPUSH", 3, lpushCommand)
	add("RPUSH", 3, rpushCommand)
	add("LPUSHX", 3, lpushxCommand)
	add("RPUSHX", 3, rpushxCommand)
	add("LINSERT", 5, linsertCommand)
	add("LLEN", 2, llenCommand)
	add("LINDEX", 3, lindexCommand)
	add("LSET", 4, lsetCommand)
	add("LPOP", 2, lpopCommand)
	add("RPOP", 2, rpopCommand)
	add("LRANGE", 4, lrangeCommand)
	add("LTRIM", 4, ltrimCommand)
	add("LREM", 4, lremCommand)
	add("RPOPLPUSH", 3, rpoplpushCommand)

	add("BLPOP", -3, blpopCommand)
	add("BRPOP", -3, brpopCommand)
	add("BRPOPLPUSH", 4, brpoplpushCommand)
}
