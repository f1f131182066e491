/*
Package keva implements the in-memory collection engine of a
single-threaded key/value server: sets and lists with two interchangeable
physical encodings each, multi-key set algebra, and the blocking-pop
rendezvous that parks clients against keys until a matching push.

We implement:

1. Sets, unique-element collections stored either as a packed sorted
integer array or as a hash table of byte strings.

2. Lists, ordered sequences stored either as a packed buffer of short
entries or as a doubly-linked list of shared value objects.

3. Set algebra: intersection, union and difference over any number of
source keys, streamed as a reply or stored into a destination key.

4. Blocking pops: BLPOP, BRPOP and BRPOPLPUSH, which suspend a client
against one or more keys; a push hands the element to the oldest waiter
directly, bypassing the list.

5. Snapshots, an explicit save/load of the whole keyspace to a Bolt file.

# Technical Details

**Encodings.**
Each container carries an encoding tag and every operation dispatches on
it. Promotion to the general encoding is one-way and automatic: sets leave
the packed form when a non-integer arrives or the configured cardinality
is exceeded; lists leave it on a length threshold or an oversized value.

**Literals.**
Elements travel between encodings as tagged literals holding either an
integer or a byte slice. Byte literals usually borrow container storage
and are invalidated by mutation; materialising a value object marks the
literal dirty, and the final consumer clears it.

**Scheduling.**
The engine is single-threaded and cooperative. Commands run to completion;
blocking commands return immediately after registering the client in the
rendezvous tables, and the dispatch loop (outside this package) detaches
the connection until the client is unblocked by a push, a deadline or a
disconnect.

**Replies.**
Commands produce a flat stream of typed reply values mirroring the wire
protocol's shapes (status, error, integer, bulk, multi-bulk); the codec
itself lives outside this package.
*/
package keva
