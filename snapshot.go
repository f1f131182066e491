package keva

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

// Snapshots are the concrete interface of the persistence collaborator:
// an explicit full dump of every keyspace into a bbolt file, one msgpack
// record per key, and the reverse load that rebuilds containers through
// the normal creation paths so each lands in the right encoding for its
// content and size. No command consults the snapshot; durability policy
// (when to save, whether to fsync) belongs to the caller.

type snapshotRecord struct {
	Type  string   `msgpack:"t"`
	Value []byte   `msgpack:"v,omitempty"`
	Items [][]byte `msgpack:"i,omitempty"`
}

func snapshotBucket(db int) []byte {
	return []byte(fmt.Sprintf("db%d", db))
}

func (s *Server) SaveSnapshot(path string) error {
	start := s.now()
	bdb, err := bbolt.Open(path, 0666, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("keva: snapshot open: %w", err)
	}
	defer bdb.Close()

	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, db := range s.dbs {
			name := snapshotBucket(db.num)
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
			b, err := tx.CreateBucket(name)
			if err != nil {
				return err
			}
			for key, v := range db.dict {
				rec, err := encodeSnapshotRecord(v)
				if err != nil {
					return fmt.Errorf("key %q: %w", key, err)
				}
				if err := b.Put([]byte(key), rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("keva: snapshot save: %w", err)
	}
	s.log.Info("snapshot saved", "path", path, "elapsed", s.now().Sub(start))
	return nil
}

func encodeSnapshotRecord(v Value) ([]byte, error) {
	var rec snapshotRecord
	switch v := v.(type) {
	case *Obj:
		rec = snapshotRecord{Type: "string", Value: v.Bytes()}
	case *List:
		rec = snapshotRecord{Type: "list", Items: make([][]byte, 0, v.Len())}
		it := v.iterate()
		var ele Literal
		for it.next(&ele) {
			rec.Items = append(rec.Items, append([]byte(nil), ele.bytes()...))
			ele.ClearDirty()
		}
	case *Set:
		rec = snapshotRecord{Type: "set", Items: make([][]byte, 0, v.Size())}
		it := v.iterate()
		var ele Literal
		for it.next(&ele) {
			rec.Items = append(rec.Items, append([]byte(nil), ele.bytes()...))
			ele.ClearDirty()
		}
	default:
		return nil, fmt.Errorf("unknown value type %q", v.typeName())
	}
	return msgpack.Marshal(&rec)
}

// LoadSnapshot replaces the contents of every keyspace with the snapshot's.
// Clients blocked on keys are not disturbed; loading mid-traffic is the
// caller's mistake.
func (s *Server) LoadSnapshot(path string) error {
	bdb, err := bbolt.Open(path, 0666, &bbolt.Options{Timeout: 10 * time.Second, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("keva: snapshot open: %w", err)
	}
	defer bdb.Close()

	err = bdb.View(func(tx *bbolt.Tx) error {
		for _, db := range s.dbs {
			db.dict = make(map[string]Value)
			b := tx.Bucket(snapshotBucket(db.num))
			if b == nil {
				continue
			}
			err := b.ForEach(func(k, v []byte) error {
				value, err := decodeSnapshotRecord(v, &s.cfg)
				if err != nil {
					return fmt.Errorf("key %q: %w", k, err)
				}
				db.dict[string(k)] = value
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("keva: snapshot load: %w", err)
	}
	s.log.Info("snapshot loaded", "path", path)
	return nil
}

func decodeSnapshotRecord(data []byte, cfg *Config) (Value, error) {
	var rec snapshotRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Type {
	case "string":
		return tryObjectEncoding(newObj(rec.Value)), nil
	case "list":
		l := newZiplistList()
		for _, item := range rec.Items {
			l.Push(tryObjectEncoding(newObj(item)), false, cfg)
		}
		return l, nil
	case "set":
		if len(rec.Items) == 0 {
			return nil, fmt.Errorf("empty set record")
		}
		first := tryObjectEncoding(newObj(rec.Items[0]))
		set := newSetFor(first)
		for _, item := range rec.Items {
			ele := litFromObj(tryObjectEncoding(newObj(item)))
			set.Add(&ele, cfg)
		}
		return set, nil
	default:
		return nil, fmt.Errorf("unknown record type %q", rec.Type)
	}
}
