// Package memengine is an in-memory reference implementation of
// kv.Engine, backing each column family with a github.com/google/btree
// B-tree (see SPEC_FULL.md's DOMAIN STACK section). An iterator merges
// the btree's contents with the transaction's pending writes and sorts
// the merged keys, so scans come out in key order.
//
// It is not durable and holds no WAL: per spec 1, WAL management and
// replication are delegated to the KV engine, and this reference engine
// simply does not need them to exercise the rest of the pipeline.
package memengine

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/tbui468/weaseldb/kv"
)

type kvItem struct {
	key, value []byte
}

func less(a, b kvItem) bool { return bytes.Compare(a.key, b.key) < 0 }

// Engine is a kv.Engine backed by one btree per column family.
type Engine struct {
	mu  sync.Mutex
	cfs map[string]*btree.BTreeG[kvItem]
}

// New creates an empty Engine.
func New() *Engine {
	return &Engine{cfs: make(map[string]*btree.BTreeG[kvItem])}
}

func (e *Engine) CreateColumnFamily(cf string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cfs[cf]; !ok {
		e.cfs[cf] = btree.NewG(32, less)
	}
	return nil
}

func (e *Engine) DropColumnFamily(cf string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cfs, cf)
	return nil
}

func (e *Engine) Close() error { return nil }

func (e *Engine) Begin() (kv.Txn, error) {
	return &txn{engine: e, writes: make(map[string]map[string][]byte), deletes: make(map[string]map[string]bool)}, nil
}

// txn buffers writes in memory and applies them to the engine's
// btrees on Commit, under the engine mutex, so that two concurrent
// commits cannot interleave on the same column family. Reads check the
// txn's own buffer first, giving it visibility into its own
// uncommitted writes, per spec 5.
type txn struct {
	engine  *Engine
	writes  map[string]map[string][]byte
	deletes map[string]map[string]bool
	done    bool
}

func (t *txn) Put(cf string, key, value []byte) error {
	if t.done {
		return errors.New("memengine: txn already finished")
	}
	if t.writes[cf] == nil {
		t.writes[cf] = make(map[string][]byte)
	}
	if t.deletes[cf] != nil {
		delete(t.deletes[cf], string(key))
	}
	t.writes[cf][string(key)] = append([]byte(nil), value...)
	return nil
}

func (t *txn) Delete(cf string, key []byte) error {
	if t.done {
		return errors.New("memengine: txn already finished")
	}
	if t.writes[cf] != nil {
		delete(t.writes[cf], string(key))
	}
	if t.deletes[cf] == nil {
		t.deletes[cf] = make(map[string]bool)
	}
	t.deletes[cf][string(key)] = true
	return nil
}

func (t *txn) Get(cf string, key []byte) ([]byte, bool, error) {
	if w, ok := t.writes[cf]; ok {
		if v, ok := w[string(key)]; ok {
			return v, true, nil
		}
	}
	if d, ok := t.deletes[cf]; ok && d[string(key)] {
		return nil, false, nil
	}

	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	bt, ok := t.engine.cfs[cf]
	if !ok {
		return nil, false, errors.Errorf("memengine: unknown column family %q", cf)
	}
	item, ok := bt.Get(kvItem{key: key})
	if !ok {
		return nil, false, nil
	}
	return item.value, true, nil
}

func (t *txn) Commit() error {
	if t.done {
		return errors.New("memengine: txn already finished")
	}
	t.done = true

	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()

	for cf, kvs := range t.writes {
		bt, ok := t.engine.cfs[cf]
		if !ok {
			return errors.Errorf("memengine: unknown column family %q", cf)
		}
		for k, v := range kvs {
			bt.ReplaceOrInsert(kvItem{key: []byte(k), value: v})
		}
	}
	for cf, ks := range t.deletes {
		bt, ok := t.engine.cfs[cf]
		if !ok {
			continue
		}
		for k := range ks {
			bt.Delete(kvItem{key: []byte(k)})
		}
	}
	return nil
}

func (t *txn) Rollback() error {
	t.done = true
	t.writes = nil
	t.deletes = nil
	return nil
}

// NewIterator returns an iterator that merges the txn's own pending
// writes over a point-in-time snapshot of the underlying btree, so a
// scan started mid-transaction observes the transaction's own puts and
// deletes.
func (t *txn) NewIterator(cf string) (kv.Iterator, error) {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()

	bt, ok := t.engine.cfs[cf]
	if !ok {
		return nil, errors.Errorf("memengine: unknown column family %q", cf)
	}

	merged := make(map[string][]byte)
	bt.Ascend(func(item kvItem) bool {
		merged[string(item.key)] = item.value
		return true
	})
	for k, v := range t.writes[cf] {
		merged[k] = v
	}
	for k := range t.deletes[cf] {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sortStrings(keys)

	return &iterator{keys: keys, values: merged, pos: -1}, nil
}

func sortStrings(keys []string) {
	// insertion sort is adequate here: iterators are built once per
	// statement-scoped scan over modest in-memory tables.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

type iterator struct {
	keys   []string
	values map[string][]byte
	pos    int
}

func (it *iterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *iterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *iterator) Value() []byte { return it.values[it.keys[it.pos]] }
func (it *iterator) Close() error  { return nil }
