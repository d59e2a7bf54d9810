// Package memstore provides the memory-resident stores backing the workflow.
// Records live in sharded maps; mutations run on a private clone under the
// shard lock and commit only when the mutation succeeds, so concurrent
// guarded updates on one key serialize and a failed guard leaves the record
// untouched.
package memstore

import (
	"hash/fnv"
	"sync"
)

const shardCount = 16

type cloneable[V any] interface {
	Clone() V
}

type shard[V cloneable[V]] struct {
	mu      sync.RWMutex
	records map[string]V
}

type shardedMap[V cloneable[V]] struct {
	shards [shardCount]*shard[V]
}

func newShardedMap[V cloneable[V]]() *shardedMap[V] {
	m := &shardedMap[V]{}
	for i := range m.shards {
		m.shards[i] = &shard[V]{records: make(map[string]V)}
	}
	return m
}

func (m *shardedMap[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

// get returns a clone of the record, so callers never see later mutations.
func (m *shardedMap[V]) get(key string) (V, bool) {
	sh := m.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	v, ok := sh.records[key]
	if !ok {
		var zero V
		return zero, false
	}
	return v.Clone(), true
}

// insertIfAbsent stores a clone of v; it reports false when the key exists.
func (m *shardedMap[V]) insertIfAbsent(key string, v V) bool {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.records[key]; exists {
		return false
	}
	sh.records[key] = v.Clone()
	return true
}

// update clones the record, applies fn, and commits the clone only when fn
// returns nil. The whole sequence holds the shard lock, so two racing
// updates on one key observe each other's committed state.
func (m *shardedMap[V]) update(key string, fn func(V) error) (V, bool, error) {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := sh.records[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		var zero V
		return zero, true, err
	}
	sh.records[key] = next
	return next.Clone(), true, nil
}

// upsert is update with create-on-miss via fresh.
func (m *shardedMap[V]) upsert(key string, fresh func() V, fn func(V) error) (V, error) {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := sh.records[key]
	if !ok {
		current = fresh()
	} else {
		current = current.Clone()
	}
	if err := fn(current); err != nil {
		var zero V
		return zero, err
	}
	sh.records[key] = current
	return current.Clone(), nil
}

func (m *shardedMap[V]) remove(key string) bool {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.records[key]; !ok {
		return false
	}
	delete(sh.records, key)
	return true
}

// snapshot returns clones of every record, shard by shard. No global order
// is guaranteed.
func (m *shardedMap[V]) snapshot() []V {
	out := make([]V, 0)
	for _, sh := range m.shards {
		sh.mu.RLock()
		for _, v := range sh.records {
			out = append(out, v.Clone())
		}
		sh.mu.RUnlock()
	}
	return out
}

func (m *shardedMap[V]) len() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}
