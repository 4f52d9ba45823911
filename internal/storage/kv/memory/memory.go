// Package memory is an in-process kv.DB used for ephemeral runs and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/CjHare/ton-amm-dex/internal/storage/kv"
)

// DB keeps every entry in a map.
type DB struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func New() *DB {
	return &DB{data: make(map[string][]byte)}
}

func (m *DB) Get(_ context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, kv.ErrClosed
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *DB) Put(_ context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return kv.ErrClosed
	}
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *DB) Delete(_ context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return kv.ErrClosed
	}
	delete(m.data, string(key))
	return nil
}

func (m *DB) Apply(_ context.Context, ops []kv.Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return kv.ErrClosed
	}
	for _, op := range ops {
		if op.Kind != kv.OpPut && op.Kind != kv.OpDelete {
			return fmt.Errorf("unknown op kind %d", op.Kind)
		}
	}
	for _, op := range ops {
		if op.Kind == kv.OpPut {
			m.data[string(op.Key)] = append([]byte(nil), op.Value...)
		} else {
			delete(m.data, string(op.Key))
		}
	}
	return nil
}

// Iterate snapshots the matching range.
func (m *DB) Iterate(_ context.Context, start, end []byte) (kv.Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, kv.ErrClosed
	}
	var keys []string
	for k := range m.data {
		b := []byte(k)
		if start != nil && bytes.Compare(b, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(b, end) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	it := &iterator{pos: -1}
	for _, k := range keys {
		it.keys = append(it.keys, []byte(k))
		it.values = append(it.values, append([]byte(nil), m.data[k]...))
	}
	return it, nil
}

func (m *DB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type iterator struct {
	keys, values [][]byte
	pos          int
}

func (it *iterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *iterator) Key() []byte   { return it.keys[it.pos] }
func (it *iterator) Value() []byte { return it.values[it.pos] }
func (it *iterator) Err() error    { return nil }
func (it *iterator) Close() error  { return nil }
