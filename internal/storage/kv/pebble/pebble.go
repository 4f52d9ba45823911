// Package pebble adapts a Pebble database to kv.DB.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/CjHare/ton-amm-dex/internal/storage/kv"
	"github.com/cockroachdb/pebble"
)

// DB is a kv.DB backed by Pebble.
type DB struct {
	db *pebble.DB
}

// Open opens or creates a Pebble database in dir.
func Open(dir string) (*DB, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	return &DB{db: db}, nil
}

func (p *DB) Get(_ context.Context, key []byte) ([]byte, error) {
	if p.db == nil {
		return nil, kv.ErrClosed
	}
	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

func (p *DB) Put(_ context.Context, key, value []byte) error {
	if p.db == nil {
		return kv.ErrClosed
	}
	return p.db.Set(key, value, pebble.Sync)
}

func (p *DB) Delete(_ context.Context, key []byte) error {
	if p.db == nil {
		return kv.ErrClosed
	}
	return p.db.Delete(key, pebble.Sync)
}

func (p *DB) Apply(_ context.Context, ops []kv.Op) error {
	if p.db == nil {
		return kv.ErrClosed
	}
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, op := range ops {
		var err error
		switch op.Kind {
		case kv.OpPut:
			err = batch.Set(op.Key, op.Value, nil)
		case kv.OpDelete:
			err = batch.Delete(op.Key, nil)
		default:
			err = fmt.Errorf("unknown op kind %d", op.Kind)
		}
		if err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *DB) Iterate(_ context.Context, start, end []byte) (kv.Iterator, error) {
	if p.db == nil {
		return nil, kv.ErrClosed
	}
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	if err != nil {
		return nil, err
	}
	return &iterator{iter: iter}, nil
}

func (p *DB) Close() error {
	if p.db == nil {
		return kv.ErrClosed
	}
	err := p.db.Close()
	p.db = nil
	return err
}

type iterator struct {
	iter    *pebble.Iterator
	started bool
}

func (it *iterator) Next() bool {
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *iterator) Key() []byte   { return it.iter.Key() }
func (it *iterator) Value() []byte { return it.iter.Value() }
func (it *iterator) Err() error    { return it.iter.Error() }
func (it *iterator) Close() error  { return it.iter.Close() }
