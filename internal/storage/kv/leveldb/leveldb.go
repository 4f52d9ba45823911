// Package leveldb adapts a goleveldb database to kv.DB.
package leveldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/CjHare/ton-amm-dex/internal/storage/kv"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// DB is a kv.DB backed by LevelDB.
type DB struct {
	db *leveldb.DB
}

// Open opens or creates a LevelDB database in dir.
func Open(dir string) (*DB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", dir, err)
	}
	return &DB{db: db}, nil
}

var syncWrite = &opt.WriteOptions{Sync: true}

func (l *DB) Get(_ context.Context, key []byte) ([]byte, error) {
	if l.db == nil {
		return nil, kv.ErrClosed
	}
	val, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, kv.ErrNotFound
	}
	return val, err
}

func (l *DB) Put(_ context.Context, key, value []byte) error {
	if l.db == nil {
		return kv.ErrClosed
	}
	return l.db.Put(key, value, syncWrite)
}

func (l *DB) Delete(_ context.Context, key []byte) error {
	if l.db == nil {
		return kv.ErrClosed
	}
	return l.db.Delete(key, syncWrite)
}

func (l *DB) Apply(_ context.Context, ops []kv.Op) error {
	if l.db == nil {
		return kv.ErrClosed
	}
	batch := new(leveldb.Batch)
	for _, op := range ops {
		switch op.Kind {
		case kv.OpPut:
			batch.Put(op.Key, op.Value)
		case kv.OpDelete:
			batch.Delete(op.Key)
		default:
			return fmt.Errorf("unknown op kind %d", op.Kind)
		}
	}
	return l.db.Write(batch, syncWrite)
}

func (l *DB) Iterate(_ context.Context, start, end []byte) (kv.Iterator, error) {
	if l.db == nil {
		return nil, kv.ErrClosed
	}
	return &iterator{it: l.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)}, nil
}

func (l *DB) Close() error {
	if l.db == nil {
		return kv.ErrClosed
	}
	err := l.db.Close()
	l.db = nil
	return err
}

type iterator struct {
	it interface {
		Next() bool
		Key() []byte
		Value() []byte
		Error() error
		Release()
	}
}

func (i *iterator) Next() bool    { return i.it.Next() }
func (i *iterator) Key() []byte   { return i.it.Key() }
func (i *iterator) Value() []byte { return i.it.Value() }
func (i *iterator) Err() error    { return i.it.Error() }

func (i *iterator) Close() error {
	i.it.Release()
	return nil
}
