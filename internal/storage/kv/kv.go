// Package kv defines the key-value store the ledger persists accounts into,
// independent of the backend engine.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store is closed")
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("key not found")
)

// DB is an ordered byte key-value store.
type DB interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	// Apply commits ops atomically.
	Apply(ctx context.Context, ops []Op) error
	// Iterate walks keys in [start, end) in ascending order. A nil end is unbounded.
	Iterate(ctx context.Context, start, end []byte) (Iterator, error)
	Close() error
}

// Iterator walks a key range. Key and Value are valid until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// OpKind selects a batch operation.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one operation of an atomic batch.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// PrefixEnd returns the smallest key greater than every key with prefix, or
// nil when no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
