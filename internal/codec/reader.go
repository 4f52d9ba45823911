package codec

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

var (
	// ErrMalformed is returned when a body or data cell does not match its layout.
	ErrMalformed = errors.New("malformed cell")
	// ErrCoinsOverflow is returned when an amount does not fit VarUInteger16.
	ErrCoinsOverflow = errors.New("coins overflow")
)

// reader walks a slice and keeps the first error, so layouts can be decoded
// field by field and checked once.
type reader struct {
	s   *cell.Slice
	err error
}

func newReader(s *cell.Slice) *reader {
	return &reader{s: s}
}

func (r *reader) fail(field string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s: %v", ErrMalformed, field, err)
	}
}

func (r *reader) uint(field string, bits uint) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.s.LoadUInt(bits)
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *reader) bit(field string) bool {
	if r.err != nil {
		return false
	}
	v, err := r.s.LoadBoolBit()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *reader) coins(field string) *uint256.Int {
	if r.err != nil {
		return new(uint256.Int)
	}
	b, err := r.s.LoadBigCoins()
	if err != nil {
		r.fail(field, err)
		return new(uint256.Int)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		r.fail(field, ErrCoinsOverflow)
		return new(uint256.Int)
	}
	return v
}

func (r *reader) grams(field string) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.s.LoadCoins()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *reader) addr(field string) *address.Address {
	if r.err != nil {
		return NoneAddress()
	}
	a, err := r.s.LoadAddr()
	if err != nil {
		r.fail(field, err)
		return NoneAddress()
	}
	if a == nil {
		return NoneAddress()
	}
	return a
}

func (r *reader) refCell(field string) *cell.Cell {
	if r.err != nil {
		return nil
	}
	c, err := r.s.LoadRefCell()
	if err != nil {
		r.fail(field, err)
	}
	return c
}

func (r *reader) ref(field string) *cell.Slice {
	if r.err != nil {
		return nil
	}
	s, err := r.s.LoadRef()
	if err != nil {
		r.fail(field, err)
	}
	return s
}

func (r *reader) maybeRefCell(field string) *cell.Cell {
	if !r.bit(field) {
		return nil
	}
	return r.refCell(field)
}

// sub switches the reader to a referenced cell, sharing the error state.
func (r *reader) sub(field string) *reader {
	s := r.ref(field)
	if r.err != nil {
		return &reader{err: r.err}
	}
	return &reader{s: s}
}

// join folds a sub-reader's error back.
func (r *reader) join(sub *reader) {
	if r.err == nil {
		r.err = sub.err
	}
}

func storeCoins(b *cell.Builder, v *uint256.Int) *cell.Builder {
	if v == nil {
		return b.MustStoreBigCoins(new(uint256.Int).ToBig())
	}
	return b.MustStoreBigCoins(v.ToBig())
}

// FitsCoins reports whether v can be stored as VarUInteger16.
func FitsCoins(v *uint256.Int) bool {
	return v == nil || v.BitLen() <= 120
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
