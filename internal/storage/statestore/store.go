// Package statestore persists ledger accounts into a kv.DB. Each account is a
// cell (address, balance, last lt, code ref, data ref) serialized as a BOC
// and lz4 compressed.
package statestore

import (
	"context"
	"fmt"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/storage/kv"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

var accountPrefix = []byte("acct/")

// Store implements chain.AccountStore.
type Store struct {
	db kv.DB
}

var _ chain.AccountStore = (*Store)(nil)

func New(db kv.DB) *Store {
	return &Store{db: db}
}

func accountKey(addr *address.Address) []byte {
	return append(append([]byte(nil), accountPrefix...), codec.AddressKey(addr)...)
}

func (s *Store) SaveAccount(ctx context.Context, acct *chain.Account) error {
	rec, err := encodeAccount(acct)
	if err != nil {
		return err
	}
	return s.db.Put(ctx, accountKey(acct.Address), rec)
}

// LoadAccount reads a single account.
func (s *Store) LoadAccount(ctx context.Context, addr *address.Address) (*chain.Account, error) {
	rec, err := s.db.Get(ctx, accountKey(addr))
	if err != nil {
		return nil, err
	}
	return decodeAccount(rec)
}

func (s *Store) LoadAccounts(ctx context.Context) ([]*chain.Account, error) {
	it, err := s.db.Iterate(ctx, accountPrefix, kv.PrefixEnd(accountPrefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*chain.Account
	for it.Next() {
		acct, err := decodeAccount(it.Value())
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", it.Key(), err)
		}
		out = append(out, acct)
	}
	return out, it.Err()
}

func encodeAccount(acct *chain.Account) ([]byte, error) {
	if acct.Code == nil || acct.Data == nil {
		return nil, fmt.Errorf("account %s has no state", acct.Key())
	}
	c := cell.BeginCell().
		MustStoreAddr(acct.Address).
		MustStoreUInt(acct.Balance, 64).
		MustStoreUInt(acct.LastLT, 64).
		MustStoreRef(acct.Code).
		MustStoreRef(acct.Data).
		EndCell()
	return compress(c.ToBOC())
}

func decodeAccount(rec []byte) (*chain.Account, error) {
	boc, err := decompress(rec)
	if err != nil {
		return nil, err
	}
	root, err := cell.FromBOC(boc)
	if err != nil {
		return nil, fmt.Errorf("parse boc: %w", err)
	}
	s := root.BeginParse()
	acct := &chain.Account{}
	if acct.Address, err = s.LoadAddr(); err != nil {
		return nil, err
	}
	if acct.Balance, err = s.LoadUInt(64); err != nil {
		return nil, err
	}
	if acct.LastLT, err = s.LoadUInt(64); err != nil {
		return nil, err
	}
	if acct.Code, err = s.LoadRefCell(); err != nil {
		return nil, err
	}
	if acct.Data, err = s.LoadRefCell(); err != nil {
		return nil, err
	}
	return acct, nil
}
