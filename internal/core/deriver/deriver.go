// Package deriver computes deterministic actor addresses from their code and
// initial data, the way the ledger assigns them at deployment.
package deriver

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Initial fee parameters of every pool. They are part of the pool's initial
// data and therefore of its address.
const (
	DefaultLPFee       uint8 = 20
	DefaultProtocolFee uint8 = 0
	DefaultRefFee      uint8 = 10
)

// DefaultCacheSize bounds the pool address cache.
const DefaultCacheSize = 4096

// Codes bundles the program code cells the router deploys.
type Codes struct {
	Pool      *cell.Cell
	LPAccount *cell.Cell
	LPWallet  *cell.Cell
}

// Deriver derives addresses for a single workchain.
type Deriver struct {
	workchain int32
	pools     *lru.Cache[string, *address.Address]
}

// New creates a deriver. A cacheSize of zero disables pool address caching.
func New(workchain int32, cacheSize int) (*Deriver, error) {
	d := &Deriver{workchain: workchain}
	if cacheSize > 0 {
		cache, err := lru.New[string, *address.Address](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("pool address cache: %w", err)
		}
		d.pools = cache
	}
	return d, nil
}

// Default returns an uncached deriver for workchain 0.
func Default() *Deriver {
	return &Deriver{}
}

// Workchain returns the workchain of derived addresses.
func (d *Deriver) Workchain() int32 { return d.workchain }

// StateInit builds the state-init cell binding code and data.
func StateInit(code, data *cell.Cell) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(0, 1). // split_depth
		MustStoreUInt(0, 1). // special
		MustStoreBoolBit(true).MustStoreRef(code).
		MustStoreBoolBit(true).MustStoreRef(data).
		MustStoreUInt(0, 1). // library
		EndCell()
}

// Address is the workchain plus the hash of StateInit(code, data).
func (d *Deriver) Address(code, data *cell.Cell) *address.Address {
	return address.NewAddress(0, byte(d.workchain), StateInit(code, data).Hash())
}

// SortWallets orders two wallet addresses canonically: wallet0 is the one
// whose address cell hash is larger. The result does not depend on argument order.
func SortWallets(a, b *address.Address) (wallet0, wallet1 *address.Address) {
	if bytes.Compare(codec.AddressHash(a), codec.AddressHash(b)) >= 0 {
		return a, b
	}
	return b, a
}

// PoolData returns the initial data of the pool for the given wallets.
func PoolData(router, wallet0, wallet1 *address.Address, codes Codes) codec.PoolData {
	zero := func() *uint256.Int { return new(uint256.Int) }
	return codec.PoolData{
		Router:        router,
		LPFee:         DefaultLPFee,
		ProtocolFee:   DefaultProtocolFee,
		RefFee:        DefaultRefFee,
		Wallet0:       wallet0,
		Wallet1:       wallet1,
		SupplyLP:      zero(),
		Collected0:    zero(),
		Collected1:    zero(),
		Reserve0:      zero(),
		Reserve1:      zero(),
		LPWalletCode:  codes.LPWallet,
		LPAccountCode: codes.LPAccount,
	}
}

// PoolInit returns the code and initial data cell of the pool for the pair.
// Wallets may be given in any order.
func (d *Deriver) PoolInit(router, walletA, walletB *address.Address, codes Codes) (code, data *cell.Cell, err error) {
	w0, w1 := SortWallets(walletA, walletB)
	data, err = PoolData(router, w0, w1, codes).ToCell()
	if err != nil {
		return nil, nil, err
	}
	return codes.Pool, data, nil
}

// PoolAddress derives the pool address for an unordered wallet pair.
func (d *Deriver) PoolAddress(router, walletA, walletB *address.Address, codes Codes) (*address.Address, error) {
	w0, w1 := SortWallets(walletA, walletB)
	key := poolKey(router, w0, w1, codes)
	if d.pools != nil {
		if a, ok := d.pools.Get(key); ok {
			return a, nil
		}
	}
	code, data, err := d.PoolInit(router, w0, w1, codes)
	if err != nil {
		return nil, err
	}
	a := d.Address(code, data)
	if d.pools != nil {
		d.pools.Add(key, a)
	}
	return a, nil
}

// LpAccountInit returns the initial data of the LP account of user in pool.
func LpAccountInit(user, pool *address.Address) (*cell.Cell, error) {
	return codec.LpAccountData{
		User:    user,
		Pool:    pool,
		Stored0: new(uint256.Int),
		Stored1: new(uint256.Int),
	}.ToCell()
}

// LpAccountAddress derives the LP account address of user in pool.
func (d *Deriver) LpAccountAddress(code *cell.Cell, user, pool *address.Address) (*address.Address, error) {
	data, err := LpAccountInit(user, pool)
	if err != nil {
		return nil, err
	}
	return d.Address(code, data), nil
}

// LpWalletInit returns the initial data of the LP wallet owned by owner.
func LpWalletInit(code *cell.Cell, owner, pool *address.Address) (*cell.Cell, error) {
	return codec.LpWalletData{
		Balance:    new(uint256.Int),
		Owner:      owner,
		Master:     pool,
		WalletCode: code,
	}.ToCell()
}

// LpWalletAddress derives the LP share wallet of owner for pool.
func (d *Deriver) LpWalletAddress(code *cell.Cell, owner, pool *address.Address) (*address.Address, error) {
	data, err := LpWalletInit(code, owner, pool)
	if err != nil {
		return nil, err
	}
	return d.Address(code, data), nil
}

// poolKey covers every input of the pool's initial data, since the LP
// account and LP wallet codes are stored there too.
func poolKey(router, w0, w1 *address.Address, codes Codes) string {
	return codec.AddressKey(router) + "|" + codec.AddressKey(w0) + "|" +
		codec.AddressKey(w1) + "|" + codeHash(codes.Pool) + "|" +
		codeHash(codes.LPAccount) + "|" + codeHash(codes.LPWallet)
}

func codeHash(c *cell.Cell) string {
	if c == nil {
		return ""
	}
	return hex.EncodeToString(c.Hash())
}
