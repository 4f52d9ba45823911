package codec

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// PoolData is the persistent data cell of a pool.
type PoolData struct {
	Router             *address.Address
	LPFee              uint8
	ProtocolFee        uint8
	RefFee             uint8
	Wallet0            *address.Address
	Wallet1            *address.Address
	SupplyLP           *uint256.Int
	Collected0         *uint256.Int
	Collected1         *uint256.Int
	ProtocolFeeAddress *address.Address
	Reserve0           *uint256.Int
	Reserve1           *uint256.Int
	LPWalletCode       *cell.Cell
	LPAccountCode      *cell.Cell
}

func (d PoolData) ToCell() (*cell.Cell, error) {
	if err := checkCoins("pool", d.SupplyLP, d.Collected0, d.Collected1, d.Reserve0, d.Reserve1); err != nil {
		return nil, err
	}
	amounts := storeCoins(storeCoins(cell.BeginCell(), d.Collected0), d.Collected1).
		MustStoreAddr(orNone(d.ProtocolFeeAddress))
	amounts = storeCoins(storeCoins(amounts, d.Reserve0), d.Reserve1)

	b := cell.BeginCell().
		MustStoreAddr(orNone(d.Router)).
		MustStoreUInt(uint64(d.LPFee), 8).
		MustStoreUInt(uint64(d.ProtocolFee), 8).
		MustStoreUInt(uint64(d.RefFee), 8).
		MustStoreAddr(orNone(d.Wallet0)).
		MustStoreAddr(orNone(d.Wallet1))
	return storeCoins(b, d.SupplyLP).
		MustStoreRef(amounts.EndCell()).
		MustStoreRef(codeOrEmpty(d.LPWalletCode)).
		MustStoreRef(codeOrEmpty(d.LPAccountCode)).
		EndCell(), nil
}

func ParsePoolData(c *cell.Cell) (PoolData, error) {
	r := newReader(c.BeginParse())
	d := PoolData{
		Router:      r.addr("router"),
		LPFee:       uint8(r.uint("lp_fee", 8)),
		ProtocolFee: uint8(r.uint("protocol_fee", 8)),
		RefFee:      uint8(r.uint("ref_fee", 8)),
		Wallet0:     r.addr("wallet0"),
		Wallet1:     r.addr("wallet1"),
		SupplyLP:    r.coins("supply_lp"),
	}
	sub := r.sub("amounts")
	d.Collected0 = sub.coins("collected0")
	d.Collected1 = sub.coins("collected1")
	d.ProtocolFeeAddress = sub.addr("protocol_fee_address")
	d.Reserve0 = sub.coins("reserve0")
	d.Reserve1 = sub.coins("reserve1")
	r.join(sub)
	d.LPWalletCode = r.refCell("lp_wallet_code")
	d.LPAccountCode = r.refCell("lp_account_code")
	return d, done("pool data", r)
}

// RouterData is the persistent data cell of the router.
type RouterData struct {
	IsLocked      bool
	Admin         *address.Address
	LPWalletCode  *cell.Cell
	PoolCode      *cell.Cell
	LPAccountCode *cell.Cell
	CodeExpiry    uint64 // unix seconds, 0 when no code upgrade is pending
	AdminExpiry   uint64 // unix seconds, 0 when no admin upgrade is pending
	PendingAdmin  *address.Address
	PendingCode   *cell.Cell // nil when none
}

func (d RouterData) ToCell() (*cell.Cell, error) {
	upgrade := cell.BeginCell().
		MustStoreUInt(d.CodeExpiry, 64).
		MustStoreUInt(d.AdminExpiry, 64).
		MustStoreAddr(orNone(d.PendingAdmin)).
		MustStoreRef(codeOrEmpty(d.PendingCode))
	return cell.BeginCell().
		MustStoreBoolBit(d.IsLocked).
		MustStoreAddr(orNone(d.Admin)).
		MustStoreRef(codeOrEmpty(d.LPWalletCode)).
		MustStoreRef(codeOrEmpty(d.PoolCode)).
		MustStoreRef(codeOrEmpty(d.LPAccountCode)).
		MustStoreRef(upgrade.EndCell()).
		EndCell(), nil
}

func ParseRouterData(c *cell.Cell) (RouterData, error) {
	r := newReader(c.BeginParse())
	d := RouterData{
		IsLocked:      r.bit("is_locked"),
		Admin:         r.addr("admin"),
		LPWalletCode:  r.refCell("lp_wallet_code"),
		PoolCode:      r.refCell("pool_code"),
		LPAccountCode: r.refCell("lp_account_code"),
	}
	sub := r.sub("upgrade")
	d.CodeExpiry = sub.uint("code_expiry", 64)
	d.AdminExpiry = sub.uint("admin_expiry", 64)
	d.PendingAdmin = sub.addr("pending_admin")
	d.PendingCode = sub.refCell("pending_code")
	r.join(sub)
	if IsEmptyCell(d.PendingCode) {
		d.PendingCode = nil
	}
	if IsNone(d.PendingAdmin) {
		d.PendingAdmin = nil
	}
	return d, done("router data", r)
}

// LpAccountData is the persistent data cell of an LP account.
type LpAccountData struct {
	User    *address.Address
	Pool    *address.Address
	Stored0 *uint256.Int
	Stored1 *uint256.Int
}

func (d LpAccountData) ToCell() (*cell.Cell, error) {
	if err := checkCoins("lp account", d.Stored0, d.Stored1); err != nil {
		return nil, err
	}
	b := cell.BeginCell().MustStoreAddr(orNone(d.User)).MustStoreAddr(orNone(d.Pool))
	return storeCoins(storeCoins(b, d.Stored0), d.Stored1).EndCell(), nil
}

func ParseLpAccountData(c *cell.Cell) (LpAccountData, error) {
	r := newReader(c.BeginParse())
	d := LpAccountData{
		User:    r.addr("user"),
		Pool:    r.addr("pool"),
		Stored0: r.coins("stored0"),
		Stored1: r.coins("stored1"),
	}
	return d, done("lp account data", r)
}

// LpWalletData is the initial data cell of an LP jetton wallet. Only used for
// address derivation; wallet behaviour is outside this module.
type LpWalletData struct {
	Balance    *uint256.Int
	Owner      *address.Address
	Master     *address.Address
	WalletCode *cell.Cell
}

func (d LpWalletData) ToCell() (*cell.Cell, error) {
	if err := checkCoins("lp wallet", d.Balance); err != nil {
		return nil, err
	}
	return storeCoins(cell.BeginCell(), d.Balance).
		MustStoreAddr(orNone(d.Owner)).
		MustStoreAddr(orNone(d.Master)).
		MustStoreRef(codeOrEmpty(d.WalletCode)).
		EndCell(), nil
}

// IsEmptyCell reports whether c is nil or carries no bits and no refs.
func IsEmptyCell(c *cell.Cell) bool {
	return c == nil || (c.BitsSize() == 0 && c.RefsNum() == 0)
}

func codeOrEmpty(c *cell.Cell) *cell.Cell {
	if c == nil {
		return cell.BeginCell().EndCell()
	}
	return c
}

func checkCoins(what string, values ...*uint256.Int) error {
	for _, v := range values {
		if !FitsCoins(v) {
			return fmt.Errorf("%s: %w", what, ErrCoinsOverflow)
		}
	}
	return nil
}
