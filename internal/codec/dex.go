package codec

import (
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// SwapPayload is the forward payload of a jetton transfer that requests a swap.
type SwapPayload struct {
	WalletTokenB *address.Address
	MinOut       *uint256.Int
	ToAddress    *address.Address
	RefAddress   *address.Address // nil when no referrer
}

func (p SwapPayload) ToCell() *cell.Cell {
	b := cell.BeginCell().MustStoreUInt(uint64(OpSwap), 32).
		MustStoreAddr(orNone(p.WalletTokenB))
	b = storeCoins(b, p.MinOut).MustStoreAddr(orNone(p.ToAddress))
	if IsNone(p.RefAddress) {
		return b.MustStoreBoolBit(false).EndCell()
	}
	return b.MustStoreBoolBit(true).MustStoreAddr(p.RefAddress).EndCell()
}

// ProvideLPPayload is the forward payload of a jetton transfer that deposits liquidity.
type ProvideLPPayload struct {
	WalletTokenB *address.Address
	MinLPOut     *uint256.Int
}

func (p ProvideLPPayload) ToCell() *cell.Cell {
	b := cell.BeginCell().MustStoreUInt(uint64(OpProvideLP), 32).
		MustStoreAddr(orNone(p.WalletTokenB))
	return storeCoins(b, p.MinLPOut).EndCell()
}

// ParseForwardPayload decodes a router forward payload. The returned value is
// either SwapPayload or ProvideLPPayload.
func ParseForwardPayload(payload *cell.Cell) (uint32, any, error) {
	if payload == nil {
		return 0, nil, done("forward_payload", &reader{err: ErrMalformed})
	}
	r := newReader(payload.BeginParse())
	op := uint32(r.uint("op", 32))
	if r.err != nil {
		return 0, nil, done("forward_payload", r)
	}
	switch op {
	case OpSwap:
		p := SwapPayload{
			WalletTokenB: r.addr("wallet_token_b"),
			MinOut:       r.coins("min_out"),
			ToAddress:    r.addr("to_address"),
		}
		if r.bit("has_ref") {
			p.RefAddress = r.addr("ref_address")
		}
		return op, p, done("swap payload", r)
	case OpProvideLP:
		p := ProvideLPPayload{
			WalletTokenB: r.addr("wallet_token_b"),
			MinLPOut:     r.coins("min_lp_out"),
		}
		return op, p, done("provide_lp payload", r)
	}
	return op, nil, nil
}

// PayTo instructs the router to pay Amount0/Amount1 of the two wallets' tokens to Owner.
type PayTo struct {
	QueryID  uint64
	Owner    *address.Address
	ExitCode uint32
	Amount0  *uint256.Int
	Wallet0  *address.Address
	Amount1  *uint256.Int
	Wallet1  *address.Address
}

func (m PayTo) ToCell() *cell.Cell {
	amounts := storeCoins(cell.BeginCell(), m.Amount0).MustStoreAddr(orNone(m.Wallet0))
	amounts = storeCoins(amounts, m.Amount1).MustStoreAddr(orNone(m.Wallet1))
	return begin(OpPayTo, m.QueryID).
		MustStoreAddr(orNone(m.Owner)).
		MustStoreUInt(uint64(m.ExitCode), 32).
		MustStoreRef(amounts.EndCell()).
		EndCell()
}

func ParsePayTo(s *cell.Slice) (PayTo, error) {
	r := newReader(s)
	m := PayTo{Owner: r.addr("owner"), ExitCode: uint32(r.uint("exit_code", 32))}
	sub := r.sub("amounts")
	m.Amount0 = sub.coins("amount0")
	m.Wallet0 = sub.addr("wallet0")
	m.Amount1 = sub.coins("amount1")
	m.Wallet1 = sub.addr("wallet1")
	r.join(sub)
	return m, done("pay_to", r)
}

// PoolSwap is forwarded by the router to a pool.
type PoolSwap struct {
	QueryID     uint64
	FromAddress *address.Address
	TokenWallet *address.Address
	Amount      *uint256.Int
	MinOut      *uint256.Int
	ToAddress   *address.Address
	RefAddress  *address.Address
}

// HasRef reports whether a referrer is attached.
func (m PoolSwap) HasRef() bool { return !IsNone(m.RefAddress) }

func (m PoolSwap) ToCell() *cell.Cell {
	b := begin(OpSwap, m.QueryID).
		MustStoreAddr(orNone(m.FromAddress)).
		MustStoreAddr(orNone(m.TokenWallet))
	b = storeCoins(storeCoins(b, m.Amount), m.MinOut).MustStoreBoolBit(m.HasRef())
	to := cell.BeginCell().MustStoreAddr(orNone(m.ToAddress)).MustStoreAddr(orNone(m.RefAddress))
	return b.MustStoreRef(to.EndCell()).EndCell()
}

func ParsePoolSwap(s *cell.Slice) (PoolSwap, error) {
	r := newReader(s)
	m := PoolSwap{
		FromAddress: r.addr("from_address"),
		TokenWallet: r.addr("token_wallet"),
		Amount:      r.coins("amount"),
		MinOut:      r.coins("min_out"),
	}
	hasRef := r.bit("has_ref")
	sub := r.sub("addresses")
	m.ToAddress = sub.addr("to_address")
	m.RefAddress = sub.addr("ref_address")
	r.join(sub)
	if !hasRef {
		m.RefAddress = nil
	}
	return m, done("swap", r)
}

// PoolProvideLP is forwarded by the router to a pool.
type PoolProvideLP struct {
	QueryID  uint64
	Owner    *address.Address
	MinLPOut *uint256.Int
	Amount0  *uint256.Int
	Amount1  *uint256.Int
}

func (m PoolProvideLP) ToCell() *cell.Cell {
	b := begin(OpProvideLP, m.QueryID).MustStoreAddr(orNone(m.Owner))
	return storeCoins(storeCoins(storeCoins(b, m.MinLPOut), m.Amount0), m.Amount1).EndCell()
}

func ParsePoolProvideLP(s *cell.Slice) (PoolProvideLP, error) {
	r := newReader(s)
	m := PoolProvideLP{
		Owner:    r.addr("owner"),
		MinLPOut: r.coins("min_lp_out"),
		Amount0:  r.coins("amount0"),
		Amount1:  r.coins("amount1"),
	}
	return m, done("provide_lp", r)
}

// AddLiquidity stages amounts in an LP account. Both add_liquidity (from the
// pool) and direct_add_liquidity (from the user) share this layout.
type AddLiquidity struct {
	Op       uint32
	QueryID  uint64
	Amount0  *uint256.Int
	Amount1  *uint256.Int
	MinLPOut *uint256.Int
}

func (m AddLiquidity) ToCell() *cell.Cell {
	op := m.Op
	if op == 0 {
		op = OpAddLiquidity
	}
	b := begin(op, m.QueryID)
	return storeCoins(storeCoins(storeCoins(b, m.Amount0), m.Amount1), m.MinLPOut).EndCell()
}

func ParseAddLiquidity(op uint32, s *cell.Slice) (AddLiquidity, error) {
	r := newReader(s)
	m := AddLiquidity{
		Op:       op,
		Amount0:  r.coins("amount0"),
		Amount1:  r.coins("amount1"),
		MinLPOut: r.coins("min_lp_out"),
	}
	return m, done("add_liquidity", r)
}

// CbAddLiquidity is sent by an LP account to its pool to mint shares.
type CbAddLiquidity struct {
	QueryID  uint64
	Amount0  *uint256.Int
	Amount1  *uint256.Int
	User     *address.Address
	MinLPOut *uint256.Int
}

func (m CbAddLiquidity) ToCell() *cell.Cell {
	b := storeCoins(storeCoins(begin(OpCbAddLiquidity, m.QueryID), m.Amount0), m.Amount1).
		MustStoreAddr(orNone(m.User))
	return storeCoins(b, m.MinLPOut).EndCell()
}

func ParseCbAddLiquidity(s *cell.Slice) (CbAddLiquidity, error) {
	r := newReader(s)
	m := CbAddLiquidity{
		Amount0:  r.coins("amount0"),
		Amount1:  r.coins("amount1"),
		User:     r.addr("user"),
		MinLPOut: r.coins("min_lp_out"),
	}
	return m, done("cb_add_liquidity", r)
}

// CbRefundMe is sent by an LP account to its pool to return staged funds.
type CbRefundMe struct {
	QueryID uint64
	Amount0 *uint256.Int
	Amount1 *uint256.Int
	User    *address.Address
}

func (m CbRefundMe) ToCell() *cell.Cell {
	return storeCoins(storeCoins(begin(OpCbRefundMe, m.QueryID), m.Amount0), m.Amount1).
		MustStoreAddr(orNone(m.User)).
		EndCell()
}

func ParseCbRefundMe(s *cell.Slice) (CbRefundMe, error) {
	r := newReader(s)
	m := CbRefundMe{
		Amount0: r.coins("amount0"),
		Amount1: r.coins("amount1"),
		User:    r.addr("user"),
	}
	return m, done("cb_refund_me", r)
}

// SetFees updates pool fee parameters. The router form carries the two
// jetton wallets that identify the pool; the pool form does not.
type SetFees struct {
	QueryID            uint64
	LPFee              uint8
	ProtocolFee        uint8
	RefFee             uint8
	ProtocolFeeAddress *address.Address
	Jetton0            *address.Address
	Jetton1            *address.Address
}

func (m SetFees) fees() *cell.Builder {
	return begin(OpSetFees, m.QueryID).
		MustStoreUInt(uint64(m.LPFee), 8).
		MustStoreUInt(uint64(m.ProtocolFee), 8).
		MustStoreUInt(uint64(m.RefFee), 8).
		MustStoreAddr(orNone(m.ProtocolFeeAddress))
}

// RouterCell encodes the admin request addressed to the router.
func (m SetFees) RouterCell() *cell.Cell {
	pair := cell.BeginCell().MustStoreAddr(orNone(m.Jetton0)).MustStoreAddr(orNone(m.Jetton1))
	return m.fees().MustStoreRef(pair.EndCell()).EndCell()
}

// PoolCell encodes the request the router forwards to the pool.
func (m SetFees) PoolCell() *cell.Cell {
	return m.fees().EndCell()
}

func parseFees(r *reader) SetFees {
	return SetFees{
		LPFee:              uint8(r.uint("lp_fee", 8)),
		ProtocolFee:        uint8(r.uint("protocol_fee", 8)),
		RefFee:             uint8(r.uint("ref_fee", 8)),
		ProtocolFeeAddress: r.addr("protocol_fee_address"),
	}
}

func ParseRouterSetFees(s *cell.Slice) (SetFees, error) {
	r := newReader(s)
	m := parseFees(r)
	sub := r.sub("jettons")
	m.Jetton0 = sub.addr("jetton0")
	m.Jetton1 = sub.addr("jetton1")
	r.join(sub)
	return m, done("set_fees", r)
}

func ParsePoolSetFees(s *cell.Slice) (SetFees, error) {
	r := newReader(s)
	m := parseFees(r)
	return m, done("set_fees", r)
}

// JettonPair names a pool by its two wallets. Used by router collect_fees and
// reset_pool_gas.
type JettonPair struct {
	Op      uint32
	QueryID uint64
	Jetton0 *address.Address
	Jetton1 *address.Address
}

func (m JettonPair) ToCell() *cell.Cell {
	return begin(m.Op, m.QueryID).
		MustStoreAddr(orNone(m.Jetton0)).
		MustStoreAddr(orNone(m.Jetton1)).
		EndCell()
}

func ParseJettonPair(op uint32, s *cell.Slice) (JettonPair, error) {
	r := newReader(s)
	m := JettonPair{Op: op, Jetton0: r.addr("jetton0"), Jetton1: r.addr("jetton1")}
	return m, done("jetton pair", r)
}

// Simple builds a body with only op and query id.
func Simple(op uint32, queryID uint64) *cell.Cell {
	return begin(op, queryID).EndCell()
}

// InitCodeUpgrade proposes new router code.
type InitCodeUpgrade struct {
	QueryID uint64
	Code    *cell.Cell
}

func (m InitCodeUpgrade) ToCell() *cell.Cell {
	return begin(OpInitCodeUpgrade, m.QueryID).MustStoreRef(m.Code).EndCell()
}

func ParseInitCodeUpgrade(s *cell.Slice) (InitCodeUpgrade, error) {
	r := newReader(s)
	m := InitCodeUpgrade{Code: r.refCell("code")}
	return m, done("init_code_upgrade", r)
}

// InitAdminUpgrade proposes a new router admin.
type InitAdminUpgrade struct {
	QueryID uint64
	Admin   *address.Address
}

func (m InitAdminUpgrade) ToCell() *cell.Cell {
	return begin(OpInitAdminUpgrade, m.QueryID).MustStoreAddr(orNone(m.Admin)).EndCell()
}

func ParseInitAdminUpgrade(s *cell.Slice) (InitAdminUpgrade, error) {
	r := newReader(s)
	m := InitAdminUpgrade{Admin: r.addr("admin")}
	return m, done("init_admin_upgrade", r)
}

// AddressReply carries a single address after the header. Used by
// getter_pool_address and getter_lp_account_address, both as request and reply.
type AddressReply struct {
	Op      uint32
	QueryID uint64
	Address *address.Address
}

func (m AddressReply) ToCell() *cell.Cell {
	return begin(m.Op, m.QueryID).MustStoreAddr(orNone(m.Address)).EndCell()
}

func ParseAddressReply(op uint32, s *cell.Slice) (AddressReply, error) {
	r := newReader(s)
	m := AddressReply{Op: op, Address: r.addr("address")}
	return m, done("address reply", r)
}

// CoinsMessage carries a list of amounts after the header. Used by the numeric
// getters (expected outputs, tokens, liquidity) for requests and replies.
type CoinsMessage struct {
	Op      uint32
	QueryID uint64
	Amounts []*uint256.Int
	Address *address.Address // optional trailing address
}

func (m CoinsMessage) ToCell() *cell.Cell {
	b := begin(m.Op, m.QueryID)
	for _, a := range m.Amounts {
		b = storeCoins(b, a)
	}
	if m.Address != nil {
		b = b.MustStoreAddr(m.Address)
	}
	return b.EndCell()
}

// ParseCoins reads n amounts and, when withAddress is set, a trailing address.
func ParseCoins(op uint32, s *cell.Slice, n int, withAddress bool) (CoinsMessage, error) {
	r := newReader(s)
	m := CoinsMessage{Op: op, Amounts: make([]*uint256.Int, n)}
	for i := range m.Amounts {
		m.Amounts[i] = r.coins("amount")
	}
	if withAddress {
		m.Address = r.addr("address")
	}
	return m, done("coins message", r)
}

// LpAccountDataReply answers getter_lp_account_data.
type LpAccountDataReply struct {
	QueryID uint64
	User    *address.Address
	Pool    *address.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

func (m LpAccountDataReply) ToCell() *cell.Cell {
	b := begin(OpGetterLpAccountData, m.QueryID).
		MustStoreAddr(orNone(m.User)).
		MustStoreAddr(orNone(m.Pool))
	return storeCoins(storeCoins(b, m.Amount0), m.Amount1).EndCell()
}

func ParseLpAccountDataReply(s *cell.Slice) (LpAccountDataReply, error) {
	r := newReader(s)
	m := LpAccountDataReply{
		User:    r.addr("user"),
		Pool:    r.addr("pool"),
		Amount0: r.coins("amount0"),
		Amount1: r.coins("amount1"),
	}
	return m, done("lp account data", r)
}

// PoolDataReply answers getter_pool_data.
type PoolDataReply struct {
	QueryID            uint64
	Reserve0           *uint256.Int
	Reserve1           *uint256.Int
	Wallet0            *address.Address
	Wallet1            *address.Address
	LPFee              uint8
	ProtocolFee        uint8
	RefFee             uint8
	ProtocolFeeAddress *address.Address
	Collected0         *uint256.Int
	Collected1         *uint256.Int
}

func (m PoolDataReply) ToCell() *cell.Cell {
	b := storeCoins(storeCoins(begin(OpGetterPoolData, m.QueryID), m.Reserve0), m.Reserve1).
		MustStoreAddr(orNone(m.Wallet0)).
		MustStoreAddr(orNone(m.Wallet1))
	fees := cell.BeginCell().
		MustStoreUInt(uint64(m.LPFee), 8).
		MustStoreUInt(uint64(m.ProtocolFee), 8).
		MustStoreUInt(uint64(m.RefFee), 8).
		MustStoreAddr(orNone(m.ProtocolFeeAddress))
	fees = storeCoins(storeCoins(fees, m.Collected0), m.Collected1)
	return b.MustStoreRef(fees.EndCell()).EndCell()
}

func ParsePoolDataReply(s *cell.Slice) (PoolDataReply, error) {
	r := newReader(s)
	m := PoolDataReply{
		Reserve0: r.coins("reserve0"),
		Reserve1: r.coins("reserve1"),
		Wallet0:  r.addr("wallet0"),
		Wallet1:  r.addr("wallet1"),
	}
	sub := r.sub("fees")
	m.LPFee = uint8(sub.uint("lp_fee", 8))
	m.ProtocolFee = uint8(sub.uint("protocol_fee", 8))
	m.RefFee = uint8(sub.uint("ref_fee", 8))
	m.ProtocolFeeAddress = sub.addr("protocol_fee_address")
	m.Collected0 = sub.coins("collected0")
	m.Collected1 = sub.coins("collected1")
	r.join(sub)
	return m, done("pool data", r)
}

// ExitPayload is the forward payload of a jetton transfer sent by the router.
// It tells the recipient why the tokens arrived.
func ExitPayload(exitCode uint32, queryID uint64) *cell.Cell {
	return begin(exitCode, queryID).EndCell()
}

// RouterDataReply answers getter_router_data.
type RouterDataReply struct {
	QueryID      uint64
	IsLocked     bool
	Admin        *address.Address
	CodeExpiry   uint64
	AdminExpiry  uint64
	PendingAdmin *address.Address
}

func (m RouterDataReply) ToCell() *cell.Cell {
	return begin(OpGetterRouterData, m.QueryID).
		MustStoreBoolBit(m.IsLocked).
		MustStoreAddr(orNone(m.Admin)).
		MustStoreUInt(m.CodeExpiry, 64).
		MustStoreUInt(m.AdminExpiry, 64).
		MustStoreAddr(orNone(m.PendingAdmin)).
		EndCell()
}

func ParseRouterDataReply(s *cell.Slice) (RouterDataReply, error) {
	r := newReader(s)
	m := RouterDataReply{
		IsLocked:     r.bit("is_locked"),
		Admin:        r.addr("admin"),
		CodeExpiry:   r.uint("code_expiry", 64),
		AdminExpiry:  r.uint("admin_expiry", 64),
		PendingAdmin: r.addr("pending_admin"),
	}
	return m, done("router data", r)
}
