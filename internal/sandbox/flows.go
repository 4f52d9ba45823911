package sandbox

import (
	"context"
	"time"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/CjHare/ton-amm-dex/internal/core/pool"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"go.uber.org/zap"
)

// Deposit reports a jetton transfer of amount from user into the router's
// wallet, as the wallet itself would.
func (s *Sandbox) Deposit(ctx context.Context, user, wallet *address.Address, amount *uint256.Int, payload *cell.Cell, value uint64) ([]*chain.Transaction, error) {
	body := codec.TransferNotification{
		QueryID:        s.nextQuery(),
		Amount:         amount,
		Sender:         user,
		ForwardPayload: payload,
	}.ToCell()
	msg := actor.Message{Src: wallet, Dst: s.Router, Value: value, Body: body}
	if err := s.Ledger.Send(msg); err != nil {
		return nil, err
	}
	return s.Ledger.Run(ctx)
}

// SwapRequest sells Amount of the token held in WalletIn for the token held in WalletOut.
type SwapRequest struct {
	User      *address.Address
	WalletIn  *address.Address
	WalletOut *address.Address
	Amount    *uint256.Int
	MinOut    *uint256.Int
	// Recipient defaults to User.
	Recipient *address.Address
	Referrer  *address.Address
	Value     uint64
}

func (s *Sandbox) Swap(ctx context.Context, r SwapRequest) ([]*chain.Transaction, error) {
	to := r.Recipient
	if to == nil {
		to = r.User
	}
	payload := codec.SwapPayload{
		WalletTokenB: r.WalletOut,
		MinOut:       orZero(r.MinOut),
		ToAddress:    to,
		RefAddress:   r.Referrer,
	}.ToCell()
	return s.Deposit(ctx, r.User, r.WalletIn, r.Amount, payload, orDefault(r.Value, DefaultValue))
}

// ProvideRequest deposits one side of a liquidity position.
type ProvideRequest struct {
	User     *address.Address
	Wallet   *address.Address
	Other    *address.Address
	Amount   *uint256.Int
	MinLPOut *uint256.Int
	Value    uint64
}

func (s *Sandbox) Provide(ctx context.Context, r ProvideRequest) ([]*chain.Transaction, error) {
	payload := codec.ProvideLPPayload{WalletTokenB: r.Other, MinLPOut: orZero(r.MinLPOut)}.ToCell()
	return s.Deposit(ctx, r.User, r.Wallet, r.Amount, payload, orDefault(r.Value, DefaultValue))
}

// ProvidePair deposits both sides with minLPOut 1 so the second deposit mints.
func (s *Sandbox) ProvidePair(ctx context.Context, user, walletA, walletB *address.Address, amountA, amountB *uint256.Int) ([]*chain.Transaction, error) {
	one := uint256.NewInt(1)
	txs, err := s.Provide(ctx, ProvideRequest{User: user, Wallet: walletA, Other: walletB, Amount: amountA, MinLPOut: one})
	if err != nil {
		return txs, err
	}
	more, err := s.Provide(ctx, ProvideRequest{User: user, Wallet: walletB, Other: walletA, Amount: amountB, MinLPOut: one})
	return append(txs, more...), err
}

// Burn redeems LP shares of user's LP wallet for the pair. A none response
// address pays the owner.
func (s *Sandbox) Burn(ctx context.Context, user, walletA, walletB *address.Address, amount *uint256.Int, response *address.Address) ([]*chain.Transaction, error) {
	poolAddr, err := s.PoolAddress(walletA, walletB)
	if err != nil {
		return nil, err
	}
	lpWallet, err := s.LPWalletAddress(user, walletA, walletB)
	if err != nil {
		return nil, err
	}
	body := codec.BurnNotification{
		QueryID:         s.nextQuery(),
		Amount:          amount,
		From:            user,
		ResponseAddress: response,
	}.ToCell()
	txs, err := s.Call(ctx, lpWallet, poolAddr, DefaultValue, body)
	if err != nil {
		return txs, err
	}
	if len(txs) > 0 && txs[0].Success() {
		key := codec.AddressKey(lpWallet)
		s.burned[key] = new(uint256.Int).Add(s.burnedOf(key), amount)
	}
	return txs, nil
}

func (s *Sandbox) burnedOf(key string) *uint256.Int {
	if b, ok := s.burned[key]; ok {
		return b
	}
	return new(uint256.Int)
}

// SetFees asks the router to update the pair's pool fees.
func (s *Sandbox) SetFees(ctx context.Context, walletA, walletB *address.Address, lp, protocol, ref uint8, protocolAddr *address.Address) ([]*chain.Transaction, error) {
	body := codec.SetFees{
		QueryID:            s.nextQuery(),
		LPFee:              lp,
		ProtocolFee:        protocol,
		RefFee:             ref,
		ProtocolFeeAddress: protocolAddr,
		Jetton0:            walletA,
		Jetton1:            walletB,
	}.RouterCell()
	return s.AdminCall(ctx, body)
}

// CollectFees asks the router to sweep the pair's protocol fees.
func (s *Sandbox) CollectFees(ctx context.Context, walletA, walletB *address.Address) ([]*chain.Transaction, error) {
	return s.AdminCall(ctx, codec.JettonPair{Op: codec.OpCollectFees, QueryID: s.nextQuery(), Jetton0: walletA, Jetton1: walletB}.ToCell())
}

// AdminOp sends a body-only admin operation such as lock or finalize_upgrades.
func (s *Sandbox) AdminOp(ctx context.Context, op uint32) ([]*chain.Transaction, error) {
	return s.AdminCall(ctx, codec.Simple(op, s.nextQuery()))
}

func (s *Sandbox) InitCodeUpgrade(ctx context.Context, code *cell.Cell) ([]*chain.Transaction, error) {
	return s.AdminCall(ctx, codec.InitCodeUpgrade{QueryID: s.nextQuery(), Code: code}.ToCell())
}

func (s *Sandbox) InitAdminUpgrade(ctx context.Context, admin *address.Address) ([]*chain.Transaction, error) {
	return s.AdminCall(ctx, codec.InitAdminUpgrade{QueryID: s.nextQuery(), Admin: admin}.ToCell())
}

// FinalizeUpgrades applies matured upgrades and follows an admin handover.
func (s *Sandbox) FinalizeUpgrades(ctx context.Context) ([]*chain.Transaction, error) {
	txs, err := s.AdminOp(ctx, codec.OpFinalizeUpgrades)
	if err != nil {
		return txs, err
	}
	r, err := s.RouterState()
	if err != nil {
		return txs, err
	}
	if !codec.SameAddress(r.Admin, s.Admin) {
		s.log.Info("admin changed", zap.String("admin", codec.FormatAddress(r.Admin)))
		s.Admin = r.Admin
	}
	return txs, nil
}

// CollectFeesDirect triggers fee collection on the pool itself, which anyone may do.
func (s *Sandbox) CollectFeesDirect(ctx context.Context, caller, walletA, walletB *address.Address, value uint64) ([]*chain.Transaction, error) {
	poolAddr, err := s.PoolAddress(walletA, walletB)
	if err != nil {
		return nil, err
	}
	return s.Call(ctx, caller, poolAddr, orDefault(value, pool.CollectFeesGas), codec.Simple(codec.OpCollectFees, s.nextQuery()))
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

func orDefault(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}

// DirectAdd asks user's LP account to mint from its staged amounts.
func (s *Sandbox) DirectAdd(ctx context.Context, user, walletA, walletB *address.Address, minLPOut *uint256.Int) ([]*chain.Transaction, error) {
	account, err := s.LPAccountAddress(user, walletA, walletB)
	if err != nil {
		return nil, err
	}
	body := codec.AddLiquidity{
		Op:       codec.OpDirectAddLiquidity,
		QueryID:  s.nextQuery(),
		Amount0:  new(uint256.Int),
		Amount1:  new(uint256.Int),
		MinLPOut: orZero(minLPOut),
	}.ToCell()
	return s.Call(ctx, user, account, DefaultValue, body)
}

// RefundStaged asks user's LP account to return its staged amounts.
func (s *Sandbox) RefundStaged(ctx context.Context, user, walletA, walletB *address.Address) ([]*chain.Transaction, error) {
	account, err := s.LPAccountAddress(user, walletA, walletB)
	if err != nil {
		return nil, err
	}
	return s.Call(ctx, user, account, DefaultValue, codec.Simple(codec.OpRefundMe, s.nextQuery()))
}

// Advance moves the sandbox clock forward.
func (s *Sandbox) Advance(d time.Duration) {
	s.Clock.Advance(d)
}
