package codec

import (
	"fmt"
	"hash/crc32"
	"sort"
)

// OpCode returns the 32-bit operation tag of a textual command name.
// Tags are the CRC-32 (IEEE) checksum of the ASCII name.
func OpCode(command string) uint32 {
	return crc32.ChecksumIEEE([]byte(command))
}

// Router, pool and account operations. Values equal OpCode(name).
const (
	OpSwap               uint32 = 0x25938561 // swap
	OpProvideLP          uint32 = 0xfcf9e58f // provide_lp
	OpPayTo              uint32 = 0xf93bb43f // pay_to
	OpCollectFees        uint32 = 0x1fcb7d3d // collect_fees
	OpSetFees            uint32 = 0x355423e5 // set_fees
	OpResetGas           uint32 = 0x42a0fb43 // reset_gas
	OpResetPoolGas       uint32 = 0xf6aa9737 // reset_pool_gas
	OpLock               uint32 = 0x878f9b0e // lock
	OpUnlock             uint32 = 0x6ae4b0ef // unlock
	OpInitCodeUpgrade    uint32 = 0xdf1e233d // init_code_upgrade
	OpInitAdminUpgrade   uint32 = 0x2fb94384 // init_admin_upgrade
	OpCancelCodeUpgrade  uint32 = 0x357ccc67 // cancel_code_upgrade
	OpCancelAdminUpgrade uint32 = 0xa4ed9981 // cancel_admin_upgrade
	OpFinalizeUpgrades   uint32 = 0x6378509f // finalize_upgrades

	OpAddLiquidity       uint32 = 0x3ebe5431 // add_liquidity
	OpCbAddLiquidity     uint32 = 0x56dfeb8a // cb_add_liquidity
	OpDirectAddLiquidity uint32 = 0x4cf82803 // direct_add_liquidity
	OpRefundMe           uint32 = 0x0bf3f447 // refund_me
	OpCbRefundMe         uint32 = 0x89446a42 // cb_refund_me

	OpGetterPoolAddress      uint32 = 0xd1db969b // getter_pool_address
	OpGetterLpAccountData    uint32 = 0x1d439ae0 // getter_lp_account_data
	OpGetterPoolData         uint32 = 0x43c034e6 // getter_pool_data
	OpGetterExpectedOutputs  uint32 = 0xed4d8b67 // getter_expected_outputs
	OpGetterLpAccountAddress uint32 = 0x9163a98a // getter_lp_account_address
	OpGetterExpectedTokens   uint32 = 0x9ce632c5 // getter_expected_tokens
	OpGetterExpectedLiq      uint32 = 0x8751801f // getter_expected_liquidity
	OpGetterRouterData       uint32 = 0x40e70d8e // getter_router_data
)

// Jetton wallet interface operations. These are fixed literals, not CRC tags.
const (
	OpTransfer             uint32 = 0x0f8a7ea5
	OpTransferNotification uint32 = 0x7362d09c
	OpInternalTransfer     uint32 = 0x178d4519
	OpExcesses             uint32 = 0xd53276db
	OpBurn                 uint32 = 0x595f07bc
	OpBurnNotification     uint32 = 0x7bdd97de
	OpProvideWalletAddress uint32 = 0x2c76b973
	OpTakeWalletAddress    uint32 = 0xd1735400
)

// Exit codes carried by pay_to and by router refunds.
const (
	ExitSwapRefundNoLiq      uint32 = 0x5ffe1295 // swap_refund_no_liq
	ExitSwapRefundReserveErr uint32 = 0x38976e9b // swap_refund_reserve_err
	ExitSwapOKRef            uint32 = 0x45078540 // swap_ok_ref
	ExitSwapOK               uint32 = 0xc64370e5 // swap_ok
	ExitBurnOK               uint32 = 0xdda48b6a // burn_ok
	ExitRefundOK             uint32 = 0xde7dbbc2 // refund_ok

	ExitTransferBounceLocked         uint32 = 0x0a0dbdcb // transfer_bounce_locked
	ExitTransferBounceInvalidRequest uint32 = 0x19727ea8 // transfer_bounce_invalid_request
)

// BounceOp prefixes the body of every bounced message.
const BounceOp uint32 = 0xffffffff

type opEntry struct {
	name string
	code uint32
}

var opTable = []opEntry{
	{"swap", OpSwap},
	{"provide_lp", OpProvideLP},
	{"pay_to", OpPayTo},
	{"collect_fees", OpCollectFees},
	{"set_fees", OpSetFees},
	{"reset_gas", OpResetGas},
	{"reset_pool_gas", OpResetPoolGas},
	{"lock", OpLock},
	{"unlock", OpUnlock},
	{"init_code_upgrade", OpInitCodeUpgrade},
	{"init_admin_upgrade", OpInitAdminUpgrade},
	{"cancel_code_upgrade", OpCancelCodeUpgrade},
	{"cancel_admin_upgrade", OpCancelAdminUpgrade},
	{"finalize_upgrades", OpFinalizeUpgrades},
	{"add_liquidity", OpAddLiquidity},
	{"cb_add_liquidity", OpCbAddLiquidity},
	{"direct_add_liquidity", OpDirectAddLiquidity},
	{"refund_me", OpRefundMe},
	{"cb_refund_me", OpCbRefundMe},
	{"getter_pool_address", OpGetterPoolAddress},
	{"getter_lp_account_data", OpGetterLpAccountData},
	{"getter_pool_data", OpGetterPoolData},
	{"getter_expected_outputs", OpGetterExpectedOutputs},
	{"getter_lp_account_address", OpGetterLpAccountAddress},
	{"getter_expected_tokens", OpGetterExpectedTokens},
	{"getter_expected_liquidity", OpGetterExpectedLiq},
	{"getter_router_data", OpGetterRouterData},
	{"swap_refund_no_liq", ExitSwapRefundNoLiq},
	{"swap_refund_reserve_err", ExitSwapRefundReserveErr},
	{"swap_ok_ref", ExitSwapOKRef},
	{"swap_ok", ExitSwapOK},
	{"burn_ok", ExitBurnOK},
	{"refund_ok", ExitRefundOK},
	{"transfer_bounce_locked", ExitTransferBounceLocked},
	{"transfer_bounce_invalid_request", ExitTransferBounceInvalidRequest},
	{"transfer", OpTransfer},
	{"transfer_notification", OpTransferNotification},
	{"internal_transfer", OpInternalTransfer},
	{"excesses", OpExcesses},
	{"burn", OpBurn},
	{"burn_notification", OpBurnNotification},
	{"provide_wallet_address", OpProvideWalletAddress},
	{"take_wallet_address", OpTakeWalletAddress},
}

var opNames = func() map[uint32]string {
	m := make(map[uint32]string, len(opTable))
	for _, e := range opTable {
		m[e.code] = e.name
	}
	return m
}()

// OpName returns the command name registered for a tag, or its hex form.
func OpName(op uint32) string {
	if op == BounceOp {
		return "bounced"
	}
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", op)
}

// Op is a named tag.
type Op struct {
	Name string
	Code uint32
}

// Ops lists every known tag ordered by name.
func Ops() []Op {
	out := make([]Op, 0, len(opTable))
	for _, e := range opTable {
		out = append(out, Op{Name: e.name, Code: e.code})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
