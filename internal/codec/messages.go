package codec

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Header is the common prefix of every message body.
type Header struct {
	Op      uint32
	QueryID uint64
}

// ParseHeader reads op and query id and returns the rest of the body.
// An empty body yields op 0 (a plain value transfer).
func ParseHeader(body *cell.Cell) (Header, *cell.Slice, error) {
	if body == nil {
		return Header{}, cell.BeginCell().EndCell().BeginParse(), nil
	}
	s := body.BeginParse()
	if s.BitsLeft() == 0 {
		return Header{}, s, nil
	}
	r := newReader(s)
	h := Header{Op: uint32(r.uint("op", 32))}
	if h.Op == BounceOp {
		return h, s, r.err
	}
	h.QueryID = r.uint("query_id", 64)
	return h, s, r.err
}

func begin(op uint32, queryID uint64) *cell.Builder {
	return cell.BeginCell().MustStoreUInt(uint64(op), 32).MustStoreUInt(queryID, 64)
}

func done(what string, r *reader) error {
	if r.err != nil {
		return fmt.Errorf("%s: %w", what, r.err)
	}
	return nil
}

// Transfer asks a jetton wallet to move Amount to Destination.
type Transfer struct {
	QueryID             uint64
	Amount              *uint256.Int
	Destination         *address.Address
	ResponseDestination *address.Address
	ForwardTonAmount    uint64
	ForwardPayload      *cell.Cell
}

func (m Transfer) ToCell() *cell.Cell {
	b := storeCoins(begin(OpTransfer, m.QueryID), m.Amount).
		MustStoreAddr(orNone(m.Destination)).
		MustStoreAddr(orNone(m.ResponseDestination)).
		MustStoreBoolBit(false).
		MustStoreCoins(m.ForwardTonAmount)
	return storeEither(b, m.ForwardPayload).EndCell()
}

func ParseTransfer(s *cell.Slice) (Transfer, error) {
	r := newReader(s)
	m := Transfer{
		Amount:              r.coins("amount"),
		Destination:         r.addr("destination"),
		ResponseDestination: r.addr("response_destination"),
	}
	r.maybeRefCell("custom_payload")
	m.ForwardTonAmount = r.grams("forward_ton_amount")
	m.ForwardPayload = r.either("forward_payload")
	return m, done("transfer", r)
}

// TransferNotification is sent by a jetton wallet to its owner after a transfer.
type TransferNotification struct {
	QueryID        uint64
	Amount         *uint256.Int
	Sender         *address.Address
	ForwardPayload *cell.Cell
}

func (m TransferNotification) ToCell() *cell.Cell {
	b := storeCoins(begin(OpTransferNotification, m.QueryID), m.Amount).
		MustStoreAddr(orNone(m.Sender))
	return storeEither(b, m.ForwardPayload).EndCell()
}

func ParseTransferNotification(s *cell.Slice) (TransferNotification, error) {
	r := newReader(s)
	m := TransferNotification{
		Amount: r.coins("amount"),
		Sender: r.addr("sender"),
	}
	m.ForwardPayload = r.either("forward_payload")
	return m, done("transfer_notification", r)
}

// InternalTransfer credits a wallet; pools use it to mint LP shares.
type InternalTransfer struct {
	QueryID          uint64
	Amount           *uint256.Int
	From             *address.Address
	ResponseAddress  *address.Address
	ForwardTonAmount uint64
}

func (m InternalTransfer) ToCell() *cell.Cell {
	return storeCoins(begin(OpInternalTransfer, m.QueryID), m.Amount).
		MustStoreAddr(orNone(m.From)).
		MustStoreAddr(orNone(m.ResponseAddress)).
		MustStoreCoins(m.ForwardTonAmount).
		MustStoreBoolBit(false).
		EndCell()
}

func ParseInternalTransfer(s *cell.Slice) (InternalTransfer, error) {
	r := newReader(s)
	m := InternalTransfer{
		Amount:           r.coins("amount"),
		From:             r.addr("from"),
		ResponseAddress:  r.addr("response_address"),
		ForwardTonAmount: r.grams("forward_ton_amount"),
	}
	return m, done("internal_transfer", r)
}

// Excesses returns unused value.
func Excesses(queryID uint64) *cell.Cell {
	return begin(OpExcesses, queryID).EndCell()
}

// BurnNotification is sent by an LP wallet to its pool when shares are burned.
type BurnNotification struct {
	QueryID         uint64
	Amount          *uint256.Int
	From            *address.Address
	ResponseAddress *address.Address
}

func (m BurnNotification) ToCell() *cell.Cell {
	return storeCoins(begin(OpBurnNotification, m.QueryID), m.Amount).
		MustStoreAddr(orNone(m.From)).
		MustStoreAddr(orNone(m.ResponseAddress)).
		EndCell()
}

func ParseBurnNotification(s *cell.Slice) (BurnNotification, error) {
	r := newReader(s)
	m := BurnNotification{
		Amount:          r.coins("amount"),
		From:            r.addr("from"),
		ResponseAddress: r.addr("response_address"),
	}
	return m, done("burn_notification", r)
}

// ProvideWalletAddress asks a jetton master for the wallet of Owner.
type ProvideWalletAddress struct {
	QueryID        uint64
	Owner          *address.Address
	IncludeAddress bool
}

func (m ProvideWalletAddress) ToCell() *cell.Cell {
	return begin(OpProvideWalletAddress, m.QueryID).
		MustStoreAddr(orNone(m.Owner)).
		MustStoreBoolBit(m.IncludeAddress).
		EndCell()
}

func ParseProvideWalletAddress(s *cell.Slice) (ProvideWalletAddress, error) {
	r := newReader(s)
	m := ProvideWalletAddress{Owner: r.addr("owner"), IncludeAddress: r.bit("include_address")}
	return m, done("provide_wallet_address", r)
}

// TakeWalletAddress answers ProvideWalletAddress.
type TakeWalletAddress struct {
	QueryID uint64
	Wallet  *address.Address
	Owner   *address.Address
}

func (m TakeWalletAddress) ToCell() *cell.Cell {
	b := begin(OpTakeWalletAddress, m.QueryID).MustStoreAddr(orNone(m.Wallet))
	if m.Owner == nil {
		return b.MustStoreBoolBit(false).EndCell()
	}
	return b.MustStoreBoolBit(true).MustStoreRef(AddressCell(m.Owner)).EndCell()
}

func ParseTakeWalletAddress(s *cell.Slice) (TakeWalletAddress, error) {
	r := newReader(s)
	m := TakeWalletAddress{Wallet: r.addr("wallet")}
	if r.bit("owner") {
		sub := r.sub("owner")
		m.Owner = sub.addr("owner")
		r.join(sub)
	}
	return m, done("take_wallet_address", r)
}

func storeEither(b *cell.Builder, payload *cell.Cell) *cell.Builder {
	if payload == nil {
		return b.MustStoreBoolBit(false)
	}
	return b.MustStoreBoolBit(true).MustStoreRef(payload)
}

// either reads an Either Cell ^Cell: a referenced payload, or the remaining bits inline.
func (r *reader) either(field string) *cell.Cell {
	if r.err != nil {
		return nil
	}
	if r.s.BitsLeft() == 0 && r.s.RefsNum() == 0 {
		return nil
	}
	if r.bit(field) {
		return r.refCell(field)
	}
	if r.s.BitsLeft() == 0 && r.s.RefsNum() == 0 {
		return nil
	}
	c, err := r.s.ToCell()
	if err != nil {
		r.fail(field, err)
	}
	return c
}
