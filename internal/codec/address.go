package codec

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// NoneAddress returns the null address (addr_none).
func NoneAddress() *address.Address {
	return address.NewAddressNone()
}

// IsNone reports whether a is nil or addr_none.
func IsNone(a *address.Address) bool {
	return a == nil || a.Type() == address.NoneAddress
}

// SameAddress compares two addresses by workchain and account id.
// Two null addresses are equal.
func SameAddress(a, b *address.Address) bool {
	if IsNone(a) || IsNone(b) {
		return IsNone(a) && IsNone(b)
	}
	return a.Workchain() == b.Workchain() && bytes.Equal(a.Data(), b.Data())
}

// AddressKey returns a stable map key for an address.
func AddressKey(a *address.Address) string {
	if IsNone(a) {
		return "addr_none"
	}
	return fmt.Sprintf("%d:%x", a.Workchain(), a.Data())
}

// AddressCell stores a single address into its own cell.
func AddressCell(a *address.Address) *cell.Cell {
	return cell.BeginCell().MustStoreAddr(orNone(a)).EndCell()
}

// AddressHash is the representation hash of the address cell.
func AddressHash(a *address.Address) []byte {
	return AddressCell(a).Hash()
}

// FormatAddress renders an address for logs and CLI output.
func FormatAddress(a *address.Address) string {
	return AddressKey(a)
}

// ParseAddress accepts either the raw "wc:hex" form or a user-friendly form.
// The literal "none" yields addr_none.
func ParseAddress(s string) (*address.Address, error) {
	if s == "" || s == "none" || s == "addr_none" {
		return NoneAddress(), nil
	}
	if strings.Contains(s, ":") {
		return address.ParseRawAddr(s)
	}
	return address.ParseAddr(s)
}

func orNone(a *address.Address) *address.Address {
	if a == nil {
		return NoneAddress()
	}
	return a
}
