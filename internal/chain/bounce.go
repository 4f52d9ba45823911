package chain

import (
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/actor"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// bounceBodyBits is how much of the original body a bounce carries.
const bounceBodyBits = 256

// BounceBody builds the body of a bounced message: the bounce prefix followed
// by the first 256 bits of the original body.
func BounceBody(original *cell.Cell) *cell.Cell {
	b := cell.BeginCell().MustStoreUInt(uint64(codec.BounceOp), 32)
	if original == nil {
		return b.EndCell()
	}
	s := original.BeginParse()
	n := s.BitsLeft()
	if n > bounceBodyBits {
		n = bounceBodyBits
	}
	if n == 0 {
		return b.EndCell()
	}
	bits, err := s.LoadSlice(n)
	if err != nil {
		return b.EndCell()
	}
	return b.MustStoreSlice(bits, n).EndCell()
}

// bounceOf returns msg travelling back to its sender carrying value.
func bounceOf(msg actor.Message, value uint64) actor.Message {
	return actor.Message{
		Src:     msg.Dst,
		Dst:     msg.Src,
		Value:   value,
		Bounce:  false,
		Bounced: true,
		Body:    BounceBody(msg.Body),
	}
}
