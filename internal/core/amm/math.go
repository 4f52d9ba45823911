// Package amm holds the constant-product arithmetic shared by pools and
// off-ledger estimators. All divisions floor.
package amm

import (
	"github.com/holiman/uint256"
)

// FeeDivider is the basis-point denominator of every fee.
const FeeDivider = 10000

// MinimumLiquidity divides the geometric mean of the first deposit. The shares
// minted for that deposit are sent to the null address.
const MinimumLiquidity = 1000

// Fees are the pool fee parameters in basis points.
type Fees struct {
	LP       uint8
	Protocol uint8
	Ref      uint8
}

// Total is the combined fee in basis points.
func (f Fees) Total() uint64 {
	return uint64(f.LP) + uint64(f.Protocol) + uint64(f.Ref)
}

// SwapQuote is the outcome of a constant-product swap.
type SwapQuote struct {
	AmountOut   *uint256.Int
	ProtocolFee *uint256.Int // credited to the input side's collected fees
	RefFee      *uint256.Int // paid to the referrer when one is present
	ReserveIn   *uint256.Int // input reserve after the swap
	ReserveOut  *uint256.Int // output reserve after the swap
}

func bips(amount *uint256.Int, b uint64) *uint256.Int {
	v := new(uint256.Int).Mul(amount, uint256.NewInt(b))
	return v.Div(v, uint256.NewInt(FeeDivider))
}

// Swap quotes amountIn against the reserves. The LP share of the fee stays in
// the reserves; the referral fee stays there too unless hasRef is set.
// Inputs are bounded by VarUInteger16 so no product overflows 256 bits.
func Swap(amountIn, reserveIn, reserveOut *uint256.Int, fees Fees, hasRef bool) SwapQuote {
	q := SwapQuote{
		AmountOut:   new(uint256.Int),
		ProtocolFee: new(uint256.Int),
		RefFee:      new(uint256.Int),
		ReserveIn:   new(uint256.Int).Set(reserveIn),
		ReserveOut:  new(uint256.Int).Set(reserveOut),
	}
	total := fees.Total()
	if total >= FeeDivider || amountIn.IsZero() {
		return q
	}
	afterFee := bips(amountIn, FeeDivider-total)
	denominator := new(uint256.Int).Add(reserveIn, afterFee)
	if denominator.IsZero() {
		return q
	}
	q.AmountOut.Mul(reserveOut, afterFee).Div(q.AmountOut, denominator)
	q.ProtocolFee = bips(amountIn, uint64(fees.Protocol))
	if hasRef {
		q.RefFee = bips(amountIn, uint64(fees.Ref))
	}
	q.ReserveIn.Add(q.ReserveIn, amountIn).Sub(q.ReserveIn, q.ProtocolFee).Sub(q.ReserveIn, q.RefFee)
	q.ReserveOut.Sub(q.ReserveOut, q.AmountOut)
	return q
}

// Sqrt returns floor(sqrt(x)).
func Sqrt(x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return new(uint256.Int)
	}
	// Newton iteration from a power of two above the root.
	z := new(uint256.Int).Lsh(uint256.NewInt(1), uint((x.BitLen()+1)/2))
	for {
		y := new(uint256.Int).Div(x, z)
		y.Add(y, z).Rsh(y, 1)
		if !y.Lt(z) {
			return z
		}
		z = y
	}
}

// InitialShares is the share amount created by the first deposit.
func InitialShares(amount0, amount1 *uint256.Int) *uint256.Int {
	product := new(uint256.Int).Mul(amount0, amount1)
	root := Sqrt(product)
	return root.Div(root, uint256.NewInt(MinimumLiquidity))
}

// Shares computes the shares minted for a deposit into a funded pool:
// min(amount0*supply/reserve0, amount1*supply/reserve1).
func Shares(amount0, amount1, reserve0, reserve1, supply *uint256.Int) *uint256.Int {
	if reserve0.IsZero() || reserve1.IsZero() {
		return new(uint256.Int)
	}
	s0 := new(uint256.Int).Mul(amount0, supply)
	s0.Div(s0, reserve0)
	s1 := new(uint256.Int).Mul(amount1, supply)
	s1.Div(s1, reserve1)
	if s1.Lt(s0) {
		return s1
	}
	return s0
}

// ExpectedShares returns the shares a deposit would mint, covering both the
// first deposit and later ones.
func ExpectedShares(amount0, amount1, reserve0, reserve1, supply *uint256.Int) *uint256.Int {
	if supply.IsZero() {
		return InitialShares(amount0, amount1)
	}
	return Shares(amount0, amount1, reserve0, reserve1, supply)
}

// BurnAmounts returns the reserve amounts released by burning shares.
func BurnAmounts(shares, reserve0, reserve1, supply *uint256.Int) (amount0, amount1 *uint256.Int) {
	amount0, amount1 = new(uint256.Int), new(uint256.Int)
	if supply.IsZero() {
		return amount0, amount1
	}
	amount0.Mul(reserve0, shares).Div(amount0, supply)
	amount1.Mul(reserve1, shares).Div(amount1, supply)
	return amount0, amount1
}
