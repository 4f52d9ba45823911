package amm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestSwapFeeSplit(t *testing.T) {
	reserve := u(1_000_000_000_000_000)
	fees := Fees{LP: 20, Protocol: 0, Ref: 10}

	t.Run("with referrer", func(t *testing.T) {
		q := Swap(u(20000), reserve, reserve, fees, true)
		assert.Equal(t, uint64(19939), q.AmountOut.Uint64())
		assert.Equal(t, uint64(20), q.RefFee.Uint64())
		assert.True(t, q.ProtocolFee.IsZero())
		assert.Equal(t, uint64(1_000_000_000_000_000+20000-20), q.ReserveIn.Uint64())
		assert.Equal(t, uint64(1_000_000_000_000_000-19939), q.ReserveOut.Uint64())
	})

	t.Run("without referrer the referral share stays in reserves", func(t *testing.T) {
		q := Swap(u(20000), reserve, reserve, fees, false)
		assert.Equal(t, uint64(19939), q.AmountOut.Uint64())
		assert.True(t, q.RefFee.IsZero())
		assert.Equal(t, uint64(1_000_000_000_000_000+20000), q.ReserveIn.Uint64())
	})
}

func TestSwapProtocolFee(t *testing.T) {
	q := Swap(u(100000), u(1_000_000), u(1_000_000), Fees{LP: 20, Protocol: 10, Ref: 10}, false)
	assert.Equal(t, uint64(100), q.ProtocolFee.Uint64())
	assert.Equal(t, uint64(1_000_000+100000-100), q.ReserveIn.Uint64())
}

func TestSwapConservationWithoutFees(t *testing.T) {
	cases := []struct{ in, rIn, rOut uint64 }{
		{20, 10000, 1000},
		{1, 1, 1},
		{123456, 999999, 555},
		{1_000_000, 1_000_000, 1_000_000},
	}
	for _, tc := range cases {
		q := Swap(u(tc.in), u(tc.rIn), u(tc.rOut), Fees{}, false)
		assert.Equal(t, tc.rIn+tc.in, q.ReserveIn.Uint64())
		assert.Equal(t, tc.rOut-q.AmountOut.Uint64(), q.ReserveOut.Uint64())
		before := new(uint256.Int).Mul(u(tc.rIn), u(tc.rOut))
		after := new(uint256.Int).Mul(q.ReserveIn, q.ReserveOut)
		assert.False(t, after.Lt(before), "constant product must not decrease")
	}
}

func TestSwapSlippageQuote(t *testing.T) {
	// B -> A with reserves (1000, 10000): the quote is far below a 20000000 minimum.
	q := Swap(u(20), u(10000), u(1000), Fees{LP: 20, Ref: 10}, false)
	assert.True(t, q.AmountOut.Lt(u(20_000_000)))
	assert.Equal(t, uint64(1), q.AmountOut.Uint64())
}

func TestSwapDegenerate(t *testing.T) {
	q := Swap(u(0), u(10), u(10), Fees{}, false)
	assert.True(t, q.AmountOut.IsZero())
	q = Swap(u(10), u(0), u(0), Fees{}, false)
	assert.True(t, q.AmountOut.IsZero())
}

func TestSqrt(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 1, 2: 1, 3: 1, 4: 2, 15: 3, 16: 4, 17: 4, 1 << 40: 1 << 20, 999999999999: 999999}
	for x, want := range cases {
		assert.Equal(t, want, Sqrt(u(x)).Uint64(), "sqrt(%d)", x)
	}
	big := new(uint256.Int).Mul(u(1<<62), u(1<<62))
	assert.Equal(t, uint64(1<<62), Sqrt(big).Uint64())
}

func TestShares(t *testing.T) {
	t.Run("initial", func(t *testing.T) {
		assert.Equal(t, uint64(1), InitialShares(u(1000), u(1000)).Uint64())
		assert.Equal(t, uint64(10), InitialShares(u(10000), u(10000)).Uint64())
		assert.True(t, InitialShares(u(10), u(10)).IsZero())
	})

	t.Run("proportional takes the smaller side", func(t *testing.T) {
		s := Shares(u(100), u(500), u(1000), u(2000), u(1000))
		assert.Equal(t, uint64(100), s.Uint64())
		s = Shares(u(500), u(100), u(1000), u(2000), u(1000))
		assert.Equal(t, uint64(50), s.Uint64())
	})

	t.Run("expected shares", func(t *testing.T) {
		assert.Equal(t, uint64(10), ExpectedShares(u(10000), u(10000), u(0), u(0), u(0)).Uint64())
		assert.Equal(t, uint64(100), ExpectedShares(u(100), u(500), u(1000), u(2000), u(1000)).Uint64())
	})
}

func TestBurnAmounts(t *testing.T) {
	a0, a1 := BurnAmounts(u(250), u(1000), u(3000), u(1000))
	require.NotNil(t, a0)
	assert.Equal(t, uint64(250), a0.Uint64())
	assert.Equal(t, uint64(750), a1.Uint64())

	a0, a1 = BurnAmounts(u(1), u(1000), u(3000), u(0))
	assert.True(t, a0.IsZero())
	assert.True(t, a1.IsZero())
}
