package actor

import "fmt"

// Result is the exit code of a message transition.
type Result int

// Exit codes. Any non-success result discards the state change and outbound
// messages of the transition; a bounceable inbound message is bounced.
const (
	ExitOK Result = 0

	// ExitMalformed is the cell underflow code: the body does not fit its layout.
	ExitMalformed Result = 9

	ExitInvalidCaller        Result = 72
	ExitInsufficientGas      Result = 73
	ExitInvalidAmount        Result = 74
	ExitNoLiquidity          Result = 75
	ExitNoProtocolFeeAddress Result = 76
	ExitInvalidToken         Result = 77
	ExitStateOverflow        Result = 78

	// ExitWrongOp is returned for unknown operations and for privileged
	// operations sent by anyone but the admin.
	ExitWrongOp Result = 0xffff

	// ExitNoCode is returned by the ledger when an account has no runnable program.
	ExitNoCode Result = -1
)

// Category groups exit codes by the kind of failure.
type Category int

const (
	CategorySuccess Category = iota
	CategoryAuthorization
	CategoryPrecondition
	CategoryMalformed
)

func (c Category) String() string {
	switch c {
	case CategorySuccess:
		return "success"
	case CategoryAuthorization:
		return "authorization"
	case CategoryPrecondition:
		return "precondition"
	case CategoryMalformed:
		return "malformed"
	}
	return "unknown"
}

// IsSuccess reports whether the transition commits.
func (r Result) IsSuccess() bool { return r == ExitOK }

// Category classifies the result.
func (r Result) Category() Category {
	switch r {
	case ExitOK:
		return CategorySuccess
	case ExitInvalidCaller, ExitWrongOp:
		return CategoryAuthorization
	case ExitMalformed:
		return CategoryMalformed
	}
	return CategoryPrecondition
}

func (r Result) String() string {
	switch r {
	case ExitOK:
		return "ok"
	case ExitMalformed:
		return "malformed"
	case ExitInvalidCaller:
		return "invalid_caller"
	case ExitInsufficientGas:
		return "insufficient_gas"
	case ExitInvalidAmount:
		return "invalid_amount"
	case ExitNoLiquidity:
		return "no_liquidity"
	case ExitNoProtocolFeeAddress:
		return "no_protocol_fee_address"
	case ExitInvalidToken:
		return "invalid_token"
	case ExitStateOverflow:
		return "state_overflow"
	case ExitWrongOp:
		return "wrong_op"
	case ExitNoCode:
		return "no_code"
	}
	return fmt.Sprintf("exit_%d", int(r))
}
