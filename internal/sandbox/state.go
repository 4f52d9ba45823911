package sandbox

import (
	"fmt"

	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/core/lpaccount"
	"github.com/CjHare/ton-amm-dex/internal/core/pool"
	"github.com/CjHare/ton-amm-dex/internal/core/router"
	"github.com/holiman/uint256"
	"github.com/xssnick/tonutils-go/address"
)

// PoolAddress derives the pool of a wallet pair in either order.
func (s *Sandbox) PoolAddress(walletA, walletB *address.Address) (*address.Address, error) {
	return s.Ledger.Deriver().PoolAddress(s.Router, walletA, walletB, Codes())
}

// LPAccountAddress derives user's staging account for the pair.
func (s *Sandbox) LPAccountAddress(user, walletA, walletB *address.Address) (*address.Address, error) {
	p, err := s.PoolAddress(walletA, walletB)
	if err != nil {
		return nil, err
	}
	return s.Ledger.Deriver().LpAccountAddress(lpaccount.Code, user, p)
}

// LPWalletAddress derives owner's LP share wallet for the pair.
func (s *Sandbox) LPWalletAddress(owner, walletA, walletB *address.Address) (*address.Address, error) {
	p, err := s.PoolAddress(walletA, walletB)
	if err != nil {
		return nil, err
	}
	return s.Ledger.Deriver().LpWalletAddress(LPWalletCode, owner, p)
}

// RouterState decodes the router's current data.
func (s *Sandbox) RouterState() (*router.Router, error) {
	acct, ok := s.Ledger.Account(s.Router)
	if !ok {
		return nil, fmt.Errorf("router: %w", ErrNotDeployed)
	}
	return router.Decode(acct.Data)
}

// Pool decodes the pair's pool.
func (s *Sandbox) Pool(walletA, walletB *address.Address) (*pool.Pool, error) {
	addr, err := s.PoolAddress(walletA, walletB)
	if err != nil {
		return nil, err
	}
	acct, ok := s.Ledger.Account(addr)
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", codec.FormatAddress(addr), ErrNotDeployed)
	}
	return pool.Decode(acct.Data)
}

// LPAccount decodes user's staging account for the pair.
func (s *Sandbox) LPAccount(user, walletA, walletB *address.Address) (*lpaccount.Account, error) {
	addr, err := s.LPAccountAddress(user, walletA, walletB)
	if err != nil {
		return nil, err
	}
	acct, ok := s.Ledger.Account(addr)
	if !ok {
		return nil, fmt.Errorf("lp account %s: %w", codec.FormatAddress(addr), ErrNotDeployed)
	}
	return lpaccount.Decode(acct.Data)
}

// LPBalance is the number of shares minted to owner's LP wallet less the
// shares burned through Burn.
func (s *Sandbox) LPBalance(owner, walletA, walletB *address.Address) (*uint256.Int, error) {
	wallet, err := s.LPWalletAddress(owner, walletA, walletB)
	if err != nil {
		return nil, err
	}
	minted := s.minted(wallet, nil)
	burned := s.burnedOf(codec.AddressKey(wallet))
	if minted.Lt(burned) {
		return nil, fmt.Errorf("lp wallet %s burned more than minted", codec.FormatAddress(wallet))
	}
	return new(uint256.Int).Sub(minted, burned), nil
}

// LockedShares is the number of the pair's shares minted to the null address.
func (s *Sandbox) LockedShares(walletA, walletB *address.Address) (*uint256.Int, error) {
	p, err := s.PoolAddress(walletA, walletB)
	if err != nil {
		return nil, err
	}
	return s.minted(codec.NoneAddress(), p), nil
}

// minted sums internal transfers delivered to dst, optionally only those
// sent by from.
func (s *Sandbox) minted(dst, from *address.Address) *uint256.Int {
	total := new(uint256.Int)
	for _, m := range s.Ledger.Inbox(dst) {
		if m.Bounced || m.Op() != codec.OpInternalTransfer {
			continue
		}
		if from != nil && !codec.SameAddress(m.Src, from) {
			continue
		}
		_, body, err := codec.ParseHeader(m.Body)
		if err != nil {
			continue
		}
		it, err := codec.ParseInternalTransfer(body)
		if err != nil {
			continue
		}
		total.Add(total, it.Amount)
	}
	return total
}

// Payout is a jetton transfer the router asked one of its wallets to make.
type Payout struct {
	Wallet   *address.Address
	To       *address.Address
	Amount   *uint256.Int
	ExitCode uint32
	QueryID  uint64
}

// Payouts lists the transfers requested from a router wallet, oldest first.
func (s *Sandbox) Payouts(wallet *address.Address) []Payout {
	var out []Payout
	for _, m := range s.Ledger.Inbox(wallet) {
		if m.Bounced || m.Op() != codec.OpTransfer || !codec.SameAddress(m.Src, s.Router) {
			continue
		}
		h, body, err := codec.ParseHeader(m.Body)
		if err != nil {
			continue
		}
		t, err := codec.ParseTransfer(body)
		if err != nil {
			continue
		}
		p := Payout{Wallet: wallet, To: t.Destination, Amount: t.Amount, QueryID: h.QueryID}
		if eh, _, err := codec.ParseHeader(t.ForwardPayload); err == nil {
			p.ExitCode = eh.Op
		}
		out = append(out, p)
	}
	return out
}

// Received sums the payouts from wallet to user.
func (s *Sandbox) Received(user, wallet *address.Address) *uint256.Int {
	total := new(uint256.Int)
	for _, p := range s.Payouts(wallet) {
		if codec.SameAddress(p.To, user) {
			total.Add(total, p.Amount)
		}
	}
	return total
}

// Reserves returns the pair's reserves ordered as (walletA, walletB).
func (s *Sandbox) Reserves(walletA, walletB *address.Address) (reserveA, reserveB *uint256.Int, err error) {
	p, err := s.Pool(walletA, walletB)
	if err != nil {
		return nil, nil, err
	}
	if codec.SameAddress(p.Wallet0, walletA) {
		return p.Reserve0, p.Reserve1, nil
	}
	return p.Reserve1, p.Reserve0, nil
}
