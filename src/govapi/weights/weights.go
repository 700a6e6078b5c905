// Package weights derives voting power and proposal eligibility from token
// balances. It is a pure capability layer over plain Account records; the
// balance itself comes from an external oracle.
package weights

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ncatdao/govapi/src/govapi/types"
)

// Oracle looks up the current token balance of an address. It may be slow or
// unavailable; failures must be treated as retryable.
type Oracle interface {
	Balance(ctx context.Context, addr string) (*big.Int, error)
}

type Calculator struct {
	oracle        Oracle
	tokensPerVote *big.Int
	minPropose    *big.Int
}

func New(oracle Oracle, tokensPerVote, minProposalBalance *big.Int) *Calculator {
	return &Calculator{
		oracle:        oracle,
		tokensPerVote: tokensPerVote,
		minPropose:    minProposalBalance,
	}
}

// TokensPerVote returns the token denomination of a single vote, for display
// in denial messages.
func (c *Calculator) TokensPerVote() *big.Int {
	return new(big.Int).Set(c.tokensPerVote)
}

// MinProposalBalance returns the balance threshold for submitting proposals.
func (c *Calculator) MinProposalBalance() *big.Int {
	return new(big.Int).Set(c.minPropose)
}

// Weight returns the account's voting power: floor(balance / tokensPerVote).
// An account that delegated its power has zero own weight; the delegated
// weight is deliberately not forwarded to the delegatee.
func (c *Calculator) Weight(ctx context.Context, acct types.Account) (*big.Int, error) {
	if acct.Delegated() {
		return new(big.Int), nil
	}
	bal, err := c.balance(ctx, acct.Address)
	if err != nil {
		return nil, err
	}
	return bal.Div(bal, c.tokensPerVote), nil
}

// CanVote reports whether the account may vote right now, returning the
// weight it would vote with.
func (c *Calculator) CanVote(ctx context.Context, acct types.Account) (bool, *big.Int, error) {
	w, err := c.Weight(ctx, acct)
	if err != nil {
		return false, nil, err
	}
	return !acct.Delegated() && w.Sign() > 0, w, nil
}

// CanPropose is delegation-independent: it only requires a minimum balance.
func (c *Calculator) CanPropose(ctx context.Context, acct types.Account) (bool, error) {
	bal, err := c.balance(ctx, acct.Address)
	if err != nil {
		return false, err
	}
	return bal.Cmp(c.minPropose) >= 0, nil
}

func (c *Calculator) balance(ctx context.Context, addr string) (*big.Int, error) {
	bal, err := c.oracle.Balance(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrOracleUnavailable, err)
	}
	return bal, nil
}
