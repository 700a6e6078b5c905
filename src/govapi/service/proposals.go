package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/ncatdao/govapi/src/govapi/types"
)

type SubmitInput struct {
	Title       string
	Content     string
	Contact     string
	ContactType string
	RequireFund bool
	TargetFund  uint64
	HasExpire   bool
	ExpireDate  *time.Time
}

// SubmitProposal persists a new proposal in the Voting state after checking
// the author holds the minimum balance. Title uniqueness is enforced by the
// store at creation.
func (s *Service) SubmitProposal(ctx context.Context, author string, in SubmitInput) (types.Proposal, error) {
	author = normalize(author)
	if err := s.assertNotBlacklisted(author); err != nil {
		return types.Proposal{}, fmt.Errorf("%w: %s", err, author)
	}

	acct, err := s.store.EnsureAccount(ctx, author)
	if err != nil {
		return types.Proposal{}, err
	}

	ok, err := s.weights.CanPropose(ctx, acct)
	if err != nil {
		return types.Proposal{}, err
	}
	if !ok {
		return types.Proposal{}, fmt.Errorf("%w: you should own at least %s tokens to create a proposal",
			types.ErrIneligible, s.weights.MinProposalBalance())
	}

	p := types.Proposal{
		Title:         in.Title,
		Author:        author,
		Content:       in.Content,
		State:         types.StateVoting,
		Expiration:    s.now().Add(s.votingPeriod),
		ForWeight:     types.FormatWeight(nil),
		AgainstWeight: types.FormatWeight(nil),
		Voters:        []string{},
		Contact:       in.Contact,
		ContactType:   in.ContactType,
		RequireFund:   in.RequireFund,
		TargetFund:    in.TargetFund,
		HasExpire:     in.HasExpire,
		ExpireDate:    in.ExpireDate,
		Funders:       []string{},
	}
	err = s.store.InTx(ctx, func(tx Store) error {
		return tx.CreateProposal(ctx, &p)
	})
	if err != nil {
		return types.Proposal{}, err
	}

	s.lgr.Info("proposal submitted", zap.Uint64("proposal", p.ID), zap.String("author", author))
	s.emitProposal(ctx, "created", p)
	return p, nil
}

// ListProposals returns one page, newest first.
func (s *Service) ListProposals(ctx context.Context, page int) ([]types.Proposal, error) {
	if page < 0 {
		page = 0
	}
	return s.store.ProposalsByPage(ctx, page)
}

// percentageFor computes for*100/total, with a zero total failing the test
// outright rather than dividing by zero.
func percentagePasses(forVotes, total, required *big.Int) bool {
	if total.Sign() == 0 {
		return false
	}
	pct := new(big.Int).Mul(forVotes, big.NewInt(100))
	pct.Div(pct, total)
	return pct.Cmp(required) >= 0
}
