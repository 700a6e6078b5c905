package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ncatdao/govapi/src/govapi/types"
)

// FundProposal records a funding contribution and raises the proposal's
// accumulated total in the same transaction. Repeat contributions from the
// same funder are allowed and summed. Funding is not gated by proposal state;
// see DESIGN.md before tightening this.
func (s *Service) FundProposal(ctx context.Context, funder string, proposalID uint64, txHash string, amount uint64) (types.Proposal, error) {
	funder = normalize(funder)
	if err := s.assertNotBlacklisted(funder); err != nil {
		return types.Proposal{}, fmt.Errorf("%w: %s", err, funder)
	}
	if amount == 0 || txHash == "" {
		return types.Proposal{}, fmt.Errorf("%w: amount and tx hash are required", types.ErrValidation)
	}

	// Committed independently of the funding transaction: the funder account
	// survives even if the contribution below fails.
	if _, err := s.store.EnsureAccount(ctx, funder); err != nil {
		return types.Proposal{}, err
	}

	err := s.store.InTx(ctx, func(tx Store) error {
		p, err := tx.ProposalByID(ctx, proposalID, true)
		if err != nil {
			return err
		}

		fund := types.Fund{
			FunderAddress: funder,
			ProposalID:    p.ID,
			Amount:        amount,
			TxHash:        txHash,
		}
		if err := tx.CreateFund(ctx, &fund); err != nil {
			return err
		}

		p.RaisedFund += amount
		p.Funders = appendUnique(p.Funders, funder)
		return tx.SaveProposalFields(ctx, &p, "raised_fund", "funders")
	})
	if err != nil {
		return types.Proposal{}, err
	}

	s.lgr.Info("proposal funded",
		zap.String("funder", funder),
		zap.Uint64("proposal", proposalID),
		zap.Uint64("amount", amount),
		zap.String("tx", txHash))

	// Advisory reload outside the funding transaction.
	p, err := s.store.ProposalByID(ctx, proposalID, false)
	if err != nil {
		return types.Proposal{}, err
	}
	s.emitProposal(ctx, "fund", p)
	return p, nil
}
