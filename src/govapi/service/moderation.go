package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ncatdao/govapi/src/govapi/types"
)

// DecideProposal applies an admin's accept/reject judgement to a proposal in
// one of the two human-moderated states. The transition table is total over
// {Research, Implementation} x {accepted, rejected}; anything else is an
// InvalidTransition, never a silent no-op.
func (s *Service) DecideProposal(ctx context.Context, admin string, proposalID uint64, accepted bool) (types.Proposal, error) {
	admin = normalize(admin)
	acct, err := s.store.Account(ctx, admin)
	if err != nil {
		return types.Proposal{}, err
	}
	if !acct.IsAdmin {
		return types.Proposal{}, fmt.Errorf("%w: admin privileges required", types.ErrUnauthorized)
	}

	var updated types.Proposal
	err = s.store.InTx(ctx, func(tx Store) error {
		p, err := tx.ProposalByID(ctx, proposalID, true)
		if err != nil {
			return err
		}

		next, err := decide(p, accepted)
		if err != nil {
			return err
		}
		p.State = next
		if err := tx.SaveProposalFields(ctx, &p, "state"); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return types.Proposal{}, err
	}

	s.lgr.Info("proposal decided",
		zap.String("admin", admin),
		zap.Uint64("proposal", proposalID),
		zap.Bool("accepted", accepted),
		zap.String("state", updated.State))
	s.emitProposal(ctx, "decided", updated)
	return updated, nil
}

func decide(p types.Proposal, accepted bool) (string, error) {
	if p.State != types.StateResearch && p.State != types.StateImplementation {
		return "", fmt.Errorf("%w: cannot decide a proposal in state %s", types.ErrInvalidTransition, p.State)
	}
	if !accepted {
		return types.StateRejected, nil
	}
	if p.State == types.StateImplementation {
		return types.StateCompleted, nil
	}
	// Accepted out of Research.
	if p.RequireFund {
		return types.StateFunding, nil
	}
	return types.StateImplementation, nil
}
