package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ncatdao/govapi/src/govapi/types"
)

// CastVote records a single vote and folds its snapshotted weight into the
// proposal tally. The oracle is consulted before the proposal row is locked,
// so a slow balance lookup never stalls other voters. The ledger insert and
// the tally update commit in one transaction behind an exclusive lock on the
// proposal row; the lazy account row commits on its own beforehand.
func (s *Service) CastVote(ctx context.Context, voter string, proposalID uint64, support bool) (types.Proposal, error) {
	voter = normalize(voter)
	if err := s.assertNotBlacklisted(voter); err != nil {
		return types.Proposal{}, fmt.Errorf("%w: %s", err, voter)
	}

	acct, err := s.store.EnsureAccount(ctx, voter)
	if err != nil {
		return types.Proposal{}, err
	}

	ok, weight, err := s.weights.CanVote(ctx, acct)
	if err != nil {
		return types.Proposal{}, err
	}
	if !ok {
		return types.Proposal{}, fmt.Errorf("%w: you need at least %s tokens to vote",
			types.ErrInsufficientWeight, s.weights.TokensPerVote())
	}

	var updated types.Proposal
	err = s.store.InTx(ctx, func(tx Store) error {
		p, err := tx.ProposalByID(ctx, proposalID, true)
		if err != nil {
			return err
		}
		if p.State != types.StateVoting || !s.now().Before(p.Expiration) {
			return types.ErrVotingClosed
		}

		vote := types.Vote{
			VoterAddress: voter,
			ProposalID:   p.ID,
			Support:      support,
			Weight:       types.FormatWeight(weight),
		}
		if err := tx.CreateVote(ctx, &vote); err != nil {
			return err
		}

		field := "against_weight"
		tally := &p.AgainstWeight
		if support {
			field = "for_weight"
			tally = &p.ForWeight
		}
		cur, err := types.ParseWeight(*tally)
		if err != nil {
			return err
		}
		*tally = types.FormatWeight(cur.Add(cur, weight))
		p.Voters = appendUnique(p.Voters, voter)

		if err := tx.SaveProposalFields(ctx, &p, field, "voters"); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return types.Proposal{}, err
	}

	s.lgr.Info("vote cast",
		zap.String("voter", voter),
		zap.Uint64("proposal", proposalID),
		zap.Bool("support", support),
		zap.String("weight", types.FormatWeight(weight)))
	s.emitProposal(ctx, "vote", updated)
	return updated, nil
}
