package service

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/ncatdao/govapi/src/govapi/types"
)

// RunLifecycleSweep evaluates every non-terminal proposal once and applies
// any automatic transitions. The whole pass commits as one transaction; a
// failure partway rolls everything back and the next scheduled run retries
// from scratch. Re-running a sweep with no intervening votes, funds or time
// passage is a no-op.
func (s *Service) RunLifecycleSweep(ctx context.Context) error {
	now := s.now()
	var transitioned []types.Proposal

	err := s.store.InTx(ctx, func(tx Store) error {
		proposals, err := tx.NonTerminalProposals(ctx, true)
		if err != nil {
			return err
		}
		for i := range proposals {
			p := &proposals[i]
			next, ok, err := s.nextState(*p, now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			p.State = next
			if err := tx.SaveProposalFields(ctx, p, "state"); err != nil {
				return err
			}
			transitioned = append(transitioned, *p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range transitioned {
		s.lgr.Info("proposal transitioned", zap.Uint64("proposal", p.ID), zap.String("state", p.State))
		s.emitProposal(ctx, "transitioned", p)
	}
	return nil
}

// nextState returns the automatic transition for a proposal, if any. A hard
// expiry overrides every other rule and short-circuits the per-state checks.
func (s *Service) nextState(p types.Proposal, now time.Time) (string, bool, error) {
	if p.HasExpire && p.ExpireDate != nil && now.After(*p.ExpireDate) {
		return types.StateRejected, true, nil
	}

	switch p.State {
	case types.StateVoting:
		if now.Before(p.Expiration) {
			return "", false, nil
		}
		forVotes, err := types.ParseWeight(p.ForWeight)
		if err != nil {
			return "", false, err
		}
		againstVotes, err := types.ParseWeight(p.AgainstWeight)
		if err != nil {
			return "", false, err
		}
		total := new(big.Int).Add(forVotes, againstVotes)
		if forVotes.Cmp(s.reqWeight) >= 0 && percentagePasses(forVotes, total, s.reqPct) {
			return types.StateResearch, true, nil
		}
		return types.StateRejected, true, nil

	case types.StateFunding:
		if p.RaisedFund >= p.TargetFund {
			return types.StateImplementation, true, nil
		}
	}

	// Research and Implementation wait for a moderation decision.
	return "", false, nil
}
