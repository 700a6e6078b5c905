package service

import (
	"math/big"
	"time"

	"github.com/ncatdao/govapi/src/govapi/types"
	"github.com/ncatdao/govapi/src/govapi/weights"
)

// Test fixture: 1000 tokens buy one vote, 1M tokens to propose, proposals
// pass with 100 for-votes at 70%.
const (
	testTokensPerVote = 1000
	testMinPropose    = 1_000_000
	testReqWeight     = 100
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *memStore
	sink  *memSink
	clk   *clock
}

func newFixture(balances map[string]*big.Int, blacklist ...string) *fixture {
	store := newMemStore()
	sink := &memSink{}
	clk := newClock(epoch)
	calc := weights.New(
		fakeOracle{balances: balances},
		big.NewInt(testTokensPerVote),
		big.NewInt(testMinPropose),
	)
	svc := New(Params{
		Store:          store,
		Weights:        calc,
		Sink:           sink,
		Blacklist:      blacklist,
		RequiredWeight: big.NewInt(testReqWeight),
		Now:            clk.Now,
	})
	return &fixture{svc: svc, store: store, sink: sink, clk: clk}
}

func (f *fixture) withOracle(o weights.Oracle) *fixture {
	f.svc.weights = weights.New(o, big.NewInt(testTokensPerVote), big.NewInt(testMinPropose))
	return f
}

// seedProposal stores a proposal directly, bypassing the eligibility check.
func (f *fixture) seedProposal(p types.Proposal) types.Proposal {
	if p.State == "" {
		p.State = types.StateVoting
	}
	if p.Expiration.IsZero() {
		p.Expiration = f.clk.Now().Add(7 * 24 * time.Hour)
	}
	if p.ForWeight == "" {
		p.ForWeight = types.FormatWeight(nil)
	}
	if p.AgainstWeight == "" {
		p.AgainstWeight = types.FormatWeight(nil)
	}
	if p.Title == "" {
		p.Title = "a governance proposal of reasonable length"
	}
	if err := f.store.CreateProposal(nil, &p); err != nil {
		panic(err)
	}
	return p
}

func (f *fixture) proposal(id uint64) types.Proposal {
	p, err := f.store.ProposalByID(nil, id, false)
	if err != nil {
		panic(err)
	}
	return p
}

func (f *fixture) makeAdmin(addr string) {
	acct, _ := f.store.EnsureAccount(nil, addr)
	acct.IsAdmin = true
	f.store.setAccount(acct)
}

func tokens(votes int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(votes), big.NewInt(testTokensPerVote))
}
