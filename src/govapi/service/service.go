// Package service implements the proposal lifecycle: submission, voting,
// funding, moderation and the periodic state sweep.
package service

import (
	"context"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ncatdao/govapi/src/govapi/config"
	"github.com/ncatdao/govapi/src/govapi/types"
	"github.com/ncatdao/govapi/src/govapi/weights"
)

// Store is the transactional repository backing the service. Implementations
// must translate duplicate-key violations on CreateVote to ErrDuplicateVote,
// missing rows to ErrNotFound and connection-level failures to
// ErrStoreUnavailable.
type Store interface {
	// InTx runs fn inside one transaction; any error rolls the whole
	// transaction back.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// EnsureAccount creates the account on first interaction and returns the
	// existing row otherwise. It commits on its own, outside any caller
	// transaction, and treats a concurrent duplicate creation as success.
	EnsureAccount(ctx context.Context, addr string) (types.Account, error)
	Account(ctx context.Context, addr string) (types.Account, error)

	ProposalByID(ctx context.Context, id uint64, lock bool) (types.Proposal, error)
	CreateProposal(ctx context.Context, p *types.Proposal) error
	// SaveProposalFields persists only the named fields of p.
	SaveProposalFields(ctx context.Context, p *types.Proposal, fields ...string) error
	ProposalsByPage(ctx context.Context, page int) ([]types.Proposal, error)
	// NonTerminalProposals returns every proposal the sweep still has to
	// evaluate, locking the rows when lock is set.
	NonTerminalProposals(ctx context.Context, lock bool) ([]types.Proposal, error)

	CreateVote(ctx context.Context, v *types.Vote) error
	CreateFund(ctx context.Context, f *types.Fund) error
}

// Sink receives state-change and market events for broadcast. Emit failures
// are logged, never surfaced: notifications are best effort.
type Sink interface {
	Emit(ctx context.Context, topic string, payload map[string]any) error
}

// TopicProposals is the stream lifecycle and vote/fund events land on;
// market events go out on the chain package's stream.
const TopicProposals = "govapi.proposals"

type Params struct {
	Store   Store
	Weights *weights.Calculator
	Sink    Sink
	Logger  *zap.Logger

	Blacklist          []string
	VotingPeriod       time.Duration
	RequiredWeight     *big.Int
	RequiredPercentage int64

	// Now is the clock; tests override it.
	Now func() time.Time
}

type Service struct {
	store     Store
	weights   *weights.Calculator
	sink      Sink
	lgr       *zap.Logger
	blacklist map[string]struct{}

	votingPeriod time.Duration
	reqWeight    *big.Int
	reqPct       *big.Int
	now          func() time.Time
}

func New(p Params) *Service {
	if p.VotingPeriod == 0 {
		p.VotingPeriod = config.VotingPeriod
	}
	if p.RequiredWeight == nil {
		p.RequiredWeight = config.RequiredWeight()
	}
	if p.RequiredPercentage == 0 {
		p.RequiredPercentage = config.RequiredPercentage
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	denied := make(map[string]struct{}, len(p.Blacklist))
	for _, a := range p.Blacklist {
		denied[strings.ToLower(a)] = struct{}{}
	}
	return &Service{
		store:        p.Store,
		weights:      p.Weights,
		sink:         p.Sink,
		lgr:          p.Logger,
		blacklist:    denied,
		votingPeriod: p.VotingPeriod,
		reqWeight:    p.RequiredWeight,
		reqPct:       big.NewInt(p.RequiredPercentage),
		now:          p.Now,
	}
}

func (s *Service) assertNotBlacklisted(addr string) error {
	if _, ok := s.blacklist[addr]; ok {
		return types.ErrBlacklisted
	}
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, payload map[string]any) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, topic, payload); err != nil {
		s.lgr.Warn("event emit failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *Service) emitProposal(ctx context.Context, event string, p types.Proposal) {
	s.emit(ctx, TopicProposals, map[string]any{
		"event":    event,
		"proposal": p.ID,
		"title":    p.Title,
		"state":    p.State,
		"time":     s.now().Unix(),
	})
}

// normalize lower-cases an address; all persisted addresses are
// case-normalized at the service boundary.
func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func appendUnique(set []string, addr string) []string {
	for _, a := range set {
		if a == addr {
			return set
		}
	}
	return append(set, addr)
}
