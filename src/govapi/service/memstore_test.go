package service

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ncatdao/govapi/src/govapi/types"
)

// memStore is an in-memory Store with snapshot-based transactions: InTx
// serializes callers and restores the pre-transaction state on error, the
// same all-or-nothing contract the gorm store gets from MySQL.
type memStore struct {
	txmu sync.Mutex
	mu   sync.Mutex

	accounts  map[string]types.Account
	proposals map[uint64]types.Proposal
	votes     map[string]types.Vote
	funds     []types.Fund

	nextProposalID uint64
	nextVoteID     uint64

	failCreateFund  bool
	failSaveOnState string // fail SaveProposalFields when writing this state
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[string]types.Account),
		proposals: make(map[uint64]types.Proposal),
		votes:     make(map[string]types.Vote),
	}
}

type memSnapshot struct {
	accounts  map[string]types.Account
	proposals map[uint64]types.Proposal
	votes     map[string]types.Vote
	funds     []types.Fund
}

func copyProposal(p types.Proposal) types.Proposal {
	out := p
	out.Voters = append([]string(nil), p.Voters...)
	out.Funders = append([]string(nil), p.Funders...)
	if p.ExpireDate != nil {
		d := *p.ExpireDate
		out.ExpireDate = &d
	}
	return out
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		accounts:  make(map[string]types.Account, len(m.accounts)),
		proposals: make(map[uint64]types.Proposal, len(m.proposals)),
		votes:     make(map[string]types.Vote, len(m.votes)),
		funds:     append([]types.Fund(nil), m.funds...),
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.proposals {
		s.proposals[k] = copyProposal(v)
	}
	for k, v := range m.votes {
		s.votes[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = s.accounts
	m.proposals = s.proposals
	m.votes = s.votes
	m.funds = s.funds
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	m.txmu.Lock()
	defer m.txmu.Unlock()
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) EnsureAccount(ctx context.Context, addr string) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[addr]; ok {
		return acct, nil
	}
	acct := types.Account{Address: addr, CreatedAt: time.Now()}
	m.accounts[addr] = acct
	return acct, nil
}

func (m *memStore) Account(ctx context.Context, addr string) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[addr]
	if !ok {
		return types.Account{}, types.ErrNotFound
	}
	return acct, nil
}

func (m *memStore) setAccount(acct types.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.Address] = acct
}

func (m *memStore) ProposalByID(ctx context.Context, id uint64, lock bool) (types.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return types.Proposal{}, types.ErrNotFound
	}
	return copyProposal(p), nil
}

func (m *memStore) CreateProposal(ctx context.Context, p *types.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.proposals {
		if existing.Title == p.Title {
			return fmt.Errorf("%w: title already taken", types.ErrValidation)
		}
	}
	m.nextProposalID++
	p.ID = m.nextProposalID
	m.proposals[p.ID] = copyProposal(*p)
	return nil
}

func (m *memStore) SaveProposalFields(ctx context.Context, p *types.Proposal, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.proposals[p.ID]
	if !ok {
		return types.ErrNotFound
	}
	for _, f := range fields {
		switch f {
		case "state":
			if m.failSaveOnState != "" && p.State == m.failSaveOnState {
				return fmt.Errorf("%w: injected failure", types.ErrStoreUnavailable)
			}
			cur.State = p.State
		case "for_weight":
			cur.ForWeight = p.ForWeight
		case "against_weight":
			cur.AgainstWeight = p.AgainstWeight
		case "voters":
			cur.Voters = append([]string(nil), p.Voters...)
		case "raised_fund":
			cur.RaisedFund = p.RaisedFund
		case "funders":
			cur.Funders = append([]string(nil), p.Funders...)
		default:
			return fmt.Errorf("memStore: unknown field %q", f)
		}
	}
	m.proposals[p.ID] = cur
	return nil
}

func (m *memStore) ProposalsByPage(ctx context.Context, page int) ([]types.Proposal, error) {
	all, err := m.sorted(func(p types.Proposal) bool { return true })
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	const pageSize = 10
	lo := page * pageSize
	if lo >= len(all) {
		return nil, nil
	}
	hi := lo + pageSize
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], nil
}

func (m *memStore) NonTerminalProposals(ctx context.Context, lock bool) ([]types.Proposal, error) {
	return m.sorted(func(p types.Proposal) bool { return !types.IsTerminal(p.State) })
}

func (m *memStore) sorted(keep func(types.Proposal) bool) ([]types.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Proposal
	for _, p := range m.proposals {
		if keep(p) {
			out = append(out, copyProposal(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateVote(ctx context.Context, v *types.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s|%d", v.VoterAddress, v.ProposalID)
	if _, ok := m.votes[key]; ok {
		return types.ErrDuplicateVote
	}
	m.nextVoteID++
	v.ID = m.nextVoteID
	m.votes[key] = *v
	return nil
}

func (m *memStore) CreateFund(ctx context.Context, f *types.Fund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateFund {
		return fmt.Errorf("%w: injected failure", types.ErrStoreUnavailable)
	}
	f.ID = uint64(len(m.funds) + 1)
	m.funds = append(m.funds, *f)
	return nil
}

// fakeOracle serves balances from a map; a nil map means every lookup fails.
type fakeOracle struct {
	balances map[string]*big.Int
	err      error
}

func (f fakeOracle) Balance(ctx context.Context, addr string) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	bal, ok := f.balances[addr]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

type sinkEvent struct {
	topic   string
	payload map[string]any
}

type memSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (s *memSink) Emit(ctx context.Context, topic string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{topic: topic, payload: payload})
	return nil
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *memSink) last() sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

// clock is a settable test clock.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
