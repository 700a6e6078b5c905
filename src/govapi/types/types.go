package types

import "time"

// Proposal lifecycle states.
const (
	StateVoting         = "Voting"
	StateResearch       = "Research"
	StateFunding        = "Funding"
	StateImplementation = "Implementation"
	StateCompleted      = "Completed"
	StateRejected       = "Rejected"
)

// NonTerminalStates are the states the lifecycle sweep still has to look at.
var NonTerminalStates = []string{
	StateVoting,
	StateResearch,
	StateFunding,
	StateImplementation,
}

func IsTerminal(state string) bool {
	return state == StateCompleted || state == StateRejected
}

// Accounts
type Account struct {
	Address   string  `gorm:"primaryKey;size:64"`
	Delegatee *string `gorm:"size:64"`
	IsAdmin   bool    `gorm:"default:false"`
	CreatedAt time.Time
}

// Delegated reports whether the account has moved its voting power elsewhere.
func (a Account) Delegated() bool {
	return a.Delegatee != nil && *a.Delegatee != ""
}

// Proposals
type Proposal struct {
	ID         uint64 `gorm:"primaryKey"`
	Title      string `gorm:"size:255;uniqueIndex;not null"`
	Author     string `gorm:"size:64;not null"`
	Content    string `gorm:"type:text;not null"`
	State      string `gorm:"size:32;not null;default:Voting"`
	Expiration time.Time

	// Tallies are hex-encoded big integers; see weight.go.
	ForWeight     string   `gorm:"size:80;not null;default:0x0"`
	AgainstWeight string   `gorm:"size:80;not null;default:0x0"`
	Voters        []string `gorm:"serializer:json"`

	Contact     string `gorm:"size:255"`
	ContactType string `gorm:"size:32"`

	// Optional hard deadline that overrides the normal lifecycle.
	HasExpire  bool `gorm:"default:false"`
	ExpireDate *time.Time

	RequireFund bool     `gorm:"default:false"`
	TargetFund  uint64   `gorm:"default:0"`
	RaisedFund  uint64   `gorm:"default:0"`
	Funders     []string `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Vote ledger. (voter, proposal) is unique; a row is never updated once written.
type Vote struct {
	ID           uint64 `gorm:"primaryKey"`
	VoterAddress string `gorm:"size:64;not null;uniqueIndex:idx_voter_proposal"`
	ProposalID   uint64 `gorm:"not null;uniqueIndex:idx_voter_proposal"`
	Support      bool
	Weight       string `gorm:"size:80;not null"` // snapshot at vote time
	CreatedAt    time.Time
}

// Fund ledger. Repeat contributions from the same funder are allowed and summed
// on the proposal; every row keeps its on-chain tx hash for audit.
type Fund struct {
	ID            uint64 `gorm:"primaryKey"`
	FunderAddress string `gorm:"size:64;not null;index"`
	ProposalID    uint64 `gorm:"not null;index"`
	Amount        uint64 `gorm:"not null"`
	TxHash        string `gorm:"size:80;not null"`
	CreatedAt     time.Time
}
