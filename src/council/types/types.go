package types

import (
	"fmt"
	"time"
)

// Status is shared by proposals and role changes.
type Status uint8

const (
	StatusPending Status = iota
	StatusApproved
	StatusDismissed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusDismissed:
		return "dismissed"
	case StatusExpired:
		return "expired"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Terminal reports whether no further review is possible.
func (s Status) Terminal() bool { return s != StatusPending }

type VoteType uint8

const (
	Downvote VoteType = 0
	Upvote   VoteType = 1
)

func (v VoteType) String() string {
	if v == Upvote {
		return "upvote"
	}
	return "downvote"
}

type RoleOp uint8

const (
	PromoteToCouncil RoleOp = iota + 1
	DemoteFromCouncil
	RemoveMember
)

// Tag is the stable namespace used when deriving the request address.
func (o RoleOp) Tag() string {
	switch o {
	case PromoteToCouncil:
		return "promotion"
	case DemoteFromCouncil:
		return "demotion"
	case RemoveMember:
		return "removal"
	}
	return ""
}

func (o RoleOp) String() string { return o.Tag() }

// CouncilOnly reports whether voting and review are restricted to council.
func (o RoleOp) CouncilOnly() bool {
	return o == PromoteToCouncil || o == DemoteFromCouncil
}

// DAO registry, one per organisation
type Registry struct {
	Address            string `gorm:"primaryKey;size:66"`
	ID                 uint64 `gorm:"uniqueIndex;not null"`
	Creator            string `gorm:"size:128;not null"`
	Treasury           string `gorm:"size:66;uniqueIndex;not null"`
	VotePct            uint16 `gorm:"not null"`
	ConsensusPct       uint16 `gorm:"not null"`
	MinMultisigSigners uint8  `gorm:"not null;default:1"`
	RequestLifetime    int64  `gorm:"not null"` // seconds
	MembersCount       uint64 `gorm:"not null;default:0"`
	CouncilCount       uint64 `gorm:"not null;default:0"`
	Deposit            uint64 `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DAO members
type Member struct {
	Address    string `gorm:"primaryKey;size:66"`
	DaoAddress string `gorm:"size:66;index;not null"`
	Owner      string `gorm:"size:128;index;not null"`
	IsCouncil  bool   `gorm:"not null;default:false"`
	JoinedAt   int64  `gorm:"not null"`
	Deposit    uint64 `gorm:"not null;default:0"`
}

// Funding/action proposals
type Proposal struct {
	Address        string `gorm:"primaryKey;size:66"`
	DaoAddress     string `gorm:"size:66;index;not null"`
	Author         string `gorm:"size:66;not null"` // member address
	Title          string `gorm:"size:64;not null"`
	Content        string `gorm:"type:text;not null"`
	TargetTreasury string `gorm:"size:128;not null"`
	AmountRequired uint64 `gorm:"not null"`
	Upvotes        uint64 `gorm:"not null;default:0"`
	Downvotes      uint64 `gorm:"not null;default:0"`
	CreatedAt      int64  `gorm:"autoCreateTime:false;not null"`
	Status         Status `gorm:"index;not null;default:0"`
	Deposit        uint64 `gorm:"not null;default:0"`
}

// Council promotion, demotion or removal requests
type RoleChange struct {
	Address      string `gorm:"primaryKey;size:66"`
	DaoAddress   string `gorm:"size:66;index;not null"`
	OpType       RoleOp `gorm:"not null"`
	TargetMember string `gorm:"size:66;index;not null"` // member address
	Initiator    string `gorm:"size:66;not null"`
	Upvotes      uint64 `gorm:"not null;default:0"`
	Downvotes    uint64 `gorm:"not null;default:0"`
	CreatedAt    int64  `gorm:"autoCreateTime:false;not null"`
	Status       Status `gorm:"index;not null;default:0"`
	Deposit      uint64 `gorm:"not null;default:0"`
}

// One vote per (member, request)
type Vote struct {
	Address  string   `gorm:"primaryKey;size:66"`
	Voter    string   `gorm:"size:66;not null;uniqueIndex:idx_vote_pair"`
	Target   string   `gorm:"size:66;not null;uniqueIndex:idx_vote_pair;index"`
	VoteType VoteType `gorm:"not null"`
	Deposit  uint64   `gorm:"not null;default:0"`
}

// Custody balances (treasuries and payout destinations)
type Account struct {
	Address   string `gorm:"primaryKey;size:128"`
	Balance   uint64 `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// Append-only journal of asset movements
type LedgerEntry struct {
	ID        uint64 `gorm:"primaryKey"`
	From      string `gorm:"size:128;index"`
	To        string `gorm:"size:128;index;not null"`
	Amount    uint64 `gorm:"not null"`
	Reason    string `gorm:"size:32;not null"` // fund, release, deposit
	Ref       string `gorm:"size:66;index"`
	CreatedAt time.Time
}

// AllModels lists every table the service migrates.
var AllModels = []interface{}{
	&Registry{}, &Member{}, &Proposal{}, &RoleChange{},
	&Vote{}, &Account{}, &LedgerEntry{},
}
