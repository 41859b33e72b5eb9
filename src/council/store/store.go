package store

import (
	"context"
	"errors"

	"github.com/stake-plus/council-treasury/src/council/types"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
)

// Store runs units of work. Atomic commits every mutation made through tx
// when fn returns nil and discards all of them otherwise.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Filter narrows request listings. A nil Status lists every status.
type Filter struct {
	Status *types.Status
	Limit  int
}

// Tx is the record storage contract seen by a single unit of work.
// Create* fails with ErrExists when the derived address is taken and
// Get*/Delete* fail with ErrNotFound when it is free.
type Tx interface {
	GetRegistry(addr string) (*types.Registry, error)
	CreateRegistry(r *types.Registry) error
	SaveRegistry(r *types.Registry) error
	ListRegistries() ([]types.Registry, error)

	GetMember(addr string) (*types.Member, error)
	CreateMember(m *types.Member) error
	SaveMember(m *types.Member) error
	DeleteMember(addr string) error

	GetProposal(addr string) (*types.Proposal, error)
	CreateProposal(p *types.Proposal) error
	SaveProposal(p *types.Proposal) error
	DeleteProposal(addr string) error
	ListProposals(dao string, f Filter) ([]types.Proposal, error)

	GetRoleChange(addr string) (*types.RoleChange, error)
	CreateRoleChange(r *types.RoleChange) error
	SaveRoleChange(r *types.RoleChange) error
	DeleteRoleChange(addr string) error
	ListRoleChanges(dao string, f Filter) ([]types.RoleChange, error)

	GetVote(addr string) (*types.Vote, error)
	CreateVote(v *types.Vote) error
	// DeleteVotes removes every vote cast on target and returns them.
	DeleteVotes(target string) ([]types.Vote, error)

	// Balance of a custody account; unknown accounts hold zero.
	Balance(account string) (uint64, error)
	SetBalance(account string, balance uint64) error
	AppendEntry(e *types.LedgerEntry) error
	Entries(account string, limit int) ([]types.LedgerEntry, error)
}
