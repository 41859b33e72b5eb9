package governance

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/ledger"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

// InitParams configure a new DAO registry.
type InitParams struct {
	ID                 uint64
	VotePct            uint16
	ConsensusPct       uint16
	MinMultisigSigners uint8
	RequestLifetime    int64
	// RecordDeposit is the storage value attached to every record created
	// in the DAO and returned to the treasury when the record is retired.
	RecordDeposit uint64
}

func (p InitParams) validate() error {
	switch {
	case p.VotePct > BasisPoints:
		return fmt.Errorf("%w: vote_pct %d > %d", ErrInvalidParams, p.VotePct, BasisPoints)
	case p.ConsensusPct > BasisPoints:
		return fmt.Errorf("%w: consensus_pct %d > %d", ErrInvalidParams, p.ConsensusPct, BasisPoints)
	case p.MinMultisigSigners < 1:
		return fmt.Errorf("%w: min_multisig_signers must be at least 1", ErrInvalidParams)
	case p.RequestLifetime <= 0:
		return fmt.Errorf("%w: request_lifetime must be positive", ErrInvalidParams)
	}
	return nil
}

// Initialize creates the registry for p.ID and enrolls creator as its
// first council member.
func (e *Engine) Initialize(ctx context.Context, creator string, p InitParams) (*types.Registry, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var out *types.Registry
	err := e.atomic(ctx, "initialize", func(tx store.Tx, emit func(Event)) error {
		dao := addr.Registry(p.ID)
		reg := &types.Registry{
			Address:            dao,
			ID:                 p.ID,
			Creator:            creator,
			Treasury:           addr.Treasury(dao),
			VotePct:            p.VotePct,
			ConsensusPct:       p.ConsensusPct,
			MinMultisigSigners: p.MinMultisigSigners,
			RequestLifetime:    p.RequestLifetime,
			MembersCount:       1,
			CouncilCount:       1,
			Deposit:            p.RecordDeposit,
		}
		if err := tx.CreateRegistry(reg); err != nil {
			if errors.Is(err, store.ErrExists) {
				return fmt.Errorf("dao %d: %w", p.ID, ErrRecordExists)
			}
			return err
		}
		if err := tx.CreateMember(&types.Member{
			Address:    addr.Member(creator, dao),
			DaoAddress: dao,
			Owner:      creator,
			IsCouncil:  true,
			JoinedAt:   e.unix(),
			Deposit:    reg.Deposit,
		}); err != nil {
			return err
		}
		out = reg
		emit(Event{Kind: EventInitialized, Dao: dao, Actor: creator})
		return nil
	})
	return out, err
}

// FundTreasury books a patron's contribution to the DAO treasury.
func (e *Engine) FundTreasury(ctx context.Context, dao, patron string, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidParams)
	}
	return e.atomic(ctx, "fund_treasury", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		if err := ledger.Credit(tx, patron, reg.Treasury, amount, ledger.ReasonFund, dao); err != nil {
			return err
		}
		emit(Event{Kind: EventFunded, Dao: dao, Actor: patron, Amount: amount})
		return nil
	})
}

func (e *Engine) GetRegistry(ctx context.Context, dao string) (*types.Registry, error) {
	var out *types.Registry
	err := e.view(ctx, func(tx store.Tx) error {
		reg, err := loadRegistry(tx, dao)
		out = reg
		return err
	})
	return out, err
}

func (e *Engine) ListRegistries(ctx context.Context) ([]types.Registry, error) {
	var out []types.Registry
	err := e.view(ctx, func(tx store.Tx) (err error) {
		out, err = tx.ListRegistries()
		return err
	})
	return out, err
}

// TreasuryBalance returns the custody balance of the DAO treasury.
func (e *Engine) TreasuryBalance(ctx context.Context, dao string) (uint64, error) {
	var out uint64
	err := e.view(ctx, func(tx store.Tx) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		out, err = tx.Balance(reg.Treasury)
		return err
	})
	return out, err
}

// TreasuryEntries returns the most recent journal lines of the treasury.
func (e *Engine) TreasuryEntries(ctx context.Context, dao string, limit int) ([]types.LedgerEntry, error) {
	var out []types.LedgerEntry
	err := e.view(ctx, func(tx store.Tx) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		out, err = tx.Entries(reg.Treasury, limit)
		return err
	})
	return out, err
}

// scaledThreshold computes floor(pct * population / 10000) without
// intermediate overflow.
func scaledThreshold(pct uint16, population uint64) uint64 {
	hi, lo := bits.Mul64(uint64(pct), population)
	q, _ := bits.Div64(hi, lo, BasisPoints)
	return q
}

// ProposalThreshold is the vote count needed to approve or dismiss a
// proposal: floor(vote_pct * members_count / 10000).
func ProposalThreshold(reg *types.Registry) uint64 {
	return scaledThreshold(reg.VotePct, reg.MembersCount)
}

// RoleChangeThreshold is floor(consensus_pct * council_count / 10000),
// never below one.
func RoleChangeThreshold(reg *types.Registry) uint64 {
	t := scaledThreshold(reg.ConsensusPct, reg.CouncilCount)
	if t < 1 {
		return 1
	}
	return t
}

// decide applies the vote thresholds and then the lifetime check, which
// has the last word.
func decide(up, down, threshold uint64, elapsed, lifetime int64) types.Status {
	status := types.StatusPending
	if up >= threshold {
		status = types.StatusApproved
	} else if down >= threshold {
		status = types.StatusDismissed
	}
	if elapsed >= lifetime {
		status = types.StatusExpired
	}
	return status
}
