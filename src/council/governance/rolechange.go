package governance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

// ParseRoleOp accepts the request tags ("promotion", "demotion",
// "removal") and the operation names. Anything else is rejected.
func ParseRoleOp(s string) (types.RoleOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "promotion", "promote", "promotetocouncil":
		return types.PromoteToCouncil, nil
	case "demotion", "demote", "demotefromcouncil":
		return types.DemoteFromCouncil, nil
	case "removal", "remove", "removemember":
		return types.RemoveMember, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrInvalidRoleOpKind)
}

func loadRoleChange(tx store.Tx, dao, id string) (*types.RoleChange, error) {
	r, err := tx.GetRoleChange(id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && r.DaoAddress != dao) {
		return nil, fmt.Errorf("role change %s: %w", id, ErrRecordNotFound)
	}
	return r, err
}

// RoleChangeAddress returns the id of the op request on target's
// membership in dao.
func RoleChangeAddress(dao string, op types.RoleOp, target string) string {
	return addr.RoleChange(op.Tag(), addr.Member(target, dao), dao)
}

// InitiateRoleChange opens a request to apply op to target. Only council
// members may initiate, and a demotion target must be council.
func (e *Engine) InitiateRoleChange(ctx context.Context, dao, principal string, op types.RoleOp, target string) (*types.RoleChange, error) {
	if op.Tag() == "" {
		return nil, ErrInvalidRoleOpKind
	}
	var out *types.RoleChange
	err := e.atomic(ctx, "initiate_role_change", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		initiator, err := loadMember(tx, dao, principal)
		if err != nil {
			return err
		}
		if !initiator.IsCouncil {
			return ErrNotCouncilMember
		}
		nominee, err := loadMember(tx, dao, target)
		if err != nil {
			return err
		}
		if op == types.DemoteFromCouncil && !nominee.IsCouncil {
			return fmt.Errorf("demotion target: %w", ErrNotCouncilMember)
		}
		r := &types.RoleChange{
			Address:      addr.RoleChange(op.Tag(), nominee.Address, dao),
			DaoAddress:   dao,
			OpType:       op,
			TargetMember: nominee.Address,
			Initiator:    initiator.Address,
			CreatedAt:    e.unix(),
			Status:       types.StatusPending,
			Deposit:      reg.Deposit,
		}
		if err := tx.CreateRoleChange(r); err != nil {
			if errors.Is(err, store.ErrExists) {
				return fmt.Errorf("%s of %s: %w", op, target, ErrRecordExists)
			}
			return err
		}
		out = r
		emit(Event{Kind: EventRoleInitiated, Dao: dao, Ref: r.Address, Actor: principal, Detail: op.String() + " " + target})
		return nil
	})
	return out, err
}

// VoteOnRoleChange records a vote. Promotions and demotions are voted on
// by the council, removals by any member.
func (e *Engine) VoteOnRoleChange(ctx context.Context, dao, id, principal string, value uint8) (*types.RoleChange, error) {
	var out *types.RoleChange
	err := e.atomic(ctx, "vote_on_role_change", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		voter, err := loadMember(tx, dao, principal)
		if err != nil {
			return err
		}
		r, err := loadRoleChange(tx, dao, id)
		if err != nil {
			return err
		}
		if r.Status != types.StatusPending {
			return ErrProposalNotPending
		}
		if r.OpType.CouncilOnly() && !voter.IsCouncil {
			return ErrNotCouncilMember
		}
		vt, err := ParseVote(value)
		if err != nil {
			return err
		}
		if _, err := castVote(tx, voter, r.Address, vt, reg.Deposit); err != nil {
			return err
		}
		if err := tally(&r.Upvotes, &r.Downvotes, vt); err != nil {
			return err
		}
		if err := tx.SaveRoleChange(r); err != nil {
			return err
		}
		out = r
		emit(Event{Kind: EventRoleVoted, Dao: dao, Ref: r.Address, Actor: principal, Detail: vt.String()})
		return nil
	})
	return out, err
}

// ReviewRoleChange settles a pending request against the council
// threshold and its lifetime.
func (e *Engine) ReviewRoleChange(ctx context.Context, dao, id, principal string) (*types.RoleChange, error) {
	var out *types.RoleChange
	err := e.atomic(ctx, "review_role_change", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		reviewer, err := loadMember(tx, dao, principal)
		if err != nil {
			return err
		}
		r, err := loadRoleChange(tx, dao, id)
		if err != nil {
			return err
		}
		if r.Status != types.StatusPending {
			return ErrAlreadyReviewed
		}
		if r.OpType.CouncilOnly() && !reviewer.IsCouncil {
			return ErrNotCouncilMember
		}
		if err := e.reviewRoleChange(tx, reg, r); err != nil {
			return err
		}
		out = r
		emit(Event{Kind: EventRoleReviewed, Dao: dao, Ref: r.Address, Actor: principal, Status: r.Status.String()})
		return nil
	})
	return out, err
}

func (e *Engine) reviewRoleChange(tx store.Tx, reg *types.Registry, r *types.RoleChange) error {
	if r.Status != types.StatusPending {
		return ErrAlreadyReviewed
	}
	r.Status = decide(r.Upvotes, r.Downvotes, RoleChangeThreshold(reg), e.unix()-r.CreatedAt, reg.RequestLifetime)
	return tx.SaveRoleChange(r)
}

// ResolveRoleChange applies an approved request to the target membership
// and retires the request. Only council members resolve.
func (e *Engine) ResolveRoleChange(ctx context.Context, dao, id, principal string) (*types.RoleChange, error) {
	var out *types.RoleChange
	err := e.atomic(ctx, "resolve_role_change", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		resolver, err := loadMember(tx, dao, principal)
		if err != nil {
			return err
		}
		r, err := loadRoleChange(tx, dao, id)
		if err != nil {
			return err
		}
		if r.Status == types.StatusPending {
			return ErrCannotResolveBeforeReview
		}
		if !resolver.IsCouncil {
			return ErrNotCouncilMember
		}
		if r.Status == types.StatusApproved {
			if err := applyRoleChange(tx, reg, r); err != nil {
				return err
			}
			if r.OpType == types.RemoveMember {
				emit(Event{Kind: EventMemberRemoved, Dao: dao, Ref: r.TargetMember, Actor: principal})
			}
		}

		voteDeposits, err := retireVotes(tx, r.Address)
		if err != nil {
			return err
		}
		if err := tx.DeleteRoleChange(r.Address); err != nil {
			return err
		}
		if r.Deposit+voteDeposits < r.Deposit {
			return ErrCountOutOfRange
		}
		if err := retireDeposits(tx, reg, r.Address, r.Deposit+voteDeposits); err != nil {
			return err
		}
		out = r
		emit(Event{Kind: EventRoleResolved, Dao: dao, Ref: r.Address, Actor: principal, Status: r.Status.String(), Detail: r.OpType.String()})
		return nil
	})
	return out, err
}

// applyRoleChange mutates the target of an approved request. A target that
// left the DAO since the request was opened leaves nothing to change.
func applyRoleChange(tx store.Tx, reg *types.Registry, r *types.RoleChange) error {
	target, err := tx.GetMember(r.TargetMember)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch r.OpType {
	case types.PromoteToCouncil:
		if target.IsCouncil {
			return nil
		}
		if err := incr(&reg.CouncilCount); err != nil {
			return err
		}
		target.IsCouncil = true
	case types.DemoteFromCouncil:
		if !target.IsCouncil {
			return nil
		}
		if err := decr(&reg.CouncilCount); err != nil {
			return err
		}
		target.IsCouncil = false
	case types.RemoveMember:
		return retireMember(tx, reg, target)
	default:
		return ErrInvalidRoleOpKind
	}
	if err := tx.SaveMember(target); err != nil {
		return err
	}
	return tx.SaveRegistry(reg)
}

func (e *Engine) GetRoleChange(ctx context.Context, dao, id string) (*types.RoleChange, error) {
	var out *types.RoleChange
	err := e.view(ctx, func(tx store.Tx) error {
		r, err := loadRoleChange(tx, dao, id)
		out = r
		return err
	})
	return out, err
}

func (e *Engine) ListRoleChanges(ctx context.Context, dao string, f store.Filter) ([]types.RoleChange, error) {
	var out []types.RoleChange
	err := e.view(ctx, func(tx store.Tx) error {
		if _, err := loadRegistry(tx, dao); err != nil {
			return err
		}
		var err error
		out, err = tx.ListRoleChanges(dao, f)
		return err
	})
	return out, err
}
