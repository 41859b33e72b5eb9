package governance

import (
	"context"
	"errors"
	"fmt"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

// Enroll adds principal to dao as a regular member.
func (e *Engine) Enroll(ctx context.Context, dao, principal string) (*types.Member, error) {
	var out *types.Member
	err := e.atomic(ctx, "enroll", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		m := &types.Member{
			Address:    addr.Member(principal, dao),
			DaoAddress: dao,
			Owner:      principal,
			IsCouncil:  false,
			JoinedAt:   e.unix(),
			Deposit:    reg.Deposit,
		}
		if err := incr(&reg.MembersCount); err != nil {
			return err
		}
		if err := tx.CreateMember(m); err != nil {
			if errors.Is(err, store.ErrExists) {
				return fmt.Errorf("%s: %w", principal, ErrAlreadyMember)
			}
			return err
		}
		if err := tx.SaveRegistry(reg); err != nil {
			return err
		}
		out = m
		emit(Event{Kind: EventEnrolled, Dao: dao, Ref: m.Address, Actor: principal})
		return nil
	})
	return out, err
}

// Exit removes the caller's own membership.
func (e *Engine) Exit(ctx context.Context, dao, principal string) error {
	return e.atomic(ctx, "exit", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		m, err := loadMember(tx, dao, principal)
		if err != nil {
			return err
		}
		if err := retireMember(tx, reg, m); err != nil {
			return err
		}
		emit(Event{Kind: EventExited, Dao: dao, Ref: m.Address, Actor: principal})
		return nil
	})
}

// retireMember adjusts the registry counters, deletes the member record and
// credits its deposit to the treasury. Both counters are checked before the
// registry is written.
func retireMember(tx store.Tx, reg *types.Registry, m *types.Member) error {
	if m.IsCouncil {
		if err := decr(&reg.CouncilCount); err != nil {
			return err
		}
	}
	if err := decr(&reg.MembersCount); err != nil {
		return err
	}
	if err := tx.DeleteMember(m.Address); err != nil {
		return err
	}
	if err := tx.SaveRegistry(reg); err != nil {
		return err
	}
	return retireDeposits(tx, reg, m.Address, m.Deposit)
}

// GetMember looks up principal's membership in dao.
func (e *Engine) GetMember(ctx context.Context, dao, principal string) (*types.Member, error) {
	var out *types.Member
	err := e.view(ctx, func(tx store.Tx) error {
		if _, err := loadRegistry(tx, dao); err != nil {
			return err
		}
		m, err := loadMember(tx, dao, principal)
		out = m
		return err
	})
	return out, err
}
