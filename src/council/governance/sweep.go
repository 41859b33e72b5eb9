package governance

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

// ExpireStale reviews every pending request of dao whose lifetime has run
// out. Each request is settled in its own unit of work so one failure does
// not hold back the rest. It returns the number of requests settled.
func (e *Engine) ExpireStale(ctx context.Context, dao string) (int, error) {
	pending := types.StatusPending
	f := store.Filter{Status: &pending}

	var (
		reg       *types.Registry
		proposals []types.Proposal
		roles     []types.RoleChange
	)
	err := e.view(ctx, func(tx store.Tx) error {
		var err error
		if reg, err = loadRegistry(tx, dao); err != nil {
			return err
		}
		if proposals, err = tx.ListProposals(dao, f); err != nil {
			return err
		}
		roles, err = tx.ListRoleChanges(dao, f)
		return err
	})
	if err != nil {
		return 0, err
	}

	now := e.unix()
	settled := 0
	for _, p := range proposals {
		if now-p.CreatedAt < reg.RequestLifetime {
			continue
		}
		id := p.Address
		err := e.atomic(ctx, "expire_proposal", func(tx store.Tx, emit func(Event)) error {
			reg, err := loadRegistry(tx, dao)
			if err != nil {
				return err
			}
			p, err := loadProposal(tx, dao, id)
			if err != nil {
				return err
			}
			if err := e.reviewProposal(tx, reg, p); err != nil {
				return err
			}
			emit(Event{Kind: EventProposalReviewed, Dao: dao, Ref: id, Status: p.Status.String()})
			return nil
		})
		if err := e.sweepResult(id, err); err != nil {
			return settled, err
		}
		if err == nil {
			settled++
		}
	}
	for _, r := range roles {
		if now-r.CreatedAt < reg.RequestLifetime {
			continue
		}
		id := r.Address
		err := e.atomic(ctx, "expire_role_change", func(tx store.Tx, emit func(Event)) error {
			reg, err := loadRegistry(tx, dao)
			if err != nil {
				return err
			}
			r, err := loadRoleChange(tx, dao, id)
			if err != nil {
				return err
			}
			if err := e.reviewRoleChange(tx, reg, r); err != nil {
				return err
			}
			emit(Event{Kind: EventRoleReviewed, Dao: dao, Ref: id, Status: r.Status.String()})
			return nil
		})
		if err := e.sweepResult(id, err); err != nil {
			return settled, err
		}
		if err == nil {
			settled++
		}
	}
	return settled, nil
}

// sweepResult drops races with concurrent reviewers and resolvers and
// stops the sweep on anything else.
func (e *Engine) sweepResult(id string, err error) error {
	if err == nil || errors.Is(err, ErrAlreadyReviewed) || errors.Is(err, ErrRecordNotFound) {
		if err != nil {
			e.log.Debug("sweep skipped request", zap.String("ref", id), zap.Error(err))
		}
		return nil
	}
	return err
}

// ExpireAll sweeps every registered DAO.
func (e *Engine) ExpireAll(ctx context.Context) (int, error) {
	regs, err := e.ListRegistries(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, reg := range regs {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := e.ExpireStale(ctx, reg.Address)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
