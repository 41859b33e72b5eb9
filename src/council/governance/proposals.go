package governance

import (
	"context"
	"errors"
	"fmt"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

type ProposalInput struct {
	Title          string
	Content        string
	TargetTreasury string
	AmountRequired uint64
}

// ResolveInput carries what the resolver presents for an approved release:
// the account funds should go to and the co-signer records.
type ResolveInput struct {
	TargetTreasury string
	Signers        []SignerRecord
}

func loadProposal(tx store.Tx, dao, id string) (*types.Proposal, error) {
	p, err := tx.GetProposal(id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && p.DaoAddress != dao) {
		return nil, fmt.Errorf("proposal %s: %w", id, ErrRecordNotFound)
	}
	return p, err
}

// SubmitProposal opens a pending proposal authored by principal.
func (e *Engine) SubmitProposal(ctx context.Context, dao, principal string, in ProposalInput) (*types.Proposal, error) {
	if len(in.Title) > MaxTitleLength {
		return nil, ErrTitleTooLong
	}
	if len(in.Content) > MaxContentLength {
		return nil, ErrContentTooLong
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidParams)
	}
	if in.TargetTreasury == "" {
		return nil, fmt.Errorf("%w: target treasury is required", ErrInvalidParams)
	}

	var out *types.Proposal
	err := e.atomic(ctx, "submit_proposal", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		if in.TargetTreasury == reg.Treasury {
			return fmt.Errorf("%w: target treasury is the dao treasury", ErrInvalidParams)
		}
		author, err := loadMember(tx, dao, principal)
		if err != nil {
			return err
		}
		p := &types.Proposal{
			Address:        addr.Proposal(in.Title, dao),
			DaoAddress:     dao,
			Author:         author.Address,
			Title:          in.Title,
			Content:        in.Content,
			TargetTreasury: in.TargetTreasury,
			AmountRequired: in.AmountRequired,
			CreatedAt:      e.unix(),
			Status:         types.StatusPending,
			Deposit:        reg.Deposit,
		}
		if err := tx.CreateProposal(p); err != nil {
			if errors.Is(err, store.ErrExists) {
				return fmt.Errorf("proposal %q: %w", in.Title, ErrRecordExists)
			}
			return err
		}
		out = p
		emit(Event{Kind: EventProposalSubmitted, Dao: dao, Ref: p.Address, Actor: principal, Detail: p.Title, Amount: p.AmountRequired})
		return nil
	})
	return out, err
}

// VoteOnProposal records principal's vote (1 up, 0 down) on a pending
// proposal.
func (e *Engine) VoteOnProposal(ctx context.Context, dao, id, principal string, value uint8) (*types.Proposal, error) {
	var out *types.Proposal
	err := e.atomic(ctx, "vote_on_proposal", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		voter, err := loadMember(tx, dao, principal)
		if err != nil {
			return err
		}
		p, err := loadProposal(tx, dao, id)
		if err != nil {
			return err
		}
		if p.Status != types.StatusPending {
			return ErrProposalNotPending
		}
		vt, err := ParseVote(value)
		if err != nil {
			return err
		}
		if _, err := castVote(tx, voter, p.Address, vt, reg.Deposit); err != nil {
			return err
		}
		if err := tally(&p.Upvotes, &p.Downvotes, vt); err != nil {
			return err
		}
		if err := tx.SaveProposal(p); err != nil {
			return err
		}
		out = p
		emit(Event{Kind: EventProposalVoted, Dao: dao, Ref: p.Address, Actor: principal, Detail: vt.String()})
		return nil
	})
	return out, err
}

// ReviewProposal settles a pending proposal against the membership
// threshold and its lifetime.
func (e *Engine) ReviewProposal(ctx context.Context, dao, id, principal string) (*types.Proposal, error) {
	var out *types.Proposal
	err := e.atomic(ctx, "review_proposal", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		if _, err := loadMember(tx, dao, principal); err != nil {
			return err
		}
		p, err := loadProposal(tx, dao, id)
		if err != nil {
			return err
		}
		if err := e.reviewProposal(tx, reg, p); err != nil {
			return err
		}
		out = p
		emit(Event{Kind: EventProposalReviewed, Dao: dao, Ref: p.Address, Actor: principal, Status: p.Status.String()})
		return nil
	})
	return out, err
}

func (e *Engine) reviewProposal(tx store.Tx, reg *types.Registry, p *types.Proposal) error {
	if p.Status != types.StatusPending {
		return ErrAlreadyReviewed
	}
	p.Status = decide(p.Upvotes, p.Downvotes, ProposalThreshold(reg), e.unix()-p.CreatedAt, reg.RequestLifetime)
	return tx.SaveProposal(p)
}

// ResolveProposal executes a reviewed proposal. Approved proposals release
// AmountRequired through the treasury guard; any guard failure leaves the
// proposal approved for a later retry. The record is retired in every
// successful case.
func (e *Engine) ResolveProposal(ctx context.Context, dao, id, principal string, in ResolveInput) (*types.Proposal, error) {
	var out *types.Proposal
	err := e.atomic(ctx, "resolve_proposal", func(tx store.Tx, emit func(Event)) error {
		reg, err := loadRegistry(tx, dao)
		if err != nil {
			return err
		}
		resolver, err := loadMember(tx, dao, principal)
		if err != nil {
			return err
		}
		p, err := loadProposal(tx, dao, id)
		if err != nil {
			return err
		}
		switch p.Status {
		case types.StatusPending:
			return ErrCannotResolveBeforeReview
		case types.StatusApproved:
			signed, err := e.authorizeRelease(tx, reg, resolver, p, in)
			if err != nil {
				return err
			}
			if e.hook != nil {
				if err := e.hook.OnApproved(ctx, tx, reg, p); err != nil {
					return fmt.Errorf("approval hook: %w", err)
				}
			}
			emit(Event{Kind: EventFundsReleased, Dao: dao, Ref: p.Address, Actor: principal,
				Detail: fmt.Sprintf("%s (%d signers)", p.TargetTreasury, signed), Amount: p.AmountRequired})
		case types.StatusDismissed, types.StatusExpired:
			// nothing moves
		}

		voteDeposits, err := retireVotes(tx, p.Address)
		if err != nil {
			return err
		}
		if err := tx.DeleteProposal(p.Address); err != nil {
			return err
		}
		if p.Deposit+voteDeposits < p.Deposit {
			return ErrCountOutOfRange
		}
		if err := retireDeposits(tx, reg, p.Address, p.Deposit+voteDeposits); err != nil {
			return err
		}
		out = p
		emit(Event{Kind: EventProposalResolved, Dao: dao, Ref: p.Address, Actor: principal, Status: p.Status.String(), Detail: p.Title})
		return nil
	})
	return out, err
}

func (e *Engine) GetProposal(ctx context.Context, dao, id string) (*types.Proposal, error) {
	var out *types.Proposal
	err := e.view(ctx, func(tx store.Tx) error {
		p, err := loadProposal(tx, dao, id)
		out = p
		return err
	})
	return out, err
}

func (e *Engine) ListProposals(ctx context.Context, dao string, f store.Filter) ([]types.Proposal, error) {
	var out []types.Proposal
	err := e.view(ctx, func(tx store.Tx) error {
		if _, err := loadRegistry(tx, dao); err != nil {
			return err
		}
		var err error
		out, err = tx.ListProposals(dao, f)
		return err
	})
	return out, err
}

// ProposalAddress returns the id a proposal titled title gets in dao.
func ProposalAddress(dao, title string) string { return addr.Proposal(title, dao) }
