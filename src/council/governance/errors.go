package governance

import (
	"errors"
)

var (
	ErrNotCouncilMember            = errors.New("not a council member")
	ErrCountOutOfRange             = errors.New("count overflow or underflow")
	ErrTitleTooLong                = errors.New("proposal title exceeds maximum length")
	ErrContentTooLong              = errors.New("proposal content exceeds maximum length")
	ErrProposalNotPending          = errors.New("voting is only allowed on pending requests")
	ErrAlreadyReviewed             = errors.New("this has already been reviewed")
	ErrCannotResolveBeforeReview   = errors.New("this cannot be resolved until it has been reviewed")
	ErrInvalidVoteType             = errors.New("invalid vote type: 1 for upvote or 0 for downvote")
	ErrInvalidRoleOpKind           = errors.New("invalid role operation: promotion, demotion or removal")
	ErrDuplicateVote               = errors.New("vote already cast for this request")
	ErrInsufficientTreasuryBalance = errors.New("treasury balance is not greater than the required amount")
	ErrMismatchedTreasuryAccount   = errors.New("treasury account does not match the proposal's treasury")
	ErrNoCouncilMemberSigned       = errors.New("no council member signed the release")
	ErrInsufficientMultisigSigners = errors.New("not enough signers for the release")

	ErrNotMember      = errors.New("not a member")
	ErrAlreadyMember  = errors.New("already a member")
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordExists   = errors.New("record already exists")
	ErrInvalidParams  = errors.New("invalid parameters")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotCouncilMember, "NotCouncilMember"},
	{ErrCountOutOfRange, "CountOutOfRange"},
	{ErrTitleTooLong, "TitleTooLong"},
	{ErrContentTooLong, "ContentTooLong"},
	{ErrProposalNotPending, "ProposalNotPending"},
	{ErrAlreadyReviewed, "AlreadyReviewed"},
	{ErrCannotResolveBeforeReview, "CannotResolveBeforeReview"},
	{ErrInvalidVoteType, "InvalidVoteType"},
	{ErrInvalidRoleOpKind, "InvalidRoleOpKind"},
	{ErrDuplicateVote, "DuplicateVote"},
	{ErrInsufficientTreasuryBalance, "InsufficientTreasuryBalance"},
	{ErrMismatchedTreasuryAccount, "MismatchedTreasuryAccount"},
	{ErrNoCouncilMemberSigned, "NoCouncilMemberSigned"},
	{ErrInsufficientMultisigSigners, "InsufficientMultisigSigners"},
	{ErrNotMember, "NotMember"},
	{ErrAlreadyMember, "AlreadyMember"},
	{ErrRecordNotFound, "RecordNotFound"},
	{ErrRecordExists, "RecordExists"},
	{ErrInvalidParams, "InvalidParams"},
}

// Code returns the stable taxonomy name of err, or "" when err is not a
// governance error.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
