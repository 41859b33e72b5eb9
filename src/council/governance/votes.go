package governance

import (
	"errors"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

// ParseVote maps the wire value to a vote type: 1 up, 0 down.
func ParseVote(v uint8) (types.VoteType, error) {
	switch v {
	case 0:
		return types.Downvote, nil
	case 1:
		return types.Upvote, nil
	}
	return 0, ErrInvalidVoteType
}

// castVote records voter's vote on target. The vote address is derived
// from the pair, so a second vote collides and fails without touching
// anything else.
func castVote(tx store.Tx, voter *types.Member, target string, vt types.VoteType, deposit uint64) (*types.Vote, error) {
	v := &types.Vote{
		Address:  addr.Vote(voter.Address, target),
		Voter:    voter.Address,
		Target:   target,
		VoteType: vt,
		Deposit:  deposit,
	}
	if err := tx.CreateVote(v); err != nil {
		if errors.Is(err, store.ErrExists) {
			return nil, ErrDuplicateVote
		}
		return nil, err
	}
	return v, nil
}

// tally bumps the counter matching vt.
func tally(up, down *uint64, vt types.VoteType) error {
	if vt == types.Upvote {
		return incr(up)
	}
	return incr(down)
}
