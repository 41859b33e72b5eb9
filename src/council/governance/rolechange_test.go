package governance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

func TestParseRoleOp(t *testing.T) {
	for in, want := range map[string]types.RoleOp{
		"promotion":         types.PromoteToCouncil,
		"Demotion":          types.DemoteFromCouncil,
		"removal":           types.RemoveMember,
		"PromoteToCouncil":  types.PromoteToCouncil,
		"demoteFromCouncil": types.DemoteFromCouncil,
		" remove ":          types.RemoveMember,
	} {
		got, err := governance.ParseRoleOp(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "promo", "ban", "council"} {
		_, err := governance.ParseRoleOp(in)
		assert.ErrorIs(t, err, governance.ErrInvalidRoleOpKind, in)
	}
}

func TestInitiateRoleChange(t *testing.T) {
	f := newFixture(t)
	f.initDAO(governance.InitParams{ConsensusPct: 5000}, bob, carol)

	r, err := f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.PromoteToCouncil, bob)
	require.NoError(t, err)
	assert.Equal(t, governance.RoleChangeAddress(f.dao, types.PromoteToCouncil, bob), r.Address)
	assert.Equal(t, addr.Member(bob, f.dao), r.TargetMember)
	assert.Equal(t, types.StatusPending, r.Status)

	_, err = f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.PromoteToCouncil, bob)
	require.ErrorIs(t, err, governance.ErrRecordExists)

	// a different op on the same member gets its own request
	_, err = f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.RemoveMember, bob)
	require.NoError(t, err)

	_, err = f.eng.InitiateRoleChange(f.ctx, f.dao, bob, types.PromoteToCouncil, carol)
	require.ErrorIs(t, err, governance.ErrNotCouncilMember)

	_, err = f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.DemoteFromCouncil, carol)
	require.ErrorIs(t, err, governance.ErrNotCouncilMember)

	_, err = f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.PromoteToCouncil, outside)
	require.ErrorIs(t, err, governance.ErrNotMember)

	_, err = f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.RoleOp(9), carol)
	require.ErrorIs(t, err, governance.ErrInvalidRoleOpKind)

	list, err := f.eng.ListRoleChanges(f.ctx, f.dao, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRoleChangeConsensus(t *testing.T) {
	f := newFixture(t)
	f.initDAO(governance.InitParams{ConsensusPct: 6700}, bob, carol, dave)
	f.promote(bob)
	f.promote(carol)
	require.Equal(t, uint64(3), f.registry().CouncilCount)

	r, err := f.eng.InitiateRoleChange(f.ctx, f.dao, bob, types.PromoteToCouncil, dave)
	require.NoError(t, err)

	_, err = f.eng.VoteOnRoleChange(f.ctx, f.dao, r.Address, dave, 1)
	require.ErrorIs(t, err, governance.ErrNotCouncilMember)

	f.voteRole(r.Address, alice, 1)
	r, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, carol)
	require.NoError(t, err)
	require.Equal(t, types.StatusPending, r.Status)

	f.voteRole(r.Address, bob, 1)
	_, err = f.eng.VoteOnRoleChange(f.ctx, f.dao, r.Address, bob, 0)
	require.ErrorIs(t, err, governance.ErrDuplicateVote)

	_, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, dave)
	require.ErrorIs(t, err, governance.ErrNotCouncilMember)

	r, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, carol)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, r.Status)

	_, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, carol)
	require.ErrorIs(t, err, governance.ErrAlreadyReviewed)
	_, err = f.eng.VoteOnRoleChange(f.ctx, f.dao, r.Address, carol, 1)
	require.ErrorIs(t, err, governance.ErrProposalNotPending)

	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, dave)
	require.ErrorIs(t, err, governance.ErrNotCouncilMember)

	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, carol)
	require.NoError(t, err)

	reg := f.registry()
	assert.Equal(t, uint64(4), reg.CouncilCount)
	assert.Equal(t, uint64(4), reg.MembersCount)
	m, err := f.eng.GetMember(f.ctx, f.dao, dave)
	require.NoError(t, err)
	assert.True(t, m.IsCouncil)

	_, err = f.eng.GetRoleChange(f.ctx, f.dao, r.Address)
	require.ErrorIs(t, err, governance.ErrRecordNotFound)
}

func TestDemotion(t *testing.T) {
	f := newFixture(t)
	f.initDAO(governance.InitParams{ConsensusPct: 5000}, bob)
	f.promote(bob)

	r, err := f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.DemoteFromCouncil, bob)
	require.NoError(t, err)

	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, alice)
	require.ErrorIs(t, err, governance.ErrCannotResolveBeforeReview)

	f.voteRole(r.Address, alice, 1)
	r, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, alice)
	require.NoError(t, err)
	require.Equal(t, types.StatusApproved, r.Status)
	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, bob)
	require.NoError(t, err)

	reg := f.registry()
	assert.Equal(t, uint64(1), reg.CouncilCount)
	assert.Equal(t, uint64(2), reg.MembersCount)
	m, err := f.eng.GetMember(f.ctx, f.dao, bob)
	require.NoError(t, err)
	assert.False(t, m.IsCouncil)
}

func TestRemoval(t *testing.T) {
	f := newFixture(t)
	f.initDAO(governance.InitParams{ConsensusPct: 5000, RecordDeposit: 2}, bob, carol)

	r, err := f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.RemoveMember, carol)
	require.NoError(t, err)

	// removals are voted on by the whole membership
	f.voteRole(r.Address, bob, 1)
	r, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, bob)
	require.NoError(t, err)
	require.Equal(t, types.StatusApproved, r.Status)

	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, bob)
	require.ErrorIs(t, err, governance.ErrNotCouncilMember)

	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, alice)
	require.NoError(t, err)

	reg := f.registry()
	assert.Equal(t, uint64(2), reg.MembersCount)
	_, err = f.eng.GetMember(f.ctx, f.dao, carol)
	require.ErrorIs(t, err, governance.ErrNotMember)
	// member, request and vote deposits
	assert.Equal(t, uint64(6), f.balance())
	assert.Contains(t, f.events.kinds(), governance.EventMemberRemoved)
}

func TestRoleChangeTargetLeft(t *testing.T) {
	f := newFixture(t)
	f.initDAO(governance.InitParams{ConsensusPct: 5000}, bob)

	r, err := f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.PromoteToCouncil, bob)
	require.NoError(t, err)
	f.voteRole(r.Address, alice, 1)
	_, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, alice)
	require.NoError(t, err)
	require.NoError(t, f.eng.Exit(f.ctx, f.dao, bob))

	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, alice)
	require.NoError(t, err)
	reg := f.registry()
	assert.Equal(t, uint64(1), reg.CouncilCount)
	assert.Equal(t, uint64(1), reg.MembersCount)
}

func TestRoleChangeDismissed(t *testing.T) {
	f := newFixture(t)
	f.initDAO(governance.InitParams{ConsensusPct: 5000}, bob)

	r, err := f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.PromoteToCouncil, bob)
	require.NoError(t, err)
	f.voteRole(r.Address, alice, 0)
	r, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, alice)
	require.NoError(t, err)
	require.Equal(t, types.StatusDismissed, r.Status)

	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, alice)
	require.NoError(t, err)
	m, err := f.eng.GetMember(f.ctx, f.dao, bob)
	require.NoError(t, err)
	assert.False(t, m.IsCouncil)

	// the request can be opened again once retired
	_, err = f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.PromoteToCouncil, bob)
	require.NoError(t, err)
}
