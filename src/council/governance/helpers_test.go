package governance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

const (
	alice   = "0xa11ce0000000000000000000000000000000000000000000000000000000000a"
	bob     = "0xb0b0000000000000000000000000000000000000000000000000000000000000b"
	carol   = "0xca201000000000000000000000000000000000000000000000000000000000c0"
	dave    = "0xda7e000000000000000000000000000000000000000000000000000000000000"
	erin    = "0xe2100000000000000000000000000000000000000000000000000000000000e0"
	payee   = "0xfee0000000000000000000000000000000000000000000000000000000000001"
	outside = "0x0000000000000000000000000000000000000000000000000000000000000bad"
)

// stubVerifier accepts "ok:<principal>" as a valid signature from
// principal over any message.
type stubVerifier struct{}

func (stubVerifier) Verify(principal, signature string, _ []byte) error {
	if signature != sign(principal) {
		return errors.New("bad signature")
	}
	return nil
}

func sign(principal string) string { return "ok:" + principal }

type recorder struct {
	mu     sync.Mutex
	events []governance.Event
}

func (r *recorder) Publish(_ context.Context, ev governance.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	eng    *governance.Engine
	store  *store.Memory
	events *recorder
	now    time.Time
	dao    string
}

func newFixture(t *testing.T, opts ...governance.Option) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  store.NewMemory(),
		events: &recorder{},
		now:    time.Unix(1_700_000_000, 0),
	}
	opts = append([]governance.Option{
		governance.WithClock(func() time.Time { return f.now }),
		governance.WithEventSink(f.events),
	}, opts...)
	f.eng = governance.NewEngine(f.store, stubVerifier{}, opts...)
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// initDAO creates a DAO owned by alice and enrolls the extra members.
func (f *fixture) initDAO(p governance.InitParams, members ...string) *types.Registry {
	f.t.Helper()
	if p.ID == 0 {
		p.ID = 1
	}
	if p.MinMultisigSigners == 0 {
		p.MinMultisigSigners = 1
	}
	if p.RequestLifetime == 0 {
		p.RequestLifetime = governance.DefaultRequestLifetime
	}
	reg, err := f.eng.Initialize(f.ctx, alice, p)
	require.NoError(f.t, err)
	f.dao = reg.Address
	for _, m := range members {
		_, err := f.eng.Enroll(f.ctx, f.dao, m)
		require.NoError(f.t, err)
	}
	return reg
}

func (f *fixture) registry() *types.Registry {
	f.t.Helper()
	reg, err := f.eng.GetRegistry(f.ctx, f.dao)
	require.NoError(f.t, err)
	return reg
}

func (f *fixture) fund(amount uint64) {
	f.t.Helper()
	require.NoError(f.t, f.eng.FundTreasury(f.ctx, f.dao, outside, amount))
}

func (f *fixture) balance() uint64 {
	f.t.Helper()
	b, err := f.eng.TreasuryBalance(f.ctx, f.dao)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) accountBalance(account string) uint64 {
	f.t.Helper()
	var out uint64
	require.NoError(f.t, f.store.View(f.ctx, func(tx store.Tx) (err error) {
		out, err = tx.Balance(account)
		return err
	}))
	return out
}

func (f *fixture) submit(author, title string, amount uint64) *types.Proposal {
	f.t.Helper()
	p, err := f.eng.SubmitProposal(f.ctx, f.dao, author, governance.ProposalInput{
		Title:          title,
		Content:        "fund " + title,
		TargetTreasury: payee,
		AmountRequired: amount,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) vote(id, voter string, v uint8) {
	f.t.Helper()
	_, err := f.eng.VoteOnProposal(f.ctx, f.dao, id, voter, v)
	require.NoError(f.t, err)
}

func (f *fixture) voteRole(id, voter string, v uint8) {
	f.t.Helper()
	_, err := f.eng.VoteOnRoleChange(f.ctx, f.dao, id, voter, v)
	require.NoError(f.t, err)
}

// promote runs a promotion of target to completion with alice as the
// only council voter.
func (f *fixture) promote(target string) {
	f.t.Helper()
	r, err := f.eng.InitiateRoleChange(f.ctx, f.dao, alice, types.PromoteToCouncil, target)
	require.NoError(f.t, err)
	f.voteRole(r.Address, alice, 1)
	_, err = f.eng.ReviewRoleChange(f.ctx, f.dao, r.Address, alice)
	require.NoError(f.t, err)
	_, err = f.eng.ResolveRoleChange(f.ctx, f.dao, r.Address, alice)
	require.NoError(f.t, err)
}
