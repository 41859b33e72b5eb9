package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stake-plus/council-treasury/src/council/types"
)

type memoryState struct {
	registries  map[string]types.Registry
	members     map[string]types.Member
	proposals   map[string]types.Proposal
	roleChanges map[string]types.RoleChange
	votes       map[string]types.Vote
	balances    map[string]uint64
	entries     []types.LedgerEntry
}

func newMemoryState() memoryState {
	return memoryState{
		registries:  map[string]types.Registry{},
		members:     map[string]types.Member{},
		proposals:   map[string]types.Proposal{},
		roleChanges: map[string]types.RoleChange{},
		votes:       map[string]types.Vote{},
		balances:    map[string]uint64{},
	}
}

func (s memoryState) clone() memoryState {
	out := newMemoryState()
	for k, v := range s.registries {
		out.registries[k] = v
	}
	for k, v := range s.members {
		out.members[k] = v
	}
	for k, v := range s.proposals {
		out.proposals[k] = v
	}
	for k, v := range s.roleChanges {
		out.roleChanges[k] = v
	}
	for k, v := range s.votes {
		out.votes[k] = v
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	out.entries = append([]types.LedgerEntry(nil), s.entries...)
	return out
}

// Memory is an in-process Store. Each unit of work runs on a copy of the
// state which replaces the live state only when fn succeeds.
type Memory struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

func NewMemory() *Memory {
	return &Memory{state: newMemoryState(), nowFn: func() time.Time { return time.Now().UTC() }}
}

func (m *Memory) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{state: m.state.clone(), now: m.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	snapshot := m.state.clone()
	m.mu.RUnlock()
	return fn(&memTx{state: snapshot, now: m.nowFn()})
}

type memTx struct {
	state memoryState
	now   time.Time
}

func (t *memTx) GetRegistry(addr string) (*types.Registry, error) {
	r, ok := t.state.registries[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) CreateRegistry(r *types.Registry) error {
	if _, ok := t.state.registries[r.Address]; ok {
		return ErrExists
	}
	for _, other := range t.state.registries {
		if other.ID == r.ID {
			return ErrExists
		}
	}
	r.CreatedAt, r.UpdatedAt = t.now, t.now
	t.state.registries[r.Address] = *r
	return nil
}

func (t *memTx) SaveRegistry(r *types.Registry) error {
	if _, ok := t.state.registries[r.Address]; !ok {
		return ErrNotFound
	}
	r.UpdatedAt = t.now
	t.state.registries[r.Address] = *r
	return nil
}

func (t *memTx) ListRegistries() ([]types.Registry, error) {
	out := make([]types.Registry, 0, len(t.state.registries))
	for _, r := range t.state.registries {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) GetMember(addr string) (*types.Member, error) {
	m, ok := t.state.members[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (t *memTx) CreateMember(m *types.Member) error {
	if _, ok := t.state.members[m.Address]; ok {
		return ErrExists
	}
	t.state.members[m.Address] = *m
	return nil
}

func (t *memTx) SaveMember(m *types.Member) error {
	if _, ok := t.state.members[m.Address]; !ok {
		return ErrNotFound
	}
	t.state.members[m.Address] = *m
	return nil
}

func (t *memTx) DeleteMember(addr string) error {
	if _, ok := t.state.members[addr]; !ok {
		return ErrNotFound
	}
	delete(t.state.members, addr)
	return nil
}

func (t *memTx) GetProposal(addr string) (*types.Proposal, error) {
	p, ok := t.state.proposals[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) CreateProposal(p *types.Proposal) error {
	if _, ok := t.state.proposals[p.Address]; ok {
		return ErrExists
	}
	t.state.proposals[p.Address] = *p
	return nil
}

func (t *memTx) SaveProposal(p *types.Proposal) error {
	if _, ok := t.state.proposals[p.Address]; !ok {
		return ErrNotFound
	}
	t.state.proposals[p.Address] = *p
	return nil
}

func (t *memTx) DeleteProposal(addr string) error {
	if _, ok := t.state.proposals[addr]; !ok {
		return ErrNotFound
	}
	delete(t.state.proposals, addr)
	return nil
}

func (t *memTx) ListProposals(dao string, f Filter) ([]types.Proposal, error) {
	out := []types.Proposal{}
	for _, p := range t.state.proposals {
		if p.DaoAddress != dao || (f.Status != nil && p.Status != *f.Status) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].Address < out[j].Address
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memTx) GetRoleChange(addr string) (*types.RoleChange, error) {
	r, ok := t.state.roleChanges[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) CreateRoleChange(r *types.RoleChange) error {
	if _, ok := t.state.roleChanges[r.Address]; ok {
		return ErrExists
	}
	t.state.roleChanges[r.Address] = *r
	return nil
}

func (t *memTx) SaveRoleChange(r *types.RoleChange) error {
	if _, ok := t.state.roleChanges[r.Address]; !ok {
		return ErrNotFound
	}
	t.state.roleChanges[r.Address] = *r
	return nil
}

func (t *memTx) DeleteRoleChange(addr string) error {
	if _, ok := t.state.roleChanges[addr]; !ok {
		return ErrNotFound
	}
	delete(t.state.roleChanges, addr)
	return nil
}

func (t *memTx) ListRoleChanges(dao string, f Filter) ([]types.RoleChange, error) {
	out := []types.RoleChange{}
	for _, r := range t.state.roleChanges {
		if r.DaoAddress != dao || (f.Status != nil && r.Status != *f.Status) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].Address < out[j].Address
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memTx) GetVote(addr string) (*types.Vote, error) {
	v, ok := t.state.votes[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (t *memTx) CreateVote(v *types.Vote) error {
	if _, ok := t.state.votes[v.Address]; ok {
		return ErrExists
	}
	for _, other := range t.state.votes {
		if other.Voter == v.Voter && other.Target == v.Target {
			return ErrExists
		}
	}
	t.state.votes[v.Address] = *v
	return nil
}

func (t *memTx) DeleteVotes(target string) ([]types.Vote, error) {
	var out []types.Vote
	for k, v := range t.state.votes {
		if v.Target == target {
			out = append(out, v)
			delete(t.state.votes, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (t *memTx) Balance(account string) (uint64, error) {
	return t.state.balances[account], nil
}

func (t *memTx) SetBalance(account string, balance uint64) error {
	t.state.balances[account] = balance
	return nil
}

func (t *memTx) AppendEntry(e *types.LedgerEntry) error {
	e.ID = uint64(len(t.state.entries) + 1)
	e.CreatedAt = t.now
	t.state.entries = append(t.state.entries, *e)
	return nil
}

func (t *memTx) Entries(account string, limit int) ([]types.LedgerEntry, error) {
	var out []types.LedgerEntry
	for i := len(t.state.entries) - 1; i >= 0; i-- {
		e := t.state.entries[i]
		if e.From != account && e.To != account {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
