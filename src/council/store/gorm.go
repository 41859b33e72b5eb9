package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/council-treasury/src/council/types"
)

// Gorm stores records in MySQL. Open the *gorm.DB with TranslateError so
// unique key violations surface as gorm.ErrDuplicatedKey.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

func (g *Gorm) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	return g.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(gormTx{db: db, lock: true})
	})
}

func (g *Gorm) View(ctx context.Context, fn func(tx Tx) error) error {
	return fn(gormTx{db: g.db.WithContext(ctx)})
}

type gormTx struct {
	db   *gorm.DB
	lock bool
}

// forUpdate takes row locks inside write transactions so concurrent units
// of work touching the same record serialize on it.
func (t gormTx) forUpdate() *gorm.DB {
	if t.lock {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrExists
	}
	return err
}

func first[T any](t gormTx, addr string) (*T, error) {
	var out T
	if err := t.forUpdate().First(&out, "address = ?", addr).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func create(t gormTx, v interface{}) error {
	return translate(t.db.Create(v).Error)
}

// save updates an existing row and reports ErrNotFound when none matched.
func save(t gormTx, model interface{}, addr string, v interface{}) error {
	res := t.db.Model(model).Where("address = ?", addr).Select("*").Updates(v)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := t.db.Model(model).Where("address = ?", addr).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func remove(t gormTx, model interface{}, addr string) error {
	res := t.db.Where("address = ?", addr).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t gormTx) GetRegistry(addr string) (*types.Registry, error) {
	return first[types.Registry](t, addr)
}

func (t gormTx) CreateRegistry(r *types.Registry) error { return create(t, r) }

func (t gormTx) SaveRegistry(r *types.Registry) error {
	return save(t, &types.Registry{}, r.Address, r)
}

func (t gormTx) ListRegistries() ([]types.Registry, error) {
	var out []types.Registry
	err := t.db.Order("id").Find(&out).Error
	return out, err
}

func (t gormTx) GetMember(addr string) (*types.Member, error) {
	return first[types.Member](t, addr)
}

func (t gormTx) CreateMember(m *types.Member) error { return create(t, m) }

func (t gormTx) SaveMember(m *types.Member) error {
	return save(t, &types.Member{}, m.Address, m)
}

func (t gormTx) DeleteMember(addr string) error { return remove(t, &types.Member{}, addr) }

func (t gormTx) GetProposal(addr string) (*types.Proposal, error) {
	return first[types.Proposal](t, addr)
}

func (t gormTx) CreateProposal(p *types.Proposal) error { return create(t, p) }

func (t gormTx) SaveProposal(p *types.Proposal) error {
	return save(t, &types.Proposal{}, p.Address, p)
}

func (t gormTx) DeleteProposal(addr string) error { return remove(t, &types.Proposal{}, addr) }

func (t gormTx) ListProposals(dao string, f Filter) ([]types.Proposal, error) {
	var out []types.Proposal
	q := t.db.Where("dao_address = ?", dao)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Order("created_at, address").Find(&out).Error
	return out, err
}

func (t gormTx) GetRoleChange(addr string) (*types.RoleChange, error) {
	return first[types.RoleChange](t, addr)
}

func (t gormTx) CreateRoleChange(r *types.RoleChange) error { return create(t, r) }

func (t gormTx) SaveRoleChange(r *types.RoleChange) error {
	return save(t, &types.RoleChange{}, r.Address, r)
}

func (t gormTx) DeleteRoleChange(addr string) error {
	return remove(t, &types.RoleChange{}, addr)
}

func (t gormTx) ListRoleChanges(dao string, f Filter) ([]types.RoleChange, error) {
	var out []types.RoleChange
	q := t.db.Where("dao_address = ?", dao)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Order("created_at, address").Find(&out).Error
	return out, err
}

func (t gormTx) GetVote(addr string) (*types.Vote, error) {
	var v types.Vote
	if err := t.db.First(&v, "address = ?", addr).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// CreateVote relies on the primary key and idx_vote_pair; a concurrent
// duplicate loses on the unique constraint.
func (t gormTx) CreateVote(v *types.Vote) error { return create(t, v) }

func (t gormTx) DeleteVotes(target string) ([]types.Vote, error) {
	var out []types.Vote
	if err := t.forUpdate().Where("target = ?", target).Order("address").Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	if err := t.db.Where("target = ?", target).Delete(&types.Vote{}).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t gormTx) Balance(account string) (uint64, error) {
	var a types.Account
	err := t.forUpdate().First(&a, "address = ?", account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return a.Balance, err
}

func (t gormTx) SetBalance(account string, balance uint64) error {
	return t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(&types.Account{Address: account, Balance: balance}).Error
}

func (t gormTx) AppendEntry(e *types.LedgerEntry) error {
	return t.db.Create(e).Error
}

func (t gormTx) Entries(account string, limit int) ([]types.LedgerEntry, error) {
	var out []types.LedgerEntry
	q := t.db.Where("`from` = ? OR `to` = ?", account, account).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
