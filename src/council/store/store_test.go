package store_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

func TestMemoryStore(t *testing.T) {
	runContract(t, func(t *testing.T) store.Store { return store.NewMemory() })
}

// TestGormStore runs the same contract against MySQL when
// COUNCIL_TEST_MYSQL_DSN points at a scratch database.
func TestGormStore(t *testing.T) {
	dsn := os.Getenv("COUNCIL_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("COUNCIL_TEST_MYSQL_DSN not set")
	}
	runContract(t, func(t *testing.T) store.Store {
		db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err)
		require.NoError(t, db.Migrator().DropTable(types.AllModels...))
		require.NoError(t, db.AutoMigrate(types.AllModels...))
		return store.NewGorm(db)
	})
}

var errAbort = errors.New("abort")

func runContract(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("create_get_save_delete", func(t *testing.T) {
		st := open(t)
		reg := &types.Registry{Address: "0xdao", ID: 1, Creator: "c", Treasury: "0xtreasury", MinMultisigSigners: 1, RequestLifetime: 10}
		require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error { return tx.CreateRegistry(reg) }))

		err := st.Atomic(ctx, func(tx store.Tx) error {
			return tx.CreateRegistry(&types.Registry{Address: "0xdao", ID: 2, Treasury: "0xother"})
		})
		require.ErrorIs(t, err, store.ErrExists)

		require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
			r, err := tx.GetRegistry("0xdao")
			if err != nil {
				return err
			}
			r.MembersCount = 5
			return tx.SaveRegistry(r)
		}))
		require.NoError(t, st.View(ctx, func(tx store.Tx) error {
			r, err := tx.GetRegistry("0xdao")
			require.NoError(t, err)
			assert.Equal(t, uint64(5), r.MembersCount)
			_, err = tx.GetRegistry("0xnone")
			assert.ErrorIs(t, err, store.ErrNotFound)
			return nil
		}))

		m := &types.Member{Address: "0xm1", DaoAddress: "0xdao", Owner: "o", JoinedAt: 1}
		require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error { return tx.CreateMember(m) }))
		require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error { return tx.DeleteMember("0xm1") }))
		err = st.Atomic(ctx, func(tx store.Tx) error { return tx.DeleteMember("0xm1") })
		require.ErrorIs(t, err, store.ErrNotFound)
		err = st.Atomic(ctx, func(tx store.Tx) error { return tx.SaveMember(m) })
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("rollback", func(t *testing.T) {
		st := open(t)
		err := st.Atomic(ctx, func(tx store.Tx) error {
			if err := tx.SetBalance("0xacct", 100); err != nil {
				return err
			}
			if err := tx.CreateMember(&types.Member{Address: "0xm2", DaoAddress: "0xdao", Owner: "o"}); err != nil {
				return err
			}
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		require.NoError(t, st.View(ctx, func(tx store.Tx) error {
			bal, err := tx.Balance("0xacct")
			require.NoError(t, err)
			assert.Zero(t, bal)
			_, err = tx.GetMember("0xm2")
			assert.ErrorIs(t, err, store.ErrNotFound)
			return nil
		}))
	})

	t.Run("votes", func(t *testing.T) {
		st := open(t)
		require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
			for _, v := range []*types.Vote{
				{Address: "0xv1", Voter: "0xa", Target: "0xp", VoteType: types.Upvote, Deposit: 1},
				{Address: "0xv2", Voter: "0xb", Target: "0xp", VoteType: types.Downvote, Deposit: 2},
				{Address: "0xv3", Voter: "0xa", Target: "0xq", VoteType: types.Upvote},
			} {
				if err := tx.CreateVote(v); err != nil {
					return err
				}
			}
			return nil
		}))

		err := st.Atomic(ctx, func(tx store.Tx) error {
			return tx.CreateVote(&types.Vote{Address: "0xv4", Voter: "0xa", Target: "0xp"})
		})
		require.ErrorIs(t, err, store.ErrExists)

		var removed []types.Vote
		require.NoError(t, st.Atomic(ctx, func(tx store.Tx) (err error) {
			removed, err = tx.DeleteVotes("0xp")
			return err
		}))
		require.Len(t, removed, 2)
		assert.Equal(t, "0xv1", removed[0].Address)

		require.NoError(t, st.View(ctx, func(tx store.Tx) error {
			_, err := tx.GetVote("0xv1")
			assert.ErrorIs(t, err, store.ErrNotFound)
			_, err = tx.GetVote("0xv3")
			assert.NoError(t, err)
			return nil
		}))
	})

	t.Run("listing", func(t *testing.T) {
		st := open(t)
		pending, approved := types.StatusPending, types.StatusApproved
		require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
			for _, p := range []*types.Proposal{
				{Address: "0xp2", DaoAddress: "0xdao", Title: "b", CreatedAt: 20, Status: pending},
				{Address: "0xp1", DaoAddress: "0xdao", Title: "a", CreatedAt: 10, Status: approved},
				{Address: "0xp3", DaoAddress: "0xdao", Title: "c", CreatedAt: 30, Status: pending},
				{Address: "0xp9", DaoAddress: "0xelse", Title: "z", CreatedAt: 1},
			} {
				if err := tx.CreateProposal(p); err != nil {
					return err
				}
			}
			return nil
		}))
		require.NoError(t, st.View(ctx, func(tx store.Tx) error {
			all, err := tx.ListProposals("0xdao", store.Filter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].Title, all[1].Title, all[2].Title})

			open, err := tx.ListProposals("0xdao", store.Filter{Status: &pending, Limit: 1})
			require.NoError(t, err)
			require.Len(t, open, 1)
			assert.Equal(t, "b", open[0].Title)
			return nil
		}))
	})

	t.Run("concurrent_votes", func(t *testing.T) {
		const (
			owner  = "0xa11ce0000000000000000000000000000000000000000000000000000000000a"
			member = "0xb0b000000000000000000000000000000000000000000000000000000000000b"
			payee  = "0xfee0000000000000000000000000000000000000000000000000000000000001"
		)
		eng := governance.NewEngine(open(t), nil)
		reg, err := eng.Initialize(ctx, owner, governance.InitParams{
			ID: 1, VotePct: 5000, ConsensusPct: 5000, MinMultisigSigners: 1, RequestLifetime: 3600,
		})
		require.NoError(t, err)
		_, err = eng.Enroll(ctx, reg.Address, member)
		require.NoError(t, err)
		p, err := eng.SubmitProposal(ctx, reg.Address, member, governance.ProposalInput{
			Title: "race", Content: "c", TargetTreasury: payee, AmountRequired: 1,
		})
		require.NoError(t, err)
		rc, err := eng.InitiateRoleChange(ctx, reg.Address, owner, types.PromoteToCouncil, member)
		require.NoError(t, err)

		fanOut := func(cast func() error) int {
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				ok   int
				errs []error
			)
			start := make(chan struct{})
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					err := cast()
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, err)
						return
					}
					ok++
				}()
			}
			close(start)
			wg.Wait()
			for _, err := range errs {
				require.ErrorIs(t, err, governance.ErrDuplicateVote)
			}
			return ok
		}

		assert.Equal(t, 1, fanOut(func() error {
			_, err := eng.VoteOnProposal(ctx, reg.Address, p.Address, member, 1)
			return err
		}))
		assert.Equal(t, 1, fanOut(func() error {
			_, err := eng.VoteOnRoleChange(ctx, reg.Address, rc.Address, owner, 0)
			return err
		}))

		gotP, err := eng.GetProposal(ctx, reg.Address, p.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), gotP.Upvotes)
		gotR, err := eng.GetRoleChange(ctx, reg.Address, rc.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), gotR.Downvotes)
	})

	t.Run("journal", func(t *testing.T) {
		st := open(t)
		require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
			for i, amt := range []uint64{5, 7, 9} {
				to := "0xt"
				if i == 1 {
					to = "0xu"
				}
				if err := tx.AppendEntry(&types.LedgerEntry{From: "0xf", To: to, Amount: amt, Reason: "fund"}); err != nil {
					return err
				}
			}
			if err := tx.SetBalance("0xt", 14); err != nil {
				return err
			}
			return tx.SetBalance("0xt", 15)
		}))
		require.NoError(t, st.View(ctx, func(tx store.Tx) error {
			es, err := tx.Entries("0xt", 0)
			require.NoError(t, err)
			require.Len(t, es, 2)
			assert.Equal(t, uint64(9), es[0].Amount)

			es, err = tx.Entries("0xf", 2)
			require.NoError(t, err)
			assert.Len(t, es, 2)

			bal, err := tx.Balance("0xt")
			require.NoError(t, err)
			assert.Equal(t, uint64(15), bal)
			return nil
		}))
	})
}
