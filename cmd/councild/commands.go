package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/chain"
	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/identity"
	"github.com/stake-plus/council-treasury/src/council/notify"
	"github.com/stake-plus/council-treasury/src/data"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the MySQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := data.ConnectMySQL(a.cfg.MySQLDSN, a.log)
			if err != nil {
				return err
			}
			if err := data.Migrate(db); err != nil {
				return err
			}
			a.log.Info("schema migrated")
			return nil
		},
	}
}

func initDaoCmd(a *app) *cobra.Command {
	var (
		creator string
		p       governance.InitParams
	)
	cmd := &cobra.Command{
		Use:   "init-dao",
		Short: "Create a DAO registry with its creator as first council member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			principal, err := identity.Canonical(creator)
			if err != nil {
				return err
			}
			st, _, err := a.openStore()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("deposit") {
				p.RecordDeposit = a.cfg.RecordDeposit
			}
			reg, err := a.engine(st).Initialize(cmd.Context(), principal, p)
			if err != nil {
				return err
			}
			return printJSON(cmd, reg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&creator, "creator", "", "creator address (SS58 or 0x-hex)")
	f.Uint64Var(&p.ID, "id", 0, "numeric DAO id")
	f.Uint16Var(&p.VotePct, "vote-pct", 5000, "proposal vote threshold in basis points")
	f.Uint16Var(&p.ConsensusPct, "consensus-pct", 5000, "role change threshold in basis points")
	f.Uint8Var(&p.MinMultisigSigners, "min-signers", 1, "minimum signers for a treasury release")
	f.Int64Var(&p.RequestLifetime, "lifetime", governance.DefaultRequestLifetime, "request lifetime in seconds")
	f.Uint64Var(&p.RecordDeposit, "deposit", 0, "storage deposit per record")
	_ = cmd.MarkFlagRequired("creator")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func sweepCmd(a *app) *cobra.Command {
	var dao string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire every request whose lifetime has elapsed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := a.openStore()
			if err != nil {
				return err
			}
			eng := a.engine(st)
			var n int
			if dao != "" {
				n, err = eng.ExpireStale(cmd.Context(), daoArg(dao))
			} else {
				n, err = eng.ExpireAll(cmd.Context())
			}
			a.log.Info("sweep finished", zap.Int("expired", n))
			return err
		},
	}
	cmd.Flags().StringVar(&dao, "dao", "", "limit the sweep to one DAO (address or id)")
	return cmd
}

func reconcileCmd(a *app) *cobra.Command {
	var dao, account string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare a treasury journal with its on-chain custody account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := a.openStore()
			if err != nil {
				return err
			}
			client, err := chain.Dial(a.cfg.RPCURL)
			if err != nil {
				return err
			}
			report, err := chain.Reconcile(cmd.Context(), a.engine(st), client, daoArg(dao), account)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if !report.Balanced() {
				return errors.New("treasury journal and chain disagree")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dao, "dao", "", "DAO address or id")
	cmd.Flags().StringVar(&account, "account", "", "on-chain custody account (SS58 or 0x-hex)")
	_ = cmd.MarkFlagRequired("dao")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func eventsCmd(a *app) *cobra.Command {
	var (
		from   string
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print committed governance events from the redis stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			rdb, err := a.redisFor(ctx)
			if err != nil {
				return err
			}
			defer rdb.Close()

			stream := notify.NewStream(rdb)
			last := from
			for {
				// a negative block returns at once when nothing is queued
				block := time.Duration(-1)
				if follow {
					block = 5 * time.Second
				}
				evs, next, err := stream.Tail(ctx, last, 100, block)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				last = next
				for _, ev := range evs {
					if err := printJSON(cmd, ev); err != nil {
						return err
					}
				}
				if !follow && len(evs) == 0 {
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVar(&from, "from", "0", `stream id to read after ("0" for the start, "$" for new only)`)
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep waiting for new events")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
