package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/config"
	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/identity"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/data"
	"github.com/stake-plus/council-treasury/src/logging"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags and env are read.
type app struct {
	cfg config.Config
	log *zap.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "councild",
		Short:         "Council treasury governance service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogDev)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.AddCommand(
		serveCmd(a),
		migrateCmd(a),
		initDaoCmd(a),
		sweepCmd(a),
		reconcileCmd(a),
		eventsCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run:   func(cmd *cobra.Command, _ []string) { fmt.Fprintln(cmd.OutOrStdout(), "councild", version) },
		},
	)
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openStore selects the record store named by the configuration.
func (a *app) openStore() (store.Store, *gorm.DB, error) {
	if a.cfg.Store == "memory" {
		a.log.Warn("using in-memory store; state is lost on exit")
		return store.NewMemory(), nil, nil
	}
	db, err := data.ConnectMySQL(a.cfg.MySQLDSN, a.log)
	if err != nil {
		return nil, nil, err
	}
	return store.NewGorm(db), db, nil
}

func (a *app) engine(st store.Store, opts ...governance.Option) *governance.Engine {
	opts = append([]governance.Option{governance.WithLogger(a.log)}, opts...)
	return governance.NewEngine(st, identity.NewSr25519(a.log), opts...)
}

// daoArg accepts a registry address or its numeric id.
func daoArg(s string) string {
	if id, err := strconv.ParseUint(s, 10, 64); err == nil {
		return addr.Registry(id)
	}
	return s
}
