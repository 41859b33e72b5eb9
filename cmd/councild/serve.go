package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/identity"
	"github.com/stake-plus/council-treasury/src/council/metrics"
	"github.com/stake-plus/council-treasury/src/council/notify"
	"github.com/stake-plus/council-treasury/src/council/sweeper"
	"github.com/stake-plus/council-treasury/src/council/webserver"
	"github.com/stake-plus/council-treasury/src/data"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, expiry sweeper and event publishers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.RequireSecret(); err != nil {
		return err
	}

	st, db, err := a.openStore()
	if err != nil {
		return err
	}
	if db != nil {
		if err := data.Migrate(db); err != nil {
			return err
		}
	}

	rdb, err := data.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	m := metrics.New()
	stream := notify.NewStream(rdb)
	eng := a.engine(st, governance.WithEventSink(governance.Sinks{m, stream}))

	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		session, err := notify.OpenDiscord(cfg.DiscordToken)
		if err != nil {
			return err
		}
		relay := notify.NewRelay(stream, notify.NewAnnouncer(session, cfg.DiscordChannelID, a.log.Named("discord")), a.log.Named("relay"))
		go func() {
			if err := relay.Run(ctx); err != nil {
				a.log.Error("discord relay stopped", zap.Error(err))
			}
		}()
	}

	nonces := identity.NewRedisNonces(rdb)
	go identity.StartRemarkWatcher(ctx, cfg.RPCURL, nonces, a.log.Named("remark"))

	sw := sweeper.New(eng, m, a.log.Named("sweeper"))
	if err := sw.Start(cfg.SweepSchedule); err != nil {
		return err
	}
	defer sw.Stop()

	auth := identity.NewAuthenticator(nonces, identity.NewSr25519(a.log), []byte(cfg.JWTSecret), cfg.JWTTTL)
	router := webserver.New(ctx, cfg, webserver.Deps{Engine: eng, Auth: auth, Metrics: m, Log: a.log.Named("http")})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			reloader, err := webserver.NewTLSReloader(ctx, cfg.TLSCert, cfg.TLSKey, a.log.Named("tls"))
			if err != nil {
				errc <- err
				return
			}
			srv.TLSConfig = reloader.Config()
			errc <- srv.ListenAndServeTLS("", "")
			return
		}
		errc <- srv.ListenAndServe()
	}()
	a.log.Info("council API listening", zap.String("port", cfg.Port), zap.String("store", cfg.Store))

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// redisFor opens the configured redis for the one-shot commands.
func (a *app) redisFor(ctx context.Context) (*redis.Client, error) {
	return data.ConnectRedis(ctx, a.cfg.RedisURL)
}
