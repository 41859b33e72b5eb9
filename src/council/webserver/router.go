package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/config"
	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/identity"
	"github.com/stake-plus/council-treasury/src/council/metrics"
)

const defaultRateLimit = 120

// Deps are the services the HTTP surface drives.
type Deps struct {
	Engine  *governance.Engine
	Auth    *identity.Authenticator
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// New builds the gin engine. ctx bounds the rate limiter's cleanup loop.
func New(ctx context.Context, cfg config.Config, d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(d.Log, d.Metrics))
	attachRoutes(ctx, r, cfg, d)
	return r
}

func attachRoutes(ctx context.Context, r *gin.Engine, cfg config.Config, d Deps) {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	rate := cfg.RateLimit
	if rate <= 0 {
		rate = defaultRateLimit
	}
	limiter := NewRateLimiter(ctx, rate, time.Minute)
	authH := NewAuth(d.Auth, d.Log)
	daoH := NewDaos(d.Engine, cfg.RecordDeposit, d.Log)
	reqH := NewRequests(d.Engine, d.Log)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/challenge", RateLimitMiddleware(limiter), authH.Challenge)
		v1.POST("/auth/verify", RateLimitMiddleware(limiter), authH.Verify)

		secured := v1.Group("", JWTMiddleware(d.Auth.Secret()), RateLimitMiddleware(limiter))
		secured.GET("/daos", daoH.List)
		secured.POST("/daos", daoH.Create)
		secured.GET("/daos/:dao", daoH.Get)
		secured.POST("/daos/:dao/fund", daoH.Fund)
		secured.GET("/daos/:dao/treasury", daoH.Treasury)

		secured.POST("/daos/:dao/members", daoH.Enroll)
		secured.DELETE("/daos/:dao/members/me", daoH.Exit)
		secured.GET("/daos/:dao/members/:addr", daoH.Member)

		secured.POST("/daos/:dao/proposals", reqH.SubmitProposal)
		secured.GET("/daos/:dao/proposals", reqH.ListProposals)
		secured.GET("/daos/:dao/proposals/:id", reqH.GetProposal)
		secured.POST("/daos/:dao/proposals/:id/votes", reqH.VoteProposal)
		secured.POST("/daos/:dao/proposals/:id/review", reqH.ReviewProposal)
		secured.POST("/daos/:dao/proposals/:id/resolve", reqH.ResolveProposal)

		secured.POST("/daos/:dao/role-changes", reqH.InitiateRoleChange)
		secured.GET("/daos/:dao/role-changes", reqH.ListRoleChanges)
		secured.GET("/daos/:dao/role-changes/:id", reqH.GetRoleChange)
		secured.POST("/daos/:dao/role-changes/:id/votes", reqH.VoteRoleChange)
		secured.POST("/daos/:dao/role-changes/:id/review", reqH.ReviewRoleChange)
		secured.POST("/daos/:dao/role-changes/:id/resolve", reqH.ResolveRoleChange)
	}
}
