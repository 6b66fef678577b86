// Package app wires the HTTP surface: routes, middleware, dependencies
// and the background jobs that keep the tables tidy
package app

import (
	"fmt"
	"time"

	"github.com/mayurbijarniya/nutriai/app/analysis"
	"github.com/mayurbijarniya/nutriai/app/auth"
	"github.com/mayurbijarniya/nutriai/app/barcode"
	"github.com/mayurbijarniya/nutriai/app/root"
	"github.com/mayurbijarniya/nutriai/app/search"
	"github.com/mayurbijarniya/nutriai/app/share"
	"github.com/mayurbijarniya/nutriai/db"
	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/ai"
	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/metrics"
	"github.com/mayurbijarniya/nutriai/internal/quota"
	"github.com/mayurbijarniya/nutriai/internal/service"
	"github.com/mayurbijarniya/nutriai/internal/storage"
	"github.com/mayurbijarniya/nutriai/pkg/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store persist.CacheStore

func NewRouter() (*gin.Engine, error) {
	makeLogger()
	makeCacheStore()

	d := &internal.Deps{
		AI:      ai.NewClient(),
		Google:  identity.NewGoogleProvider(),
		Barcode: service.NewBarcodeClient(store),
	}
	d.JobQueue = service.NewJobQueue(d.AI)

	database, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = database
	d.Gate = quota.NewGate(database)
	d.Sessions = identity.NewSessions(database)

	imageStore, err := storage.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image storage, %w", err)
	}
	d.Store = imageStore

	reg := metrics.NewRegistry()
	d.Metrics = metrics.NewCollector(reg)

	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors_origins"),
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("scope"); v != "" {
					fields = append(fields, zap.String("scope", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 5 << 20

	rateLimit := viper.GetInt("security.rate_limit")
	maxUploadSize := viper.GetInt64("upload.max_size")
	cacheTTL := viper.GetInt("cache.ttl_seconds")

	who := middleware.NewIdentityMiddleware(d.Sessions)
	turnstile := middleware.NewTurnstileMiddleware()
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
		CleanupInterval:   time.Second,
	})

	gateAnalyses := middleware.NewQuotaMiddleware(d.Gate, d.Metrics, quota.FeatureAnalyses)
	gateSearch := middleware.NewQuotaMiddleware(d.Gate, d.Metrics, quota.FeatureAISearch)

	o := router.Group("/auth", rateLimiter)
	{
		// GET /auth/login		-> Redirects to the Google consent screen
		o.GET("/login", func(c *gin.Context) { auth.Login(c, d) })

		// GET /auth/callback		-> Finishes the sign-in, merges guest history
		o.GET("/callback", func(c *gin.Context) { auth.Callback(c, d) })

		// POST /auth/logout		-> Destroys the session, mints a fresh guest
		o.POST("/logout", func(c *gin.Context) { auth.Logout(c, d) })
	}

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/stats		-> Service-wide counters
		m.GET("/stats", cacheFor(cacheTTL), func(c *gin.Context) { root.Stats(c, d) })

		// GET /api/barcode/:code	-> Open Food Facts product lookup
		m.GET("/barcode/:code", func(c *gin.Context) { barcode.Lookup(c, d) })
	}

	me := m.Group("", who)
	{
		// GET /api/me			-> Current identity plus today's usage
		me.GET("/me", func(c *gin.Context) { auth.Me(c, d) })

		// GET /api/usage		-> Today's used/limit pairs only
		me.GET("/usage", func(c *gin.Context) { root.Usage(c, d) })
	}

	a := m.Group("/analyses", who)
	{
		// GET /api/analyses		-> Own history, newest first
		a.GET("", func(c *gin.Context) { analysis.FetchBulk(c, d) })

		// GET /api/analyses/:id	-> One owned record
		a.GET("/:id", func(c *gin.Context) { analysis.Fetch(c, d) })

		// GET /api/analyses/:id/image	-> The stored meal photo
		a.GET("/:id/image", func(c *gin.Context) { analysis.Image(c, d) })

		// DELETE /api/analyses/:id	-> Deletes one owned record
		a.DELETE("/:id", func(c *gin.Context) { analysis.Delete(c, d) })

		// DELETE /api/analyses		-> Clears the whole own history
		a.DELETE("", func(c *gin.Context) { analysis.Clear(c, d) })
	}

	// POST /api/analyze		-> The gated AI pipeline itself
	m.POST("/analyze",
		who,
		turnstile,
		middleware.BodySizeLimiter(maxUploadSize),
		gateAnalyses,
		func(c *gin.Context) { analysis.Analyze(c, d) },
	)

	// POST /api/search		-> AI food search, members only via the gate
	m.POST("/search",
		who,
		middleware.BodySizeLimiter(1<<20),
		gateSearch,
		func(c *gin.Context) { search.Search(c, d) },
	)

	s := m.Group("/share", who, middleware.RequireUser(), middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/share		-> Creates a share link (active-count ceiling)
		s.POST("", func(c *gin.Context) { share.Create(c, d) })

		// GET /api/share		-> Lists own share links
		s.GET("", func(c *gin.Context) { share.List(c, d) })

		// DELETE /api/share/:id	-> Revokes an own share link
		s.DELETE("/:id", func(c *gin.Context) { share.Revoke(c, d) })
	}

	// GET /share/:token		-> Public resolve of a shared analysis
	router.GET("/share/:token", rateLimiter, cacheFor(cacheTTL), func(c *gin.Context) { share.Resolve(c, d) })

	if viper.GetBool("metrics.enabled") {
		router.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
	}

	d.JobQueue.StartWorkerPool()

	// Sessions expire after weeks, no point checking more often
	service.SessionCleanup(time.Hour*24, database)

	// Share links run out mid-day, sweep hourly so the active counts
	// the ceiling relies on don't drift for long
	service.ShareLinkCleanup(time.Hour, database)

	service.StartUsagePurge(database)

	return router, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func makeCacheStore() {
	if addr := viper.GetString("cache.redis_addr"); addr != "" {
		store = persist.NewRedisStore(redis.NewClient(&redis.Options{
			Addr: addr,
		}))

		zap.L().Info("Using redis response cache", zap.String("addr", addr))
		return
	}

	store = persist.NewMemoryStore(time.Minute)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
