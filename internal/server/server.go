package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
	"github.com/smallbiznis/messledger/internal/config"
	ledgerdomain "github.com/smallbiznis/messledger/internal/ledger/domain"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/observability"
	obslogger "github.com/smallbiznis/messledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/messledger/internal/observability/tracing"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	summarydomain "github.com/smallbiznis/messledger/internal/summary/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the HTTP API. The domain modules it depends on are composed by
// the entrypoint so the scheduler can share them in a single process.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	messSvc         messdomain.Service
	subscriptionSvc subscriptiondomain.Service
	mealSvc         mealdomain.Service
	ledgerSvc       ledgerdomain.Service
	summarySvc      summarydomain.Service
	archiveSvc      archivedomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	MessSvc         messdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	MealSvc         mealdomain.Service
	LedgerSvc       ledgerdomain.Service
	SummarySvc      summarydomain.Service
	ArchiveSvc      archivedomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		messSvc:         p.MessSvc,
		subscriptionSvc: p.SubscriptionSvc,
		mealSvc:         p.MealSvc,
		ledgerSvc:       p.LedgerSvc,
		summarySvc:      p.SummarySvc,
		archiveSvc:      p.ArchiveSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")

	// -------- Messes --------
	api.POST("/messes", s.CreateMess)

	mess := api.Group("/messes/:id", MessIDRequired())
	mess.GET("", s.GetMess)
	mess.PATCH("/status", s.SetMessStatus)

	// -------- Members --------
	mess.POST("/members", s.AddMember)
	mess.GET("/members", s.ListMembers)
	mess.POST("/members/:member_id/deactivate", s.DeactivateMember)
	mess.GET("/members/:member_id/balance", s.GetMemberBalance)

	// -------- Subscriptions --------
	mess.POST("/subscriptions", s.ApproveSubscription)
	mess.GET("/subscriptions", s.ListSubscriptions)
	mess.GET("/subscription", s.GetCurrentSubscription)
	mess.POST("/subscriptions/:subscription_id/cancel", s.CancelSubscription)
	mess.GET("/window", s.GetWindow)

	// -------- Meals --------
	mess.POST("/meals/adjust", s.AdjustMeal)
	mess.GET("/meals", s.ListMeals)

	// -------- Ledger --------
	mess.POST("/bazar", s.RecordBazar)
	mess.GET("/bazar", s.ListBazar)
	mess.POST("/deposits", s.RecordDeposit)
	mess.GET("/deposits", s.ListDeposits)
	mess.POST("/additional-costs", s.RecordAdditionalCost)
	mess.GET("/additional-costs", s.ListAdditionalCosts)

	// -------- Summary --------
	mess.GET("/summary", s.GetSummary)

	// -------- Archives --------
	mess.POST("/archives", s.CreateArchive)
	mess.GET("/archives", s.ListArchives)
	mess.GET("/archives/:month", s.GetArchive)
	mess.GET("/archives/:month/verify", s.VerifyArchive)

	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
