// Package server wires the HTTP surface: route registration, auth,
// error mapping and the gin engine lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/akadahq/akada/internal/audit"
	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	"github.com/akadahq/akada/internal/billing"
	billingdomain "github.com/akadahq/akada/internal/billing/domain"
	"github.com/akadahq/akada/internal/config"
	"github.com/akadahq/akada/internal/deletion"
	deletiondomain "github.com/akadahq/akada/internal/deletion/domain"
	"github.com/akadahq/akada/internal/enrollment"
	enrollmentdomain "github.com/akadahq/akada/internal/enrollment/domain"
	"github.com/akadahq/akada/internal/identity"
	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	obslogger "github.com/akadahq/akada/internal/observability/logger"
	obsmetrics "github.com/akadahq/akada/internal/observability/metrics"
	"github.com/akadahq/akada/internal/ratelimit"
	"github.com/akadahq/akada/internal/tenant"
	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	"github.com/akadahq/akada/internal/usage"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	identity.Module,
	tenant.Module,
	usage.Module,
	enrollment.Module,
	deletion.Module,
	billing.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	tenantSvc     tenantdomain.Service
	deletionSvc   deletiondomain.Engine
	enrollmentSvc enrollmentdomain.Service
	billingSvc    billingdomain.Service
	auditSvc      auditdomain.Service
	identitySvc   identitydomain.Service
	identityRepo  identitydomain.Repository
	limiter       *ratelimit.TokenBucket
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	TenantSvc     tenantdomain.Service
	DeletionSvc   deletiondomain.Engine
	EnrollmentSvc enrollmentdomain.Service
	BillingSvc    billingdomain.Service
	AuditSvc      auditdomain.Service
	IdentitySvc   identitydomain.Service
	IdentityRepo  identitydomain.Repository
	Limiter       *ratelimit.TokenBucket `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		tenantSvc:     p.TenantSvc,
		deletionSvc:   p.DeletionSvc,
		enrollmentSvc: p.EnrollmentSvc,
		billingSvc:    p.BillingSvc,
		auditSvc:      p.AuditSvc,
		identitySvc:   p.IdentitySvc,
		identityRepo:  p.IdentityRepo,
		limiter:       p.Limiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(s.RateLimit())
	v1.Use(s.Authenticate())

	tenants := v1.Group("/tenants")
	{
		tenants.POST("", s.RequireRole(), s.CreateTenant)
		tenants.GET("/:id", s.RequireRole(identitydomain.RoleTenantAdmin, identitydomain.RoleStaff), s.GetTenant)
		tenants.DELETE("/:id", s.RequireRole(), s.DeleteTenant)
	}

	students := v1.Group("/students")
	students.Use(s.RequireRole(identitydomain.RoleTenantAdmin))
	{
		students.POST("", s.CreateStudent)
		students.DELETE("/:id", s.DeleteStudent)
		students.POST("/:id/transfer", s.TransferStudent)
	}

	billingGroup := v1.Group("/billing")
	billingGroup.Use(s.RequireRole(identitydomain.RoleTenantAdmin))
	{
		billingGroup.POST("/initiate", s.InitiatePayment)
		billingGroup.POST("/verify", s.VerifyPayment)
	}

	v1.POST("/accounts", s.RequireRole(identitydomain.RoleTenantAdmin), s.CreateAccount)

	v1.GET("/audit-events", s.RequireRole(), s.ListAuditEvents)
}

// registerWebhookRoutes skips bearer auth; the webhook authenticates
// by HMAC signature over the raw body instead.
func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/v1/billing/webhook", s.ReceiveGatewayWebhook)
}
