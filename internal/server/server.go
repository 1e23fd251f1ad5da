package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/mietwerk/mietwerk/internal/audit"
	auditdomain "github.com/mietwerk/mietwerk/internal/audit/domain"
	"github.com/mietwerk/mietwerk/internal/auth"
	authdomain "github.com/mietwerk/mietwerk/internal/auth/domain"
	"github.com/mietwerk/mietwerk/internal/auth/session"
	"github.com/mietwerk/mietwerk/internal/building"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	"github.com/mietwerk/mietwerk/internal/clock"
	"github.com/mietwerk/mietwerk/internal/config"
	"github.com/mietwerk/mietwerk/internal/flat"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	"github.com/mietwerk/mietwerk/internal/invoice"
	invoicedomain "github.com/mietwerk/mietwerk/internal/invoice/domain"
	"github.com/mietwerk/mietwerk/internal/meter"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	"github.com/mietwerk/mietwerk/internal/observability"
	obsmiddleware "github.com/mietwerk/mietwerk/internal/observability/logger"
	obsmetrics "github.com/mietwerk/mietwerk/internal/observability/metrics"
	obstracing "github.com/mietwerk/mietwerk/internal/observability/tracing"
	"github.com/mietwerk/mietwerk/internal/person"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/mietwerk/mietwerk/internal/providers/pdf"
	"github.com/mietwerk/mietwerk/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	clock.Module,
	audit.Module,
	auth.Module,
	session.Module,
	person.Module,
	building.Module,
	flat.Module,
	meter.Module,
	pdf.Module,
	invoice.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
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

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	sessions       *session.Manager
	authsvc        authdomain.Service
	personSvc      persondomain.Service
	buildingSvc    buildingdomain.Service
	flatSvc        flatdomain.Service
	meterSvc       meterdomain.Service
	invoiceSvc     invoicedomain.Service
	auditSvc       auditdomain.Service
	readingLimiter *ratelimit.ReadingLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	Sessions       *session.Manager
	Authsvc        authdomain.Service
	PersonSvc      persondomain.Service
	BuildingSvc    buildingdomain.Service
	FlatSvc        flatdomain.Service
	MeterSvc       meterdomain.Service
	InvoiceSvc     invoicedomain.Service
	AuditSvc       auditdomain.Service
	ReadingLimiter *ratelimit.ReadingLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		sessions:       p.Sessions,
		authsvc:        p.Authsvc,
		personSvc:      p.PersonSvc,
		buildingSvc:    p.BuildingSvc,
		flatSvc:        p.FlatSvc,
		meterSvc:       p.MeterSvc,
		invoiceSvc:     p.InvoiceSvc,
		auditSvc:       p.AuditSvc,
		readingLimiter: p.ReadingLimiter,
		obsMetrics:     p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAuthRoutes() {
	group := s.engine.Group("/api/auth")
	group.POST("/register", s.Register)
	group.POST("/login", s.Login)
	group.POST("/logout", s.Logout)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/me", s.Me)
	api.PATCH("/me", s.UpdateMe)
	api.POST("/me/password", s.ChangePassword)
	api.DELETE("/me", s.DeleteMe)
	api.GET("/me/audit", s.MyAuditLog)

	api.POST("/buildings", s.CreateBuilding)
	api.GET("/buildings", s.ListBuildings)
	api.GET("/buildings/:id", s.GetBuilding)
	api.PATCH("/buildings/:id", s.ModifyBuilding)
	api.DELETE("/buildings/:id", s.DeleteBuilding)
	api.PUT("/buildings/:id/flats/:flatId/tenant", s.AssignTenant)

	api.GET("/flats", s.ListMyFlats)
	api.GET("/flats/:id/landlord", s.FlatLandlord)

	api.POST("/meters/:id/readings", s.SubmitReading)
	api.GET("/meters/:id/readings", s.ReadingHistory)

	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoicesForLandlord)
	api.GET("/invoices/tenant", s.ListInvoicesForTenant)
	api.GET("/invoices/:id", s.GetInvoice)
	api.POST("/invoices/:id/paid", s.ToggleInvoicePaid)
}

func parseID(c *gin.Context, param string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(param))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return id, true
}
