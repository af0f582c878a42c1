package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/nutrikit/nutrikit/internal/audit"
	auditdomain "github.com/nutrikit/nutrikit/internal/audit/domain"
	"github.com/nutrikit/nutrikit/internal/auth"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	"github.com/nutrikit/nutrikit/internal/authorization"
	"github.com/nutrikit/nutrikit/internal/client"
	clientdomain "github.com/nutrikit/nutrikit/internal/client/domain"
	"github.com/nutrikit/nutrikit/internal/config"
	"github.com/nutrikit/nutrikit/internal/engagement"
	engagementdomain "github.com/nutrikit/nutrikit/internal/engagement/domain"
	"github.com/nutrikit/nutrikit/internal/invite"
	invitedomain "github.com/nutrikit/nutrikit/internal/invite/domain"
	"github.com/nutrikit/nutrikit/internal/invoice"
	invoicedomain "github.com/nutrikit/nutrikit/internal/invoice/domain"
	"github.com/nutrikit/nutrikit/internal/observability"
	obsmiddleware "github.com/nutrikit/nutrikit/internal/observability/logger"
	obsmetrics "github.com/nutrikit/nutrikit/internal/observability/metrics"
	obstracing "github.com/nutrikit/nutrikit/internal/observability/tracing"
	"github.com/nutrikit/nutrikit/internal/plan"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
	"github.com/nutrikit/nutrikit/internal/providers/email"
	"github.com/nutrikit/nutrikit/internal/providers/pdf"
	"github.com/nutrikit/nutrikit/internal/providers/whatsapp"
	"github.com/nutrikit/nutrikit/internal/ratelimit"
	"github.com/nutrikit/nutrikit/internal/settings"
	settingsdomain "github.com/nutrikit/nutrikit/internal/settings/domain"
	"github.com/nutrikit/nutrikit/internal/subscription"
	subdomain "github.com/nutrikit/nutrikit/internal/subscription/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	settings.Module,
	plan.Module,
	subscription.Module,
	invoice.Module,
	client.Module,
	engagement.Module,
	invite.Module,
	email.Module,
	pdf.Module,
	whatsapp.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
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
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	r.NoMethod(func(c *gin.Context) {
		c.Header("Allow", allowedMethods(r, c.Request.URL.Path))
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: errorPayload{
			Type:    "method_not_allowed",
			Message: "method not allowed",
		}})
	})

	return r
}

// allowedMethods lists the verbs registered for a path, for the Allow
// header on 405 responses. Request paths are matched against the route
// pattern so parameterized routes resolve too.
func allowedMethods(r *gin.Engine, path string) string {
	var allow []string
	for _, route := range r.Routes() {
		if routePathMatches(route.Path, path) {
			allow = append(allow, route.Method)
		}
	}
	return strings.Join(allow, ", ")
}

func routePathMatches(pattern, path string) bool {
	pp := strings.Split(pattern, "/")
	ps := strings.Split(path, "/")
	if len(pp) != len(ps) {
		return false
	}
	for i := range pp {
		if strings.HasPrefix(pp[i], ":") || strings.HasPrefix(pp[i], "*") {
			continue
		}
		if pp[i] != ps[i] {
			return false
		}
	}
	return true
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, registry)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg *config.Config) {
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
	engine        *gin.Engine
	cfg           *config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	authsvc       authdomain.Service
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	settingsSvc   settingsdomain.Service
	planSvc       plandomain.Service
	subSvc        subdomain.Service
	invoiceSvc    invoicedomain.Service
	clientSvc     clientdomain.Service
	engagementSvc engagementdomain.Service
	inviteSvc     invitedomain.Service
	pdfProvider   pdf.Provider
	limiter       ratelimit.Limiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           *config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	Authsvc       authdomain.Service
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	SettingsSvc   settingsdomain.Service
	PlanSvc       plandomain.Service
	SubSvc        subdomain.Service
	InvoiceSvc    invoicedomain.Service
	ClientSvc     clientdomain.Service
	EngagementSvc engagementdomain.Service
	InviteSvc     invitedomain.Service
	PDFProvider   pdf.Provider
	Limiter       ratelimit.Limiter
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		authsvc:       p.Authsvc,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		settingsSvc:   p.SettingsSvc,
		planSvc:       p.PlanSvc,
		subSvc:        p.SubSvc,
		invoiceSvc:    p.InvoiceSvc,
		clientSvc:     p.ClientSvc,
		engagementSvc: p.EngagementSvc,
		inviteSvc:     p.InviteSvc,
		pdfProvider:   p.PDFProvider,
		limiter:       p.Limiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.RateLimit("auth.login"), s.Login)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.BearerRequired())

	api.GET("/settings/upi", s.GetUPISettings)
	api.POST("/settings/upi", s.UpdateUPISettings)

	api.GET("/plans", s.ListPlans)
	api.POST("/plans", s.CreatePlan)

	api.POST("/billing/subscribe", s.RequireRole(authdomain.RoleCoach), s.Subscribe)
	api.GET("/billing/subscription", s.RequireRole(authdomain.RoleCoach), s.GetSubscription)
	api.POST("/billing/invoice", s.GetOrCreateInvoice)
	api.GET("/billing/invoice/:id/pdf", s.DownloadInvoicePDF)
	api.GET("/billing/invoices", s.ListOpenInvoices)
	api.POST("/billing/verify", s.VerifyInvoice)

	api.GET("/clients", s.RequireRole(authdomain.RoleCoach), s.ListClients)
	api.POST("/clients", s.RequireRole(authdomain.RoleCoach), s.CreateClient)
	api.POST("/clients/:id/messages", s.RequireRole(authdomain.RoleCoach), s.RecordClientMessage)
	api.POST("/clients/:id/progress", s.RequireRole(authdomain.RoleCoach), s.RecordClientProgress)

	api.GET("/intelligence/risk", s.RequireRole(authdomain.RoleCoach), s.RiskReport)
	api.GET("/intelligence/alerts", s.RequireRole(authdomain.RoleCoach), s.RiskAlerts)
	api.POST("/intelligence/nudge-all-red", s.RequireRole(authdomain.RoleCoach), s.RateLimit("intelligence.nudge"), s.NudgeAllRed)

	api.POST("/invites", s.CreateInvite)
	api.POST("/invites/redeem", s.RedeemInvite)

	api.GET("/audit-logs", s.ListAuditLogs)
}
