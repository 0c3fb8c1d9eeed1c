// Package web serves the HTML forms, dashboards and JSON API over gin.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"civicReporting/internal/auth"
	"civicReporting/internal/config"
	"civicReporting/internal/logging"
	"civicReporting/internal/metrics"
	"civicReporting/internal/upload"
	"civicReporting/repository"
)

// SessionName is the cookie holding the signed session.
const SessionName = "civic_session"

// Deps are the collaborators the router needs.
type Deps struct {
	Config  *config.Config
	Auth    *auth.Service
	Issues  repository.IssueRepositoryI
	Intake  *upload.Intake
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Store   Pinger
	// Objects serves photos when the object storage backend is configured.
	Objects ObjectReader
}

// NewRouter builds the gin engine with all middleware and routes.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Config == nil || d.Auth == nil || d.Issues == nil || d.Intake == nil || d.Store == nil {
		return nil, errors.New("web: missing dependency")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New("civic")
	}
	cfg := d.Config
	h := &Handler{
		cfg:     cfg,
		auth:    d.Auth,
		issues:  d.Issues,
		intake:  d.Intake,
		metrics: d.Metrics,
		logger:  d.Logger,
		store:   d.Store,
		objects: d.Objects,
	}

	photoURL := diskPhotoURL
	if cfg.Upload.Backend == config.BackendMinio {
		photoURL = objectPhotoURL
	}
	tmpl, err := loadTemplates(photoURL)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = 8 << 20
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware(d.Logger))
	router.Use(d.Metrics.GinMiddleware())

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	router.Use(secure.New(secureConfig))

	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		if len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*" {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = cfg.Server.CORSOrigins
			corsConfig.AllowCredentials = true
		}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
		router.Use(cors.New(corsConfig))
	}

	store := cookie.NewStore([]byte(cfg.Auth.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Auth.SessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   cfg.Auth.CookieSecure,
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(SessionName, store))
	router.Use(loadIdentity())

	router.GET("/healthz", h.healthz)
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	router.GET("/", h.index)
	router.GET("/register", h.registerForm)
	router.POST("/register", h.register)
	router.GET("/login", h.loginForm)
	router.POST("/login", h.login)
	router.GET("/admin_login", h.adminLoginForm)
	router.POST("/admin_login", h.adminLogin)
	router.POST("/logout", h.logout)

	user := router.Group("/", requireUser())
	{
		user.GET("/dashboard", h.dashboard)
		user.GET("/report", h.reportForm)
		user.POST("/report", h.report)
	}

	admin := router.Group("/", requireAdmin())
	{
		admin.GET("/admin_dashboard", h.adminDashboard)
	}

	uploads := router.Group("/uploads", requireUserOrAdmin())
	switch {
	case cfg.Upload.Backend == config.BackendDisk:
		uploads.Static("/", cfg.Upload.Dir)
	case d.Objects != nil:
		uploads.GET("/*ref", h.objectPhoto)
	}

	api := router.Group("/api/v1")
	{
		api.POST("/token", h.issueToken)
		api.GET("/issues", requireBearer(cfg.Auth.JWTSecret), h.listIssues)
	}

	return router, nil
}

// Start serves router on addr in the background and returns a shutdown function.
func Start(addr string, router http.Handler, logger *zap.Logger) (func(context.Context) error, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}()
	return srv.Shutdown, nil
}
