// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"net/url"
	"path"

	dashboardfeature "github.com/dalemusser/membersverify/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/membersverify/internal/app/features/errors"
	healthfeature "github.com/dalemusser/membersverify/internal/app/features/health"
	integrationsfeature "github.com/dalemusser/membersverify/internal/app/features/integrations"
	loginfeature "github.com/dalemusser/membersverify/internal/app/features/login"
	membersfeature "github.com/dalemusser/membersverify/internal/app/features/members"
	onboardingfeature "github.com/dalemusser/membersverify/internal/app/features/onboarding"
	outreachfeature "github.com/dalemusser/membersverify/internal/app/features/outreach"
	reportsfeature "github.com/dalemusser/membersverify/internal/app/features/reports"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed, so deps.Services is populated.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	return newRouter(appCfg, deps, logger), nil
}

// newRouter mounts every feature:
//
//	/health, /metrics            operational endpoints
//	/admin/login                 admin sign-in
//	/admin/dashboard             admin landing payload (bearer token)
//	/api/admin/*                 roster, reports, outreach, FinCEN (bearer token)
//	/api/user/*                  public verification form, rate limited
//	/api/webhook                 third-party callback
//	/files/*                     ID documents when storage is local
func newRouter(appCfg AppConfig, deps DBDeps, logger *zap.Logger) http.Handler {
	svc := deps.Services
	db := deps.MongoDatabase

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(svc.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, svc.Fincen, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", svc.Metrics.Handler())

	// Admin authentication
	loginHandler := loginfeature.NewHandler(db, svc.Tokens, svc.LoginLimiter, errLog, svc.Audit, logger)
	r.Mount("/admin/login", loginfeature.Routes(loginHandler))

	dashboardHandler := dashboardfeature.NewHandler(db, errLog, logger)
	r.Mount("/admin/dashboard", dashboardfeature.Routes(dashboardHandler, svc.Tokens))

	// Admin API
	integrationsHandler := integrationsfeature.NewHandler(svc.Fincen, errLog, logger)
	r.Route("/api/admin", func(ar chi.Router) {
		ar.Use(svc.Tokens.RequireAdmin)

		membersHandler := membersfeature.NewHandler(db, svc.Metrics, errLog, svc.Audit, logger)
		membersfeature.Register(ar, membersHandler)

		reportsHandler := reportsfeature.NewHandler(db, errLog, svc.Audit, logger)
		reportsfeature.Register(ar, reportsHandler)

		outreachHandler := outreachfeature.NewHandler(db, svc.Mailer, outreachfeature.Config{
			SiteName:    appCfg.SiteName,
			FormBaseURL: appCfg.FormBaseURL,
		}, svc.Metrics, errLog, svc.Audit, logger)
		outreachfeature.Register(ar, outreachHandler)

		ar.Mount("/fincen", integrationsfeature.AdminRoutes(integrationsHandler))
	})

	// Public verification form
	onboardingHandler := onboardingfeature.NewHandler(db, svc.Box, svc.Store, svc.Metrics, errLog, svc.Audit, logger)
	r.Mount("/api/user", onboardingfeature.Routes(onboardingHandler, svc.PublicLimiter))

	r.Mount("/api/webhook", integrationsfeature.WebhookRoutes(integrationsHandler))

	// Uploaded documents with local storage
	if appCfg.StorageType == "local" {
		if prefix := localFilesPath(appCfg.StorageLocalURL); prefix != "" {
			r.Handle(prefix+"/*", fileserver.Handler(prefix, appCfg.StorageLocalPath))
		}
	}

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	return r
}

// localFilesPath returns the path component of the local storage URL, e.g.
// "/files" for "http://localhost:8080/files/".
func localFilesPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	return path.Clean(u.Path)
}
