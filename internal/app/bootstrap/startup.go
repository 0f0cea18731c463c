// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	adminstore "github.com/dalemusser/membersverify/internal/app/store/admins"
	"github.com/dalemusser/membersverify/internal/app/store/audit"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"github.com/dalemusser/membersverify/internal/app/system/envelope"
	"github.com/dalemusser/membersverify/internal/app/system/fincen"
	"github.com/dalemusser/membersverify/internal/app/system/mailer"
	"github.com/dalemusser/membersverify/internal/app/system/metrics"
	"github.com/dalemusser/membersverify/internal/app/system/objectstore"
	"github.com/dalemusser/membersverify/internal/app/system/ratelimit"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"github.com/dalemusser/membersverify/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the shared services, seeds the admin account, and starts the FinCEN token
// warmer.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
		Batch:  appCfg.TimeoutBatch,
	})

	svc, err := buildServices(ctx, appCfg, deps.MongoDatabase, logger)
	if err != nil {
		return err
	}
	*deps.Services = *svc

	if err := ensureAdmin(ctx, deps.MongoDatabase, appCfg, svc.Audit, logger); err != nil {
		return err
	}

	if svc.Warmer != nil {
		svc.Warmer.Start()
	}
	return nil
}

func buildServices(ctx context.Context, appCfg AppConfig, db *mongo.Database, logger *zap.Logger) (*Services, error) {
	tokens, err := auth.NewManager(appCfg.JWTSecret, appCfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("admin tokens: %w", err)
	}
	box, err := envelope.New(appCfg.CryptoSecretKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	store, err := buildStore(ctx, appCfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	var fetcher fincen.Fetcher
	fcfg := fincen.Config{
		ClientID:     appCfg.FincenClientID,
		ClientSecret: appCfg.FincenClientSecret,
		Scope:        appCfg.FincenScope,
		TokenURL:     appCfg.FincenTokenURL,
	}
	if fcfg.Configured() {
		fetcher = fincen.NewClientCredentials(fcfg)
	} else {
		logger.Info("fincen client credentials not configured; token endpoints will report unavailable")
	}
	src := fincen.NewTokenSource(fetcher, logger.Named("fincen"), m)

	var events *audit.Store
	if db != nil {
		events = audit.New(db)
	}

	svc := &Services{
		Tokens: tokens,
		Box:    box,
		Store:  store,
		Mailer: mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		}, logger.Named("mailer")),
		Fincen:  src,
		Metrics: m,
		Audit: auditlog.New(events, logger, auditlog.Config{
			Auth:     appCfg.AuditLogAuth,
			Admin:    appCfg.AuditLogAdmin,
			Workflow: appCfg.AuditLogWorkflow,
		}),
		LoginLimiter:  ratelimit.NewLoginLimiterWithConfig(appCfg.LoginIPLimit, time.Minute, appCfg.LoginUserLimit, 5*time.Minute),
		PublicLimiter: ratelimit.New(appCfg.PublicRateLimit, appCfg.PublicRateWindow),
	}
	if fetcher != nil && appCfg.FincenWarmInterval > 0 {
		svc.Warmer = workers.NewTokenWarmer(src, logger.Named("fincen-warmer"), appCfg.FincenWarmInterval)
	}
	return svc, nil
}

func buildStore(ctx context.Context, appCfg AppConfig) (storage.Store, error) {
	return objectstore.New(ctx, objectstore.Config{
		Type:          appCfg.StorageType,
		LocalPath:     appCfg.StorageLocalPath,
		LocalURL:      appCfg.StorageLocalURL,
		S3Region:      appCfg.StorageS3Region,
		S3Bucket:      appCfg.StorageS3Bucket,
		S3Prefix:      appCfg.StorageS3Prefix,
		PublicBaseURL: appCfg.StoragePublicBaseURL,
	})
}

// ensureAdmin creates the configured admin when no account with that
// username exists. An existing account is left untouched.
func ensureAdmin(ctx context.Context, db *mongo.Database, appCfg AppConfig, al *auditlog.Logger, logger *zap.Logger) error {
	if appCfg.AdminUsername == "" {
		return nil
	}
	admin, created, err := adminstore.New(db).EnsureSeed(ctx, appCfg.AdminUsername, appCfg.AdminEmail, appCfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		al.AdminSeeded(ctx, admin.ID, admin.Username)
		logger.Info("seeded admin account", zap.String("username", admin.Username))
	}
	return nil
}
