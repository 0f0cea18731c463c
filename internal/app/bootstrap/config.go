// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// Development defaults that must be replaced outside dev.
const (
	devJWTSecret    = "dev-only-jwt-secret-change-me-0123456789ABCDEF"
	devCryptoSecret = "dev-only-crypto-key-change-me"
)

// appConfigKeys defines the configuration keys for membersverify.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: MEMBERSVERIFY_MONGO_URI, MEMBERSVERIFY_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "membersverify", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 key for admin tokens (at least 32 characters)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Admin token lifetime"},
	{Name: "crypto_secret_key", Default: devCryptoSecret, Desc: "Secret shared with the front end for encrypted payloads"},

	{Name: "site_name", Default: "MembersVerify", Desc: "Site name used in outreach emails"},
	{Name: "form_base_url", Default: "http://localhost:3030/verify", Desc: "Base URL of the member verification form"},
	{Name: "cors_origins", Default: "http://localhost:3030,http://localhost:3031,https://membersverify.com", Desc: "Comma-separated browser origins allowed to call the API"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded ID documents"},
	{Name: "storage_local_url", Default: "http://localhost:8080/files", Desc: "Absolute URL prefix for serving local files"},

	// S3 configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "", Desc: "S3 key prefix"},
	{Name: "storage_public_base_url", Default: "", Desc: "Public base URL for stored objects (CDN); blank uses the bucket URL"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@membersverify.com", Desc: "From email address"},
	{Name: "mail_from_name", Default: "MembersVerify", Desc: "From display name"},

	// FinCEN client credentials
	{Name: "fincen_client_id", Default: "", Desc: "FinCEN OAuth2 client ID"},
	{Name: "fincen_client_secret", Default: "", Desc: "FinCEN OAuth2 client secret"},
	{Name: "fincen_scope", Default: "", Desc: "FinCEN OAuth2 scope"},
	{Name: "fincen_token_url", Default: "", Desc: "FinCEN OAuth2 token endpoint"},
	{Name: "fincen_warm_interval", Default: "30s", Desc: "How often the FinCEN token cache is checked in the background (0 disables)"},

	// Admin bootstrap
	{Name: "admin_username", Default: "", Desc: "Username of the admin created on startup when absent"},
	{Name: "admin_email", Default: "", Desc: "Email of the seeded admin"},
	{Name: "admin_password", Default: "", Desc: "Password of the seeded admin"},

	// Rate limits
	{Name: "login_ip_limit", Default: 10, Desc: "Admin login attempts per IP per minute"},
	{Name: "login_user_limit", Default: 5, Desc: "Admin login attempts per username per 5 minutes"},
	{Name: "public_rate_limit", Default: 30, Desc: "Requests per client IP per window on /api/user"},
	{Name: "public_rate_window", Default: "1m", Desc: "Window for public_rate_limit"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_workflow", Default: "all", Desc: "Member workflow event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Handler timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operations"},
	{Name: "timeout_medium", Default: "15s", Desc: "List queries, stats, submissions"},
	{Name: "timeout_long", Default: "30s", Desc: "Uploads, exports, outreach"},
	{Name: "timeout_batch", Default: "2m", Desc: "Roster imports"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges flags > env > files > defaults
// and reads WAFFLE_* for core settings and MEMBERSVERIFY_* for these keys.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MEMBERSVERIFY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:       appValues.String("jwt_secret"),
		JWTTTL:          appValues.Duration("jwt_ttl", auth.DefaultTTL),
		CryptoSecretKey: appValues.String("crypto_secret_key"),

		SiteName:    appValues.String("site_name"),
		FormBaseURL: appValues.String("form_base_url"),
		CORSOrigins: splitList(appValues.String("cors_origins")),

		// File storage
		StorageType:      strings.ToLower(appValues.String("storage_type")),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3
		StorageS3Region:      appValues.String("storage_s3_region"),
		StorageS3Bucket:      appValues.String("storage_s3_bucket"),
		StorageS3Prefix:      appValues.String("storage_s3_prefix"),
		StoragePublicBaseURL: appValues.String("storage_public_base_url"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		// FinCEN
		FincenClientID:     appValues.String("fincen_client_id"),
		FincenClientSecret: appValues.String("fincen_client_secret"),
		FincenScope:        appValues.String("fincen_scope"),
		FincenTokenURL:     appValues.String("fincen_token_url"),
		FincenWarmInterval: appValues.Duration("fincen_warm_interval", 30*time.Second),

		// Admin seed
		AdminUsername: appValues.String("admin_username"),
		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),

		// Rate limits
		LoginIPLimit:     appValues.Int("login_ip_limit"),
		LoginUserLimit:   appValues.Int("login_user_limit"),
		PublicRateLimit:  appValues.Int("public_rate_limit"),
		PublicRateWindow: appValues.Duration("public_rate_window", time.Minute),

		// Audit logging
		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogWorkflow: appValues.String("audit_log_workflow"),

		// Timeouts
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
		TimeoutBatch:  appValues.Duration("timeout_batch", 0),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.TrimSuffix(p, "/"))
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// It rejects configurations that would fail later at request time: a bad
// MongoDB URI, missing storage settings, or a relative form link. Outside
// dev the built-in secrets are refused.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	var errs []error

	if len(appCfg.JWTSecret) < 32 {
		errs = append(errs, auth.ErrWeakSecret)
	}
	if appCfg.CryptoSecretKey == "" {
		errs = append(errs, errors.New("crypto_secret_key is required"))
	}
	if env != "dev" {
		if appCfg.JWTSecret == devJWTSecret {
			errs = append(errs, errors.New("jwt_secret must be changed outside dev"))
		}
		if appCfg.CryptoSecretKey == devCryptoSecret {
			errs = append(errs, errors.New("crypto_secret_key must be changed outside dev"))
		}
	}

	if !urlutil.IsValidAbsHTTPURL(appCfg.FormBaseURL) {
		errs = append(errs, fmt.Errorf("form_base_url must be an absolute http(s) URL, got %q", appCfg.FormBaseURL))
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			errs = append(errs, errors.New("storage_local_path is required for local storage"))
		}
		if !urlutil.IsValidAbsHTTPURL(appCfg.StorageLocalURL) {
			errs = append(errs, fmt.Errorf("storage_local_url must be an absolute http(s) URL, got %q", appCfg.StorageLocalURL))
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			errs = append(errs, errors.New("storage_s3_bucket and storage_s3_region are required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType))
	}

	if (appCfg.AdminUsername == "") != (appCfg.AdminPassword == "") {
		errs = append(errs, errors.New("admin_username and admin_password must be set together"))
	}

	for key, v := range map[string]string{
		"audit_log_auth":     appCfg.AuditLogAuth,
		"audit_log_admin":    appCfg.AuditLogAdmin,
		"audit_log_workflow": appCfg.AuditLogWorkflow,
	} {
		switch v {
		case auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			errs = append(errs, fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v))
		}
	}

	return errors.Join(errs...)
}
