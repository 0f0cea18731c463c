// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (MEMBERSVERIFY_*), config
// files, or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig
// keeps the framework-level settings: ports, TLS, and logging.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Admin bearer tokens
	JWTSecret string        // HS256 signing key, at least 32 characters
	JWTTTL    time.Duration // Token lifetime (default 24h)

	// Envelope key shared with the front end for encryptedData and file URLs
	CryptoSecretKey string

	// Public site
	SiteName    string   // Name used in outreach emails
	FormBaseURL string   // Base of the verification form link sent to members
	CORSOrigins []string // Browser origins allowed to call the API

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage directory
	StorageLocalURL  string // Absolute URL prefix the app serves local files under

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region      string
	StorageS3Bucket      string
	StorageS3Prefix      string
	StoragePublicBaseURL string // Optional CDN base replacing the bucket URL

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// FinCEN OAuth2 client credentials
	FincenClientID     string
	FincenClientSecret string
	FincenScope        string
	FincenTokenURL     string
	FincenWarmInterval time.Duration // 0 disables the background warmer

	// Admin seeded at startup when absent
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	// Rate limits
	LoginIPLimit     int
	LoginUserLimit   int
	PublicRateLimit  int
	PublicRateWindow time.Duration

	// Audit logging: 'all', 'db', 'log', or 'off'
	AuditLogAuth     string
	AuditLogAdmin    string
	AuditLogWorkflow string

	// Handler timeouts; zero keeps the built-in defaults
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
	TimeoutBatch  time.Duration
}
