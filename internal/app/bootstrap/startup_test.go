package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/dalemusser/membersverify/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testAppConfig(t *testing.T) AppConfig {
	return AppConfig{
		JWTSecret:        "test-jwt-secret-0123456789abcdefghijklmnop",
		JWTTTL:           time.Hour,
		CryptoSecretKey:  "test-crypto-key",
		SiteName:         "MembersVerify",
		FormBaseURL:      "https://app.example.com/verify",
		CORSOrigins:      []string{"https://app.example.com"},
		StorageType:      "local",
		StorageLocalPath: t.TempDir(),
		StorageLocalURL:  "http://localhost:8080/files",
		MailSMTPHost:     "localhost",
		MailSMTPPort:     1025,
		MailFrom:         "noreply@example.com",
		AdminUsername:    "root",
		AdminEmail:       "root@example.com",
		AdminPassword:    "correct-horse-battery",
		LoginIPLimit:     10,
		LoginUserLimit:   5,
		PublicRateLimit:  100,
		PublicRateWindow: time.Minute,
		AuditLogAuth:     "all",
		AuditLogAdmin:    "all",
		AuditLogWorkflow: "all",
	}
}

func TestValidateApp(t *testing.T) {
	base := testAppConfig(t)
	require.NoError(t, validateApp("prod", base))

	cases := []struct {
		name   string
		env    string
		mutate func(*AppConfig)
		want   string
	}{
		{"short jwt secret", "dev", func(c *AppConfig) { c.JWTSecret = "short" }, "at least 32"},
		{"dev jwt secret in prod", "prod", func(c *AppConfig) { c.JWTSecret = devJWTSecret }, "jwt_secret must be changed"},
		{"dev crypto key in prod", "prod", func(c *AppConfig) { c.CryptoSecretKey = devCryptoSecret }, "crypto_secret_key must be changed"},
		{"missing crypto key", "dev", func(c *AppConfig) { c.CryptoSecretKey = "" }, "crypto_secret_key is required"},
		{"relative form url", "dev", func(c *AppConfig) { c.FormBaseURL = "/verify" }, "form_base_url"},
		{"relative local url", "dev", func(c *AppConfig) { c.StorageLocalURL = "/files" }, "storage_local_url"},
		{"s3 without bucket", "dev", func(c *AppConfig) { c.StorageType = "s3" }, "storage_s3_bucket"},
		{"unknown storage", "dev", func(c *AppConfig) { c.StorageType = "ftp" }, "storage_type"},
		{"admin without password", "dev", func(c *AppConfig) { c.AdminPassword = "" }, "set together"},
		{"bad audit destination", "dev", func(c *AppConfig) { c.AuditLogWorkflow = "everywhere" }, "audit_log_workflow"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := validateApp(tc.env, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("dev defaults allowed in dev", func(t *testing.T) {
		cfg := base
		cfg.JWTSecret = devJWTSecret
		cfg.CryptoSecretKey = devCryptoSecret
		assert.NoError(t, validateApp("dev", cfg))
	})
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example.com/ , ,http://localhost:3030")
	assert.Equal(t, []string{"https://a.example.com", "http://localhost:3030"}, got)
	assert.Nil(t, splitList(""))
}

func TestLocalFilesPath(t *testing.T) {
	assert.Equal(t, "/files", localFilesPath("http://localhost:8080/files/"))
	assert.Equal(t, "/static/ids", localFilesPath("https://cdn.example.com/static/ids"))
	assert.Equal(t, "", localFilesPath("http://localhost:8080"))
}

func TestEnsureAdmin_CreatesOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := testAppConfig(t)
	svc, err := buildServices(ctx, cfg, db, testLogger())
	require.NoError(t, err)
	defer svc.LoginLimiter.Stop()
	defer svc.PublicLimiter.Stop()

	require.NoError(t, ensureAdmin(ctx, db, cfg, svc.Audit, testLogger()))

	var admin models.Admin
	require.NoError(t, db.Collection("admins").FindOne(ctx, bson.M{"username": "root"}).Decode(&admin))
	assert.Equal(t, "root@example.com", admin.Email)
	assert.NotEqual(t, cfg.AdminPassword, admin.PasswordHash)

	// A second start with a different password must not reset the account.
	cfg.AdminPassword = "another-password"
	require.NoError(t, ensureAdmin(ctx, db, cfg, svc.Audit, testLogger()))
	n, err := db.Collection("admins").CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var again models.Admin
	require.NoError(t, db.Collection("admins").FindOne(ctx, bson.M{"username": "root"}).Decode(&again))
	assert.Equal(t, admin.PasswordHash, again.PasswordHash)

	seeded, err := db.Collection("audit_events").CountDocuments(ctx, bson.M{"event_type": "admin_seeded"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seeded)
}

func TestEnsureAdmin_SkippedWithoutUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := testAppConfig(t)
	cfg.AdminUsername = ""
	require.NoError(t, ensureAdmin(ctx, db, cfg, nil, testLogger()))

	n, err := db.Collection("admins").CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBuildServices_NoFincenNoWarmer(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := testAppConfig(t)
	cfg.FincenWarmInterval = time.Second
	svc, err := buildServices(ctx, cfg, nil, testLogger())
	require.NoError(t, err)
	defer svc.LoginLimiter.Stop()
	defer svc.PublicLimiter.Stop()

	assert.Nil(t, svc.Warmer)
	assert.False(t, svc.Fincen.Status().Configured)

	cfg.FincenClientID = "id"
	cfg.FincenClientSecret = "secret"
	cfg.FincenTokenURL = "https://auth.example.com/token"
	svc2, err := buildServices(ctx, cfg, nil, testLogger())
	require.NoError(t, err)
	defer svc2.LoginLimiter.Stop()
	defer svc2.PublicLimiter.Stop()
	assert.NotNil(t, svc2.Warmer)
	assert.True(t, svc2.Fincen.Status().Configured)
}

func TestRouter_EndToEnd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := testAppConfig(t)
	svc, err := buildServices(ctx, cfg, db, testLogger())
	require.NoError(t, err)
	defer svc.LoginLimiter.Stop()
	defer svc.PublicLimiter.Stop()
	require.NoError(t, ensureAdmin(ctx, db, cfg, svc.Audit, testLogger()))

	f := testutil.NewFixtures(t, db)
	f.CreateMember(ctx, "OAK", "ada@example.com")

	h := newRouter(cfg, DBDeps{MongoClient: db.Client(), MongoDatabase: db, Services: svc}, testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	do := func(t *testing.T, method, path, token, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { res.Body.Close() })
		return res
	}

	t.Run("unknown route", func(t *testing.T) {
		res := do(t, http.MethodGet, "/nope", "", "")
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		var body map[string]any
		require.NoError(t, decode(res, &body))
		assert.Equal(t, "Route not found", body["message"])
	})

	t.Run("admin api requires token", func(t *testing.T) {
		res := do(t, http.MethodGet, "/api/admin/getStats", "", "")
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	var token string
	t.Run("login", func(t *testing.T) {
		res := do(t, http.MethodPost, "/admin/login", "", `{"username":"root","password":"correct-horse-battery"}`)
		require.Equal(t, http.StatusOK, res.StatusCode)
		var body map[string]any
		require.NoError(t, decode(res, &body))
		token, _ = body["token"].(string)
		require.NotEmpty(t, token)
	})

	t.Run("admin api with token", func(t *testing.T) {
		res := do(t, http.MethodGet, "/api/admin/getStats", token, "")
		require.Equal(t, http.StatusOK, res.StatusCode)
		var body struct {
			Success bool           `json:"success"`
			Stats   map[string]any `json:"stats"`
		}
		require.NoError(t, decode(res, &body))
		assert.True(t, body.Success)
		assert.Equal(t, float64(1), body.Stats["totalUsers"])

		res = do(t, http.MethodGet, "/api/admin/fincen/token-status", token, "")
		assert.Equal(t, http.StatusOK, res.StatusCode)

		res = do(t, http.MethodGet, "/admin/dashboard", token, "")
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("public and operational endpoints", func(t *testing.T) {
		res := do(t, http.MethodPost, "/api/webhook", "", `{"result":"ok"}`)
		assert.Equal(t, http.StatusOK, res.StatusCode)

		res = do(t, http.MethodGet, "/api/user/form/not-a-token", "", "")
		assert.Equal(t, http.StatusNotFound, res.StatusCode)

		res = do(t, http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusOK, res.StatusCode)

		res = do(t, http.MethodGet, "/metrics", "", "")
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/user/submit-form", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, "https://app.example.com", res.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))
	})
}
