// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/auth"
	"github.com/dalemusser/membersverify/internal/app/system/envelope"
	"github.com/dalemusser/membersverify/internal/app/system/fincen"
	"github.com/dalemusser/membersverify/internal/app/system/mailer"
	"github.com/dalemusser/membersverify/internal/app/system/metrics"
	"github.com/dalemusser/membersverify/internal/app/system/ratelimit"
	"github.com/dalemusser/membersverify/internal/app/system/workers"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app. Services is
// allocated by ConnectDB and filled in by Startup, so the later hooks that
// receive DBDeps by value still share it.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Services      *Services
}

// Services are the long-lived collaborators handlers are built from.
type Services struct {
	Tokens        *auth.Manager
	Box           *envelope.Box
	Store         storage.Store
	Mailer        *mailer.Mailer
	Fincen        *fincen.TokenSource
	Metrics       *metrics.Metrics
	Audit         *auditlog.Logger
	LoginLimiter  *ratelimit.LoginLimiter
	PublicLimiter *ratelimit.Limiter
	Warmer        *workers.TokenWarmer
}
