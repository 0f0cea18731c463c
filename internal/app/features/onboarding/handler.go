// internal/app/features/onboarding/handler.go
package onboarding

import (
	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/envelope"
	"github.com/dalemusser/membersverify/internal/app/system/metrics"
	"github.com/dalemusser/membersverify/internal/app/system/verify"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the public onboarding form: ID upload, prefill, and
// submission. Callers are identified only by their form token.
type Handler struct {
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Members  *memberstore.Store
	Machine  *verify.Machine
	Box      *envelope.Box
	Store    storage.Store
	Metrics  *metrics.Metrics
}

func NewHandler(db *mongo.Database, box *envelope.Box, store storage.Store, m *metrics.Metrics, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	members := memberstore.New(db)
	return &Handler{
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Members:  members,
		Machine:  verify.New(members, box, logger),
		Box:      box,
		Store:    store,
		Metrics:  m,
	}
}
