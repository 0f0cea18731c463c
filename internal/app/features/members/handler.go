// internal/app/features/members/handler.go
package members

import (
	"reflect"
	"strings"

	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/metrics"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for the admin roster endpoints.
// It holds the DB handle, stores, and logger provided by WAFFLE DBDeps / Startup.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Members  *memberstore.Store
	Metrics  *metrics.Metrics

	validate *validator.Validate
}

func NewHandler(db *mongo.Database, m *metrics.Metrics, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Members:  memberstore.New(db),
		Metrics:  m,
		validate: newValidator(),
	}
}

// newValidator reports field errors by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
