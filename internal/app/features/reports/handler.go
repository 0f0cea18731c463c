// internal/app/features/reports/handler.go
package reports

import (
	uierrors "github.com/dalemusser/membersverify/internal/app/features/errors"
	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/workbook"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves roster statistics and exports.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Members  *memberstore.Store
	// Images fetches ID images for ?images=1 exports.
	Images workbook.ImageSource
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Members:  memberstore.New(db),
		Images:   workbook.NewHTTPImages(),
	}
}
