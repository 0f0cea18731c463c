// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/membersverify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the app's collections when missing and attaches
// JSON-Schema validators. Deployments without collMod support (some
// DocumentDB versions) log and continue.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("members", membersSchema())
	ensure("admins", adminsSchema())
	ensure("audit_events", auditSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection reports created==true only when it made the collection.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	if exists, err := collectionExists(ctx, db, name); err == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if hasCode(err, 48, "already exists", "namespace exists") {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

func isUnsupported(err error) bool {
	return hasCode(err, 59, "no such command") ||
		hasCode(err, 115, "not implemented", "not supported")
}

// hasCode matches a server command error by code, falling back to message
// fragments for drivers/proxies that rewrite errors.
func hasCode(err error, code int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

var (
	nonBlank  = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	optString = bson.M{"bsonType": bson.A{"string", "null"}}
	optDate   = bson.M{"bsonType": bson.A{"date", "null"}}
	counter   = bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0}
)

func membersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"unique_id", "form_filled", "verified", "email_sent", "revision", "created_at"},
			"properties": bson.M{
				"unique_id":      nonBlank,
				"form_token":     optString,
				"form_filled":    bson.M{"bsonType": "bool"},
				"verified":       bson.M{"bsonType": "bool"},
				"email_sent":     bson.M{"bsonType": "bool"},
				"revision":       counter,
				"identification": optString,
				"id_image":       optString,
				"primary_email":  optString,
				"term_start":     optDate,
				"term_end":       optDate,
				"verified_at":    optDate,
				"verified_token": optString,
				"email_sent_at":  optDate,
				"created_at":     bson.M{"bsonType": "date"},
			},
		},
	}
}

func adminsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"username", "email", "password_hash", "role"},
			"properties": bson.M{
				"username":      nonBlank,
				"email":         nonBlank,
				"password_hash": bson.M{"bsonType": "string", "minLength": 20},
				"role":          bson.M{"enum": bson.A{models.RoleAdmin}},
			},
		},
	}
}

func auditSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"created_at", "category", "event_type", "success"},
			"properties": bson.M{
				"created_at": bson.M{"bsonType": "date"},
				"category":   bson.M{"enum": bson.A{"auth", "admin", "workflow"}},
				"event_type": nonBlank,
				"success":    bson.M{"bsonType": "bool"},
			},
		},
	}
}
