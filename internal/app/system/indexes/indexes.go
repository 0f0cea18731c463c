// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureMembers(ctx, db); err != nil {
		problems = append(problems, "members: "+err.Error())
	}
	if err := ensureAdmins(ctx, db); err != nil {
		problems = append(problems, "admins: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.M `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// optionSig captures the options that change index semantics. Two indexes
// with the same keys but different option signatures must be rebuilt.
func optionSig(unique *bool, partial any) string {
	u := unique != nil && *unique
	if partial == nil {
		return fmt.Sprintf("unique=%t", u)
	}
	raw, err := bson.MarshalExtJSON(partial, true, false)
	if err != nil {
		return fmt.Sprintf("unique=%t partial=%v", u, partial)
	}
	var norm bson.M
	if err := bson.UnmarshalExtJSON(raw, true, &norm); err != nil {
		return fmt.Sprintf("unique=%t partial=%s", u, raw)
	}
	return fmt.Sprintf("unique=%t partial=%v", u, norm)
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// duplicateHints tells operators how to find the rows blocking a unique index.
var duplicateHints = map[string]string{
	"members/identification:1": `db.members.aggregate([{ $match: { verified: true } }, { $group: { _id: "$identification", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"members/form_token:1":     `db.members.aggregate([{ $match: { form_token: { $type: "string" } } }, { $group: { _id: "$form_token", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"admins/username:1":        `db.admins.aggregate([{ $group: { _id: "$username", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
}

func createErr(coll *mongo.Collection, name, sig string, unique bool, err error) string {
	if isDuplicateKeyErr(err) && unique {
		helper := ""
		if hint, ok := duplicateHints[coll.Name()+"/"+sig]; ok {
			helper = ". Example finder: " + hint
		}
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s", coll.Name(), name, helper)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var (
			desiredName   string
			desiredUnique *bool
			desiredPart   any
		)
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
			desiredPart = m.Options.PartialFilterExpression
		}
		unique := desiredUnique != nil && *desiredUnique
		sig := keySig(m.Keys.(bson.D))
		optSig := optionSig(desiredUnique, desiredPart)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", sig),
			zap.Bool("unique", unique))

		log.Info("ensuring index")

		if ex, ok := listIndexes(ctx, coll)[sig]; ok {
			exSig := optionSig(ex.Unique, nilIfEmpty(ex.Partial))
			if exSig == optSig && (desiredName == "" || ex.Name == desiredName) {
				log.Info("reusing existing index", zap.Duration("took", time.Since(start)))
				continue
			}

			// Name or options differ: drop and recreate with the desired shape.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				errs = append(errs, createErr(coll, desiredName, sig, unique, err))
				continue
			}
			log.Info("index dropped and recreated",
				zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err == nil {
			log.Info("index ensured", zap.String("created_name", created), zap.Duration("took", time.Since(start)))
			continue
		}

		// Same name, different keys: drop the stale one and retry once.
		if isOptionsConflictErr(err) && desiredName != "" {
			if _, dropErr := coll.Indexes().DropOne(ctx, desiredName); dropErr == nil {
				if _, err = coll.Indexes().CreateOne(ctx, m); err == nil {
					log.Info("index dropped and recreated (post-conflict)", zap.Duration("took", time.Since(start)))
					continue
				}
			}
		}

		log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		errs = append(errs, createErr(coll, desiredName, sig, unique, err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func nilIfEmpty(m bson.M) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

/* -------------------------------------------------------------------------- */
/* Per-collection index sets                                                  */
/* -------------------------------------------------------------------------- */

func ensureMembers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(memberstore.Collection)
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			// At most one record per live token; absent tokens never collide.
			Keys: bson.D{{Key: "form_token", Value: 1}},
			Options: options.Index().
				SetName(memberstore.IndexFormToken).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"form_token": bson.M{"$type": "string"}}),
		},
		{
			// Identification is unique among verified members only.
			Keys: bson.D{{Key: "identification", Value: 1}},
			Options: options.Index().
				SetName(memberstore.IndexVerifiedIdentification).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"verified":       true,
					"identification": bson.M{"$type": "string"},
				}),
		},
		{
			Keys:    bson.D{{Key: "unique_id", Value: 1}},
			Options: options.Index().SetName("idx_members_unique_id"),
		},
		{
			Keys:    bson.D{{Key: "assoc_code", Value: 1}, {Key: "association", Value: 1}},
			Options: options.Index().SetName("idx_members_assoc"),
		},
		{
			Keys:    bson.D{{Key: "association", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_members_association_id"),
		},
		{
			Keys:    bson.D{{Key: "term_end", Value: 1}},
			Options: options.Index().SetName("idx_members_term_end"),
		},
		{
			Keys:    bson.D{{Key: "primary_email", Value: 1}},
			Options: options.Index().SetName("idx_members_primary_email"),
		},
	})
}

func ensureAdmins(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("admins")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_admins_username").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_admins_email").SetUnique(true),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_created"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_created"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_member_created"),
		},
	})
}
