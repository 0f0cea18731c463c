// internal/app/store/members/store.go
package memberstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the roster collection.
const Collection = "members"

// Index names the store relies on to tell duplicate-key errors apart.
const (
	IndexFormToken              = "uniq_members_form_token"
	IndexVerifiedIdentification = "uniq_members_identification_verified"
)

var (
	// ErrNotFound is returned when no member matches the lookup.
	ErrNotFound = fmt.Errorf("member %w", apierr.ErrRecordNotFound)

	// ErrDuplicateToken is returned when a generated form token collides
	// with one already stored.
	ErrDuplicateToken = errors.New("form token already in use")

	// ErrDuplicateIdentification is returned when a verified member already
	// holds the identification being written.
	ErrDuplicateIdentification = fmt.Errorf("member %w", apierr.ErrDuplicateIdentity)

	// ErrRevisionConflict is returned when a conditional write finds that
	// the record changed (new token issued, or another submit won).
	ErrRevisionConflict = errors.New("member changed since it was read")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// GetByID loads a member by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByUniqueID loads a member by its external unique id.
func (s *Store) GetByUniqueID(ctx context.Context, uniqueID string) (*models.Member, error) {
	return s.findOne(ctx, bson.M{"unique_id": uniqueID})
}

// FindByFormToken resolves a live form token to its member.
func (s *Store) FindByFormToken(ctx context.Context, token string) (*models.Member, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"form_token": token})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// InsertMany bulk-inserts roster rows without stopping at the first failure.
// Rows without a unique id get a fresh one. It returns how many documents
// were written; a partial failure returns the count along with the error.
func (s *Store) InsertMany(ctx context.Context, rows []models.Member) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	docs := make([]any, len(rows))
	for i := range rows {
		m := rows[i]
		m.ID = primitive.NewObjectID()
		if strings.TrimSpace(m.UniqueID) == "" {
			m.UniqueID = uuid.NewString()
		}
		m.FormToken = nil
		m.Revision = 0
		m.CreatedAt = now
		m.UpdatedAt = now
		docs[i] = m
	}

	res, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			return len(docs) - len(bwe.WriteErrors), err
		}
		if res != nil {
			return len(res.InsertedIDs), err
		}
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

// SetFormToken stores token on the member with the given unique id,
// replacing any previous token, and returns the updated record.
func (s *Store) SetFormToken(ctx context.Context, uniqueID, token string) (*models.Member, error) {
	var m models.Member
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"unique_id": uniqueID},
		bson.M{
			"$set": bson.M{"form_token": token, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"revision": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		case isDupOn(err, IndexFormToken):
			return nil, ErrDuplicateToken
		}
		return nil, err
	}
	return &m, nil
}

// MarkEmailSent records that outreach email went out for the member.
func (s *Store) MarkEmailSent(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"email_sent": true, "email_sent_at": now, "updated_at": now},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IdentificationTakenByOther reports whether a verified member other than
// exclude already holds identification.
func (s *Store) IdentificationTakenByOther(ctx context.Context, identification string, exclude primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"identification": identification,
		"verified":       true,
		"_id":            bson.M{"$ne": exclude},
	}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// ApplyVerification writes an accepted submission. The update only matches
// while the member still holds token at the given revision, so a token
// replaced by outreach or a concurrent submit yields ErrRevisionConflict.
func (s *Store) ApplyVerification(ctx context.Context, id primitive.ObjectID, token string, revision int64, v models.Verification) (*models.Member, error) {
	now := time.Now().UTC()
	var m models.Member
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "form_token": token, "revision": revision},
		bson.M{
			"$set": bson.M{
				"first_name":     v.FirstName,
				"last_name":      v.LastName,
				"home_address":   v.HomeAddress,
				"identification": v.Identification,
				"dob":            v.DOB,
				"id_image":       v.IDImage,
				"form_filled":    true,
				"verified":       true,
				"verified_at":    now,
				"verified_token": token,
				"updated_at":     now,
			},
			"$inc": bson.M{"revision": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrRevisionConflict
		case isDupOn(err, IndexVerifiedIdentification):
			return nil, ErrDuplicateIdentification
		}
		return nil, err
	}
	return &m, nil
}

// ProfileUpdate holds the admin-editable fields. Nil fields are left as is.
// Workflow state other than EmailSent cannot be changed through it.
type ProfileUpdate struct {
	AssocCode           *string
	Association         *string
	AssociationLiveDate *time.Time
	AssociationManager  *string
	BoardMember         *string
	MemberRole          *string
	MemberType          *string
	TermStart           *time.Time
	TermEnd             *time.Time
	FirstName           *string
	LastName            *string
	HomeAddress         *string
	HomeCity            *string
	HomeState           *string
	HomeZip             *string
	MailingAddress      *string
	MailingCity         *string
	MailingState        *string
	MailingZip          *string
	PrimaryEmail        *string
	PrimaryPhone        *string
	Identification      *string
	DOB                 *string
	EmailSent           *bool
}

func (u ProfileUpdate) setDoc() bson.M {
	set := bson.M{}
	str := func(key string, v *string) {
		if v != nil {
			set[key] = strings.TrimSpace(*v)
		}
	}
	tm := func(key string, v *time.Time) {
		if v != nil {
			set[key] = v.UTC()
		}
	}
	str("assoc_code", u.AssocCode)
	str("association", u.Association)
	tm("association_live_date", u.AssociationLiveDate)
	str("association_manager", u.AssociationManager)
	str("board_member", u.BoardMember)
	str("member_role", u.MemberRole)
	str("member_type", u.MemberType)
	tm("term_start", u.TermStart)
	tm("term_end", u.TermEnd)
	str("first_name", u.FirstName)
	str("last_name", u.LastName)
	str("home_address", u.HomeAddress)
	str("home_city", u.HomeCity)
	str("home_state", u.HomeState)
	str("home_zip", u.HomeZip)
	str("mailing_address", u.MailingAddress)
	str("mailing_city", u.MailingCity)
	str("mailing_state", u.MailingState)
	str("mailing_zip", u.MailingZip)
	str("primary_email", u.PrimaryEmail)
	str("primary_phone", u.PrimaryPhone)
	str("identification", u.Identification)
	str("dob", u.DOB)
	if u.EmailSent != nil {
		set["email_sent"] = *u.EmailSent
	}
	return set
}

// Update applies an admin edit and returns the updated record.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.Member, error) {
	set := upd.setDoc()
	set["updated_at"] = time.Now().UTC()

	var m models.Member
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$inc": bson.M{"revision": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		case isDupOn(err, IndexVerifiedIdentification):
			return nil, ErrDuplicateIdentification
		}
		return nil, err
	}
	return &m, nil
}

// Delete removes a member by ObjectID.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Each streams every member, ordered by association, to fn.
func (s *Store) Each(ctx context.Context, fn func(models.Member) error) error {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: "association", Value: 1},
		{Key: "_id", Value: 1},
	}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var m models.Member
		if err := cur.Decode(&m); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return cur.Err()
}

// isDupOn reports whether err is a duplicate-key error raised by the named
// index. The server names the index in the error message.
func isDupOn(err error, index string) bool {
	return wafflemongo.IsDup(err) && strings.Contains(err.Error(), index)
}
