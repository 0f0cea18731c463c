// internal/app/store/members/query.go
package memberstore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/paging"
	"github.com/dalemusser/membersverify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Expiry filters accepted by List.
const (
	ExpiryExpired  = "expired"
	ExpiryExpiring = "expiring"
	ExpiryUnset    = "setDate"
)

// ListFilter narrows the roster listing. Zero values mean "no filter".
type ListFilter struct {
	Email     string // case-insensitive substring of primary_email
	AssocCode string
	Expiry    string // ExpiryExpired | ExpiryExpiring | ExpiryUnset
}

// Filter builds the Mongo filter for f relative to now. Day boundaries are
// computed in UTC.
func (f ListFilter) Filter(now time.Time) bson.M {
	filter := bson.M{}
	if email := strings.TrimSpace(f.Email); email != "" {
		filter["primary_email"] = bson.M{"$regex": regexp.QuoteMeta(email), "$options": "i"}
	}
	if code := strings.TrimSpace(f.AssocCode); code != "" {
		filter["assoc_code"] = code
	}

	today := startOfDay(now)
	switch f.Expiry {
	case ExpiryExpired:
		filter["term_end"] = bson.M{"$lt": today}
	case ExpiryExpiring:
		// Through the end of the seventh day.
		filter["term_end"] = bson.M{"$gte": today, "$lt": today.AddDate(0, 0, 8)}
	case ExpiryUnset:
		filter["term_end"] = nil
	}
	return filter
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// List returns one page of members matching f, sorted by association, plus
// the total number of matches.
func (s *Store) List(ctx context.Context, f ListFilter, page, pageSize int) ([]models.Member, int64, error) {
	filter := f.Filter(time.Now())

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "association", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(paging.Skip(page, pageSize)).
		SetLimit(int64(pageSize))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := make([]models.Member, 0, pageSize)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Stats summarizes roster progress.
type Stats struct {
	TotalUsers          int64 `json:"totalUsers"`
	NotSubmittedForm    int64 `json:"notSubmittedForm"`
	SubmittedForm       int64 `json:"SubmittedForm"`
	EmailNotSent        int64 `json:"emailNotSent"`
	UpcomingExpirations int64 `json:"upcomingExpirations"`
	Expired             int64 `json:"expired"`
	Verified            int64 `json:"verified"`
}

// StatsFilters returns the named filters Stats counts, relative to now.
func StatsFilters(now time.Time) map[string]bson.M {
	now = now.UTC()
	return map[string]bson.M{
		"total":        {},
		"notSubmitted": {"form_filled": bson.M{"$ne": true}},
		"submitted":    {"form_filled": true},
		"emailNotSent": {"email_sent": bson.M{"$ne": true}},
		"upcoming":     {"term_end": bson.M{"$gt": now, "$lte": now.Add(24 * time.Hour)}},
		"expired":      {"term_end": bson.M{"$lte": now}},
		"verified":     {"verified": true},
	}
}

// Stats counts members by workflow state and term expiry.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	counts := make(map[string]int64)
	for name, filter := range StatsFilters(time.Now()) {
		n, err := s.c.CountDocuments(ctx, filter)
		if err != nil {
			return Stats{}, err
		}
		counts[name] = n
	}
	return Stats{
		TotalUsers:          counts["total"],
		NotSubmittedForm:    counts["notSubmitted"],
		SubmittedForm:       counts["submitted"],
		EmailNotSent:        counts["emailNotSent"],
		UpcomingExpirations: counts["upcoming"],
		Expired:             counts["expired"],
		Verified:            counts["verified"],
	}, nil
}

// Association is one distinct association on the roster.
type Association struct {
	AssocCode   string `bson:"_id" json:"assocCode"`
	Association string `bson:"association" json:"association"`
	Members     int64  `bson:"members" json:"members"`
}

// Associations lists the distinct association codes with their names.
func (s *Store) Associations(ctx context.Context) ([]Association, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"assoc_code": bson.M{"$nin": bson.A{nil, ""}}}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$assoc_code",
			"association": bson.M{"$first": "$association"},
			"members":     bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Association{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
