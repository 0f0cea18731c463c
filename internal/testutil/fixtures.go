package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateMember inserts a roster member with the given association and email.
// Optional mutators adjust the record before insert.
func (f *Fixtures) CreateMember(ctx context.Context, assocCode, email string, mutate ...func(*models.Member)) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:           primitive.NewObjectID(),
		UniqueID:     uuid.NewString(),
		AssocCode:    assocCode,
		Association:  "Association " + assocCode,
		FirstName:    "Test",
		LastName:     "Member",
		PrimaryEmail: email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, fn := range mutate {
		fn(&m)
	}

	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateMemberWithToken inserts a member that already holds a form token.
func (f *Fixtures) CreateMemberWithToken(ctx context.Context, assocCode, email, token string) models.Member {
	f.t.Helper()
	return f.CreateMember(ctx, assocCode, email, func(m *models.Member) {
		m.FormToken = &token
		m.EmailSent = true
	})
}

// CreateAdmin inserts an admin account with the given plaintext password.
func (f *Fixtures) CreateAdmin(ctx context.Context, username, email, password string) models.Admin {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	now := time.Now().UTC()
	a := models.Admin{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("admins").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test admin: %v", err)
	}
	return a
}

// TimePtr returns a pointer to t, for filling optional date fields.
func TimePtr(t time.Time) *time.Time {
	return &t
}
