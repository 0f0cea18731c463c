// internal/app/store/admins/store.go
package adminstore

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/normalize"
	"github.com/dalemusser/membersverify/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for admin passwords.
const PasswordCost = 10

var (
	// ErrDuplicate is returned when the username or email is already taken.
	ErrDuplicate = errors.New("an admin with this username or email already exists")
	// ErrNotFound is returned when no admin matches the lookup.
	ErrNotFound = errors.New("admin not found")
	// ErrWrongPassword is returned by Authenticate for a bad password.
	ErrWrongPassword = errors.New("wrong password")

	errBadUsername = errors.New("username must be 3 to 30 characters")
	errBadEmail    = errors.New("email address is not valid")
	errBadPassword = errors.New("password must be at least 8 characters")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("admins")}
}

// Create validates and inserts a new admin, hashing the plaintext password.
func (s *Store) Create(ctx context.Context, username, email, password string) (models.Admin, error) {
	username = normalize.Username(username)
	email = normalize.Email(email)

	if n := len(username); n < 3 || n > 30 {
		return models.Admin{}, errBadUsername
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.Admin{}, errBadEmail
	}
	if len(password) < 8 {
		return models.Admin{}, errBadPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return models.Admin{}, err
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
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Admin{}, ErrDuplicate
		}
		return models.Admin{}, err
	}
	return a, nil
}

// GetByUsername loads an admin by case-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	if err := s.c.FindOne(ctx, bson.M{"username": normalize.Username(username)}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Authenticate checks username and password. On success it records the
// login time and returns the admin. It returns ErrNotFound for an unknown
// username and ErrWrongPassword for a bad password.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.Admin, error) {
	a, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return a, ErrWrongPassword
	}

	now := time.Now().UTC()
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{
		"$set": bson.M{"last_login_at": now},
	}); err != nil {
		return nil, err
	}
	a.LastLoginAt = &now
	return a, nil
}

// EnsureSeed creates the admin when no account with that username exists.
// It never changes an existing account's password.
func (s *Store) EnsureSeed(ctx context.Context, username, email, password string) (*models.Admin, bool, error) {
	existing, err := s.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	a, err := s.Create(ctx, username, email, password)
	if err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

// Count returns the number of admin accounts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
