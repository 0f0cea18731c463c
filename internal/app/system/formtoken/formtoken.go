// internal/app/system/formtoken/formtoken.go
package formtoken

import (
	"context"
	"errors"
	"fmt"

	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/google/uuid"
)

// Repository is the slice of the roster store the issuer needs.
type Repository interface {
	SetFormToken(ctx context.Context, uniqueID, token string) (*models.Member, error)
}

// Issuer mints single-owner form tokens for roster members.
type Issuer struct {
	repo     Repository
	newToken func() string
}

// New returns an Issuer backed by repo. Tokens are random v4 UUIDs.
func New(repo Repository) *Issuer {
	return &Issuer{repo: repo, newToken: uuid.NewString}
}

// Issue stores a fresh token on the member with the given unique id and
// returns it with the updated record. Any token the member held before is
// invalidated by the overwrite.
func (i *Issuer) Issue(ctx context.Context, uniqueID string) (string, *models.Member, error) {
	if uniqueID == "" {
		return "", nil, apierr.ErrRecordNotFound
	}

	// A collision on the token index is astronomically unlikely; one retry
	// with a new token is enough.
	for attempt := 0; attempt < 2; attempt++ {
		token := i.newToken()
		m, err := i.repo.SetFormToken(ctx, uniqueID, token)
		switch {
		case err == nil:
			return token, m, nil
		case errors.Is(err, memberstore.ErrDuplicateToken):
			continue
		case errors.Is(err, apierr.ErrRecordNotFound):
			return "", nil, err
		default:
			return "", nil, apierr.Upstream("issue form token", err)
		}
	}
	return "", nil, fmt.Errorf("issue form token: %w", memberstore.ErrDuplicateToken)
}
