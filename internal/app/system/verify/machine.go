// internal/app/system/verify/machine.go
package verify

import (
	"context"
	"errors"
	"strings"

	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/envelope"
	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Repository is the slice of the roster store the state machine needs.
type Repository interface {
	FindByFormToken(ctx context.Context, token string) (*models.Member, error)
	IdentificationTakenByOther(ctx context.Context, identification string, exclude primitive.ObjectID) (bool, error)
	ApplyVerification(ctx context.Context, id primitive.ObjectID, token string, revision int64, v models.Verification) (*models.Member, error)
}

// Result describes an accepted submission.
type Result struct {
	Member *models.Member
	// Replayed is true when the member was already verified under the same
	// token with the same identification and the submission was applied again.
	Replayed bool
}

// Machine moves a member from "token issued" to "verified".
type Machine struct {
	repo     Repository
	box      *envelope.Box
	validate *validator.Validate
	log      *zap.Logger
}

// New builds a Machine. box opens sealed submissions and sealed image URLs.
func New(repo Repository, box *envelope.Box, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{repo: repo, box: box, validate: newValidator(), log: logger}
}

// Submit verifies the member holding token using the sealed form payload.
//
// Failures: ErrInvalidToken (unknown or superseded token), envelope
// ErrDecryption, *ValidationError, ErrDuplicateIdentity, ErrUpstream.
// A failed submit leaves the record unchanged.
func (m *Machine) Submit(ctx context.Context, token, sealed string) (*Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierr.ErrInvalidToken
	}

	member, err := m.repo.FindByFormToken(ctx, token)
	if err != nil {
		if errors.Is(err, apierr.ErrRecordNotFound) {
			return nil, apierr.ErrInvalidToken
		}
		return nil, apierr.Upstream("find member by token", err)
	}

	var sub Submission
	if err := m.box.Open(sealed, &sub); err != nil {
		return nil, err
	}
	sub.normalize()
	if err := check(m.validate, &sub); err != nil {
		return nil, err
	}

	imageURL, err := m.resolveImage(sub.IDImage)
	if err != nil {
		return nil, err
	}

	// A verified record reopens only under a token issued after verification.
	replay := member.Verified && member.VerifiedToken == token
	if replay && member.Identification != sub.Identification {
		m.log.Warn("verified member resubmitted with different identification",
			zap.String("member_id", member.ID.Hex()))
		return nil, apierr.ErrInvalidToken
	}

	taken, err := m.repo.IdentificationTakenByOther(ctx, sub.Identification, member.ID)
	if err != nil {
		return nil, apierr.Upstream("check identification", err)
	}
	if taken {
		return nil, apierr.ErrDuplicateIdentity
	}

	updated, err := m.repo.ApplyVerification(ctx, member.ID, token, member.Revision, models.Verification{
		FirstName:      sub.FirstName,
		LastName:       sub.LastName,
		HomeAddress:    sub.HomeAddress,
		Identification: sub.Identification,
		DOB:            sub.DOB,
		IDImage:        imageURL,
	})
	switch {
	case err == nil:
	case errors.Is(err, memberstore.ErrRevisionConflict):
		return nil, apierr.ErrInvalidToken
	case errors.Is(err, apierr.ErrDuplicateIdentity):
		return nil, apierr.ErrDuplicateIdentity
	default:
		return nil, apierr.Upstream("apply verification", err)
	}

	return &Result{Member: updated, Replayed: replay}, nil
}

// resolveImage accepts either a plain http(s) URL or the sealed URL the
// upload endpoint returned, and yields the plain URL.
func (m *Machine) resolveImage(v string) (string, error) {
	if strings.HasPrefix(v, "https://") || strings.HasPrefix(v, "http://") {
		return v, nil
	}
	var url string
	if err := m.box.Open(v, &url); err != nil {
		return "", err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return "", &apierr.ValidationError{Fields: []string{"idImage"}}
	}
	return url, nil
}
