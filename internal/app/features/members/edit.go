// internal/app/features/members/edit.go
package members

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	memberstore "github.com/dalemusser/membersverify/internal/app/store/members"
	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/auditlog"
	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/app/system/normalize"
	"github.com/dalemusser/membersverify/internal/app/system/timeouts"
	"github.com/go-playground/validator/v10"
)

// date accepts an RFC 3339 timestamp or a bare YYYY-MM-DD day, as the admin
// UI sends either depending on the input widget.
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return apierr.BadRequest("dates must be YYYY-MM-DD or RFC 3339")
}

func (d *date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// updateRequest is the editable subset of a member. Workflow fields other
// than emailSent are ignored if sent.
type updateRequest struct {
	AssocCode           *string `json:"assocCode" validate:"omitempty,max=64"`
	Association         *string `json:"association" validate:"omitempty,max=256"`
	AssociationLiveDate *date   `json:"associationLiveDate"`
	AssociationManager  *string `json:"associationManager" validate:"omitempty,max=256"`
	BoardMember         *string `json:"boardMember" validate:"omitempty,max=256"`
	MemberRole          *string `json:"memberRole" validate:"omitempty,max=128"`
	MemberType          *string `json:"memberType" validate:"omitempty,max=128"`
	TermStart           *date   `json:"termStart"`
	TermEnd             *date   `json:"termEnd"`
	FirstName           *string `json:"firstName" validate:"omitempty,max=128"`
	LastName            *string `json:"lastName" validate:"omitempty,max=128"`
	HomeAddress         *string `json:"homeAddress" validate:"omitempty,max=512"`
	HomeCity            *string `json:"homeCity" validate:"omitempty,max=128"`
	HomeState           *string `json:"homeState" validate:"omitempty,max=64"`
	HomeZip             *string `json:"homeZip" validate:"omitempty,max=32"`
	MailingAddress      *string `json:"mailingAddress" validate:"omitempty,max=512"`
	MailingCity         *string `json:"mailingCity" validate:"omitempty,max=128"`
	MailingState        *string `json:"mailingState" validate:"omitempty,max=64"`
	MailingZip          *string `json:"mailingZip" validate:"omitempty,max=32"`
	PrimaryEmail        *string `json:"primaryEmail" validate:"omitempty,email"`
	PrimaryPhone        *string `json:"primaryPhone" validate:"omitempty,max=64"`
	Identification      *string `json:"identification" validate:"omitempty,max=64"`
	DOB                 *string `json:"dob" validate:"omitempty,max=32"`
	EmailSent           *bool   `json:"emailSent"`
}

func (u updateRequest) profile() memberstore.ProfileUpdate {
	p := memberstore.ProfileUpdate{
		AssocCode:           u.AssocCode,
		Association:         u.Association,
		AssociationLiveDate: u.AssociationLiveDate.ptr(),
		AssociationManager:  u.AssociationManager,
		BoardMember:         u.BoardMember,
		MemberRole:          u.MemberRole,
		MemberType:          u.MemberType,
		TermStart:           u.TermStart.ptr(),
		TermEnd:             u.TermEnd.ptr(),
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		HomeAddress:         u.HomeAddress,
		HomeCity:            u.HomeCity,
		HomeState:           u.HomeState,
		HomeZip:             u.HomeZip,
		MailingAddress:      u.MailingAddress,
		MailingCity:         u.MailingCity,
		MailingState:        u.MailingState,
		MailingZip:          u.MailingZip,
		PrimaryEmail:        u.PrimaryEmail,
		PrimaryPhone:        u.PrimaryPhone,
		Identification:      u.Identification,
		DOB:                 u.DOB,
		EmailSent:           u.EmailSent,
	}
	if p.PrimaryEmail != nil {
		e := normalize.Email(*p.PrimaryEmail)
		p.PrimaryEmail = &e
	}
	if p.Identification != nil {
		id := normalize.Identification(*p.Identification)
		p.Identification = &id
	}
	return p
}

// changed lists the json names of the fields present in the request, for
// the audit record.
func changed(raw map[string]json.RawMessage) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// HandleUpdate handles PUT /members/{id} and PUT /update/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := jsonutil.Decode(w, r, &raw, jsonutil.DefaultMaxBody); err != nil {
		h.ErrLog.Respond(w, r, "members: update body", err)
		return
	}
	b, _ := json.Marshal(raw)
	var req updateRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.ErrLog.Respond(w, r, "members: update fields", fieldErr(err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.ErrLog.Respond(w, r, "members: update validation", &apierr.ValidationError{Fields: validationFields(err)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Members.Update(ctx, id, req.profile()); err != nil {
		h.ErrLog.Respond(w, r, "members: update", storeErr("update member", err))
		return
	}
	h.AuditLog.MemberUpdated(ctx, r, auditlog.ActorFrom(r), id, changed(raw))

	jsonutil.OK(w, http.StatusOK, "updated successfully")
}

// HandleDelete handles DELETE /members/{id} and DELETE /deleteUser/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Members.Delete(ctx, id); err != nil {
		h.ErrLog.Respond(w, r, "members: delete", storeErr("delete member", err))
		return
	}
	h.AuditLog.MemberDeleted(ctx, r, auditlog.ActorFrom(r), id)

	jsonutil.OK(w, http.StatusOK, "User deleted successfully")
}

// fieldErr keeps client-facing errors from the date decoder and reports
// anything else as a type mismatch.
func fieldErr(err error) error {
	if errors.Is(err, apierr.ErrBadRequest) {
		return err
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apierr.BadRequest(fmt.Sprintf("field %q has the wrong type", typeErr.Field))
	}
	return apierr.BadRequest("request body is not a valid member update")
}

func validationFields(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fe.Field())
	}
	return out
}
