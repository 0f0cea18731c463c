// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member is one roster entry: a board member of an association who must
// verify their identity through the onboarding form.
//
// Workflow fields move in one direction: a form token is issued (outreach),
// the member submits the form, and the record becomes verified. Revision is
// bumped on every workflow write and used as a compare-and-swap guard.
type Member struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UniqueID string             `bson:"unique_id" json:"uniqueId"`

	AssocCode           string     `bson:"assoc_code,omitempty" json:"assocCode,omitempty"`
	Association         string     `bson:"association,omitempty" json:"association,omitempty"`
	AssociationLiveDate *time.Time `bson:"association_live_date,omitempty" json:"associationLiveDate,omitempty"`
	AssociationManager  string     `bson:"association_manager,omitempty" json:"associationManager,omitempty"`
	BoardMember         string     `bson:"board_member,omitempty" json:"boardMember,omitempty"`
	MemberRole          string     `bson:"member_role,omitempty" json:"memberRole,omitempty"`
	MemberType          string     `bson:"member_type,omitempty" json:"memberType,omitempty"`
	TermStart           *time.Time `bson:"term_start,omitempty" json:"termStart,omitempty"`
	TermEnd             *time.Time `bson:"term_end,omitempty" json:"termEnd,omitempty"`

	FirstName      string `bson:"first_name,omitempty" json:"firstName,omitempty"`
	LastName       string `bson:"last_name,omitempty" json:"lastName,omitempty"`
	HomeAddress    string `bson:"home_address,omitempty" json:"homeAddress,omitempty"`
	HomeCity       string `bson:"home_city,omitempty" json:"homeCity,omitempty"`
	HomeState      string `bson:"home_state,omitempty" json:"homeState,omitempty"`
	HomeZip        string `bson:"home_zip,omitempty" json:"homeZip,omitempty"`
	MailingAddress string `bson:"mailing_address,omitempty" json:"mailingAddress,omitempty"`
	MailingCity    string `bson:"mailing_city,omitempty" json:"mailingCity,omitempty"`
	MailingState   string `bson:"mailing_state,omitempty" json:"mailingState,omitempty"`
	MailingZip     string `bson:"mailing_zip,omitempty" json:"mailingZip,omitempty"`
	PrimaryEmail   string `bson:"primary_email,omitempty" json:"primaryEmail,omitempty"`
	PrimaryPhone   string `bson:"primary_phone,omitempty" json:"primaryPhone,omitempty"`

	Identification string `bson:"identification,omitempty" json:"identification,omitempty"`
	DOB            string `bson:"dob,omitempty" json:"dob,omitempty"`
	IDImage        string `bson:"id_image,omitempty" json:"idImage,omitempty"`

	// FormToken is nil when no token has been issued. The unique index on
	// form_token only covers string values, so absent tokens never collide.
	FormToken   *string    `bson:"form_token,omitempty" json:"formToken,omitempty"`
	FormFilled  bool       `bson:"form_filled" json:"formFilled"`
	Verified    bool       `bson:"verified" json:"verified"`
	EmailSent   bool       `bson:"email_sent" json:"emailSent"`
	EmailSentAt *time.Time `bson:"email_sent_at,omitempty" json:"emailSentAt,omitempty"`
	VerifiedAt  *time.Time `bson:"verified_at,omitempty" json:"verifiedAt,omitempty"`
	Revision    int64      `bson:"revision" json:"-"`

	// VerifiedToken is the form token the accepted submission arrived with.
	// A verified record only treats submissions under that token as replays.
	VerifiedToken string `bson:"verified_token,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Verification is the set of fields written when a submission is accepted.
type Verification struct {
	FirstName      string
	LastName       string
	HomeAddress    string
	Identification string
	DOB            string
	IDImage        string
}

// FullName joins first and last name for display.
func (m Member) FullName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// HasToken reports whether a live form token is stored on the record.
func (m Member) HasToken() bool {
	return m.FormToken != nil && *m.FormToken != ""
}
