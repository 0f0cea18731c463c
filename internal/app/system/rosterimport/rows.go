// internal/app/system/rosterimport/rows.go
//
// Package rosterimport turns spreadsheet rows into member records. Rows come
// either as JSON objects keyed by column title (the admin UI parses the sheet
// client side) or as a raw CSV/XLSX grid whose first row is the header.
package rosterimport

import (
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/normalize"
	"github.com/dalemusser/membersverify/internal/domain/models"
)

// Row is one spreadsheet row keyed by column title. Values are strings or
// numbers (JSON numbers decode as float64).
type Row map[string]any

// excelEpoch is day zero of the 1900 date system, shifted to absorb the
// 1900 leap-year bug.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ExcelDate converts an Excel serial date to a UTC time. Missing, zero, or
// non-numeric values yield nil. Date strings in ISO or US form are accepted
// too, so CSV exports with formatted dates still import.
func ExcelDate(v any) *time.Time {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return serialToTime(x)
	case int:
		return serialToTime(float64(x))
	case int64:
		return serialToTime(float64(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialToTime(f)
		}
		for _, layout := range []string{"2006-01-02", "1/2/2006", "01/02/2006", "1/2/06", time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

// maxSerial is 9999-12-31, the last date Excel can represent.
const maxSerial = 2958465

func serialToTime(f float64) *time.Time {
	if f <= 0 || math.IsNaN(f) || f >= maxSerial+1 {
		return nil
	}
	days := math.Floor(f)
	ms := int64(math.Round((f - days) * 24 * 60 * 60 * 1000))
	t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
	return &t
}

// text renders a cell as a trimmed string. Whole numbers lose their
// trailing ".0" so zip codes and phone numbers survive a JSON round trip.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func (r Row) get(col string) any {
	if v, ok := r[col]; ok {
		return v
	}
	// Headers typed by hand vary in case ("Member Type" vs "Member type").
	for k, v := range r {
		if strings.EqualFold(strings.TrimSpace(k), col) {
			return v
		}
	}
	return nil
}

func (r Row) str(col string) string { return text(r.get(col)) }

func (r Row) blank() bool {
	for _, v := range r {
		if text(v) != "" {
			return false
		}
	}
	return true
}

// Member maps r onto a new member record. Workflow fields start unset.
func (r Row) Member() models.Member {
	return models.Member{
		UniqueID:            r.str(ColUniqueID),
		AssocCode:           normalize.AssocCode(r.str(ColAssocCode)),
		Association:         r.str(ColAssociation),
		AssociationLiveDate: ExcelDate(r.get(ColAssociationLiveDate)),
		AssociationManager:  r.str(ColAssociationManager),
		BoardMember:         r.str(ColBoardMember),
		MemberRole:          r.str(ColMemberRole),
		MemberType:          r.str(ColMemberType),
		TermStart:           ExcelDate(r.get(ColTermStart)),
		TermEnd:             ExcelDate(r.get(ColTermEnd)),
		FirstName:           normalize.Name(r.str(ColFirstName)),
		LastName:            normalize.Name(r.str(ColLastName)),
		HomeAddress:         r.str(ColHomeAddress),
		HomeCity:            r.str(ColHomeCity),
		HomeState:           r.str(ColHomeState),
		HomeZip:             r.str(ColHomeZip),
		MailingAddress:      r.str(ColMailingAddress),
		MailingCity:         r.str(ColMailingCity),
		MailingState:        r.str(ColMailingState),
		MailingZip:          r.str(ColMailingZip),
		PrimaryEmail:        normalize.Email(r.str(ColPrimaryEmail)),
		PrimaryPhone:        r.str(ColPrimaryPhone),
	}
}

// RowError describes one rejected row. Line is 1-based and counts the
// header when the source had one.
type RowError struct {
	Line   int
	Email  string
	Reason string
}

// maxExamples bounds how many bad rows are quoted back to the admin.
const maxExamples = 5

// Map validates rows and converts them to members. Blank rows are dropped.
// firstLine is the line number of rows[0]. When any row is invalid nothing
// is returned except a ValidationError naming the first few bad rows.
func Map(rows []Row, firstLine int) ([]models.Member, error) {
	if len(rows) > MaxRows {
		return nil, apierr.BadRequest(fmt.Sprintf("too many rows: %d (max %d)", len(rows), MaxRows))
	}

	var (
		out  []models.Member
		errs []RowError
	)
	for i, r := range rows {
		if r.blank() {
			continue
		}
		m := r.Member()
		line := firstLine + i
		switch {
		case m.FirstName == "" && m.LastName == "" && m.PrimaryEmail == "":
			errs = append(errs, RowError{Line: line, Reason: "missing name and email"})
		case m.PrimaryEmail != "" && !validEmail(m.PrimaryEmail):
			errs = append(errs, RowError{Line: line, Email: m.PrimaryEmail, Reason: "invalid email"})
		default:
			out = append(out, m)
		}
	}

	if len(errs) > 0 {
		return nil, rejection(errs)
	}
	return out, nil
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

func rejection(errs []RowError) *apierr.ValidationError {
	var b strings.Builder
	fmt.Fprintf(&b, "Upload rejected: %d row(s) are invalid.", len(errs))
	n := min(len(errs), maxExamples)
	fields := make([]string, 0, n)
	for _, e := range errs[:n] {
		email := e.Email
		if email == "" {
			email = "(no email on row)"
		}
		fmt.Fprintf(&b, " Line %d: %s (%s).", e.Line, e.Reason, email)
		fields = append(fields, fmt.Sprintf("line %d", e.Line))
	}
	return &apierr.ValidationError{Fields: fields, Message: b.String()}
}
