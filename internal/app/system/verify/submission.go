// internal/app/system/verify/submission.go
package verify

import (
	"errors"
	"reflect"
	"strings"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"github.com/dalemusser/membersverify/internal/app/system/normalize"
	"github.com/go-playground/validator/v10"
)

// Submission is the plaintext of a sealed onboarding form.
type Submission struct {
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"required,max=100"`
	HomeAddress    string `json:"homeAddress" validate:"required,max=300"`
	Identification string `json:"identification" validate:"required,max=64"`
	DOB            string `json:"dob" validate:"required,max=32"`
	IDImage        string `json:"idImage" validate:"required"`
}

func (s *Submission) normalize() {
	s.FirstName = normalize.Name(s.FirstName)
	s.LastName = normalize.Name(s.LastName)
	s.HomeAddress = normalize.Name(s.HomeAddress)
	s.Identification = normalize.Identification(s.Identification)
	s.DOB = strings.TrimSpace(s.DOB)
	s.IDImage = strings.TrimSpace(s.IDImage)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and reports failing fields by their JSON
// names, in declaration order.
func check(v *validator.Validate, s *Submission) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &apierr.ValidationError{Fields: fields}
}
