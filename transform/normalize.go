package transform

import (
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/andys/customer_import/customer"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultDateLayouts are accepted for dob when no layouts are configured
var DefaultDateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006"}

// Normalizer tidies up casing and whitespace
type Normalizer struct{}

func (Normalizer) Transform(rec customer.Customer) (customer.Customer, error) {
	title := cases.Title(language.Und)
	rec.FirstName = mapValid(rec.FirstName, func(s string) string { return title.String(strings.TrimSpace(s)) })
	rec.LastName = mapValid(rec.LastName, func(s string) string { return title.String(strings.TrimSpace(s)) })
	rec.Email = mapValid(rec.Email, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	rec.Gender = mapValid(rec.Gender, func(s string) string { return title.String(strings.TrimSpace(s)) })
	rec.Country = mapValid(rec.Country, func(s string) string {
		s = strings.TrimSpace(s)
		if len(s) == 2 || len(s) == 3 {
			return strings.ToUpper(s)
		}
		return s
	})
	return rec, nil
}

func mapValid(v sql.NullString, fn func(string) string) sql.NullString {
	if !v.Valid {
		return v
	}
	return sql.NullString{String: fn(v.String), Valid: true}
}

// Validator rejects records with an unusable email or date of birth.
// Missing or empty values pass.
type Validator struct {
	DateLayouts []string
}

func (v Validator) Transform(rec customer.Customer) (customer.Customer, error) {
	if rec.Email.Valid && rec.Email.String != "" {
		if _, err := mail.ParseAddress(rec.Email.String); err != nil {
			return rec, &Error{ID: rec.ID, Err: fmt.Errorf("invalid email %q", rec.Email.String)}
		}
	}
	if rec.DOB.Valid && rec.DOB.String != "" {
		if !v.parsesDate(rec.DOB.String) {
			return rec, &Error{ID: rec.ID, Err: fmt.Errorf("invalid dob %q", rec.DOB.String)}
		}
	}
	return rec, nil
}

func (v Validator) parsesDate(s string) bool {
	layouts := v.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
