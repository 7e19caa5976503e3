package transform

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/andys/customer_import/customer"
	"github.com/frankban/quicktest"
)

func str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func sample() customer.Customer {
	return customer.Customer{
		ID:        "1",
		FirstName: str("jane"),
		LastName:  str("  van doe "),
		Email:     str("Jane@Example.COM"),
		Gender:    str("female"),
		ContactNo: str("555-0100"),
		Country:   str("nz"),
		DOB:       str("1990-01-02"),
	}
}

func TestIdentity(t *testing.T) {
	c := quicktest.New(t)
	rec := sample()
	out, err := Identity.Transform(rec)
	c.Assert(err, quicktest.IsNil)
	c.Assert(out, quicktest.DeepEquals, rec)
}

func TestNormalizer(t *testing.T) {
	c := quicktest.New(t)
	out, err := Normalizer{}.Transform(sample())
	c.Assert(err, quicktest.IsNil)
	c.Assert(out.FirstName.String, quicktest.Equals, "Jane")
	c.Assert(out.LastName.String, quicktest.Equals, "Van Doe")
	c.Assert(out.Email.String, quicktest.Equals, "jane@example.com")
	c.Assert(out.Gender.String, quicktest.Equals, "Female")
	c.Assert(out.Country.String, quicktest.Equals, "NZ")
}

func TestNormalizer_KeepsNull(t *testing.T) {
	c := quicktest.New(t)
	out, err := Normalizer{}.Transform(customer.Customer{ID: "2"})
	c.Assert(err, quicktest.IsNil)
	c.Assert(out.FirstName.Valid, quicktest.IsFalse)
	c.Assert(out.Country.Valid, quicktest.IsFalse)
}

func TestValidator(t *testing.T) {
	c := quicktest.New(t)
	v := Validator{}

	_, err := v.Transform(sample())
	c.Assert(err, quicktest.IsNil)

	bad := sample()
	bad.Email = str("not-an-email")
	_, err = v.Transform(bad)
	c.Assert(errors.Is(err, ErrTransform), quicktest.IsTrue)
	c.Assert(err, quicktest.ErrorMatches, `transform failed for record 1: invalid email "not-an-email"`)

	bad = sample()
	bad.DOB = str("31st of never")
	_, err = v.Transform(bad)
	c.Assert(errors.Is(err, ErrTransform), quicktest.IsTrue)

	short := customer.Customer{ID: "3", FirstName: str("x")}
	_, err = v.Transform(short)
	c.Assert(err, quicktest.IsNil)
}

func TestValidator_CustomLayouts(t *testing.T) {
	c := quicktest.New(t)
	v := Validator{DateLayouts: []string{"02.01.2006"}}
	rec := sample()
	rec.DOB = str("02.01.1990")
	_, err := v.Transform(rec)
	c.Assert(err, quicktest.IsNil)

	rec.DOB = str("1990-01-02")
	_, err = v.Transform(rec)
	c.Assert(err, quicktest.Not(quicktest.IsNil))
}

func TestChain_StopsAtFirstError(t *testing.T) {
	c := quicktest.New(t)
	calls := 0
	counter := Func(func(rec customer.Customer) (customer.Customer, error) {
		calls++
		return rec, nil
	})
	failing := Func(func(rec customer.Customer) (customer.Customer, error) {
		return rec, errors.New("boom")
	})

	_, err := Chain{counter, failing, counter}.Transform(sample())
	c.Assert(calls, quicktest.Equals, 1)
	c.Assert(errors.Is(err, ErrTransform), quicktest.IsTrue)
	c.Assert(err, quicktest.ErrorMatches, "transform failed for record 1: boom")
}

func TestChain_Applies(t *testing.T) {
	c := quicktest.New(t)
	out, err := Chain{Normalizer{}, nil, Validator{}}.Transform(sample())
	c.Assert(err, quicktest.IsNil)
	c.Assert(out.Email.String, quicktest.Equals, "jane@example.com")
}

func TestAnonymize_ReplacesFields(t *testing.T) {
	c := quicktest.New(t)
	a, err := NewAnonymizer([]string{"email", "firstName", "dob"}, 42)
	c.Assert(err, quicktest.IsNil)

	rec := sample()
	out, err := a.Transform(rec)
	c.Assert(err, quicktest.IsNil)
	c.Assert(out.Email.String, quicktest.Not(quicktest.Equals), "Jane@Example.COM")
	c.Assert(out.FirstName.String, quicktest.Not(quicktest.Equals), "jane")
	c.Assert(out.DOB.String, quicktest.Matches, `\d{4}-\d{2}-\d{2}`)
	c.Assert(out.ID, quicktest.Equals, "1")
	c.Assert(out.LastName, quicktest.Equals, rec.LastName)
}

func TestAnonymize_HandlesNullAndEmpty(t *testing.T) {
	c := quicktest.New(t)
	a, err := NewAnonymizer([]string{"email", "country"}, 1)
	c.Assert(err, quicktest.IsNil)

	rec := customer.Customer{ID: "5", Email: str("")}
	out, err := a.Transform(rec)
	c.Assert(err, quicktest.IsNil)
	c.Assert(out.Email, quicktest.Equals, str(""))
	c.Assert(out.Country.Valid, quicktest.IsFalse)
}

func TestNewAnonymizer_RejectsUnknownFields(t *testing.T) {
	c := quicktest.New(t)
	_, err := NewAnonymizer([]string{"shoeSize"}, 0)
	c.Assert(err, quicktest.ErrorMatches, `unknown field "shoeSize"`)
	_, err = NewAnonymizer([]string{"id"}, 0)
	c.Assert(err, quicktest.ErrorMatches, "the id field can't be anonymized")
}
