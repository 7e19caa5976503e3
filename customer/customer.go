package customer

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Fields is the positional schema of an input line
var Fields = []string{"id", "firstName", "lastName", "email", "gender", "contactNo", "country", "dob"}

// ErrMalformedRecord is matched by every MalformedRecordError
var ErrMalformedRecord = errors.New("malformed record")

// Customer is the unit of work flowing through the import.
// Absent attributes are NULL (Valid == false), not empty strings.
type Customer struct {
	ID        string
	FirstName sql.NullString
	LastName  sql.NullString
	Email     sql.NullString
	Gender    sql.NullString
	ContactNo sql.NullString
	Country   sql.NullString
	DOB       sql.NullString
}

// MalformedRecordError reports a line whose tokens don't fit the schema
type MalformedRecordError struct {
	Got    int
	Want   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed record: expected %d fields, got %d", e.Want, e.Got)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Mapper binds positional tokens to Customer attributes
type Mapper struct {
	// Strict rejects lines whose token count differs from the schema
	Strict bool
}

// Map converts raw tokens into a Customer
func (m Mapper) Map(tokens []string) (Customer, error) {
	if m.Strict && len(tokens) != len(Fields) {
		return Customer{}, &MalformedRecordError{Got: len(tokens), Want: len(Fields)}
	}

	values := make([]sql.NullString, len(Fields))
	for i := range Fields {
		if i < len(tokens) {
			values[i] = sql.NullString{String: strings.TrimSpace(tokens[i]), Valid: true}
		}
	}

	if values[0].String == "" {
		return Customer{}, &MalformedRecordError{Got: len(tokens), Want: len(Fields), Reason: "missing id"}
	}

	return Customer{
		ID:        values[0].String,
		FirstName: values[1],
		LastName:  values[2],
		Email:     values[3],
		Gender:    values[4],
		ContactNo: values[5],
		Country:   values[6],
		DOB:       values[7],
	}, nil
}

// Get returns the attribute named by one of Fields
func (c *Customer) Get(field string) (sql.NullString, bool) {
	p := c.field(field)
	if p == nil {
		if field == "id" {
			return sql.NullString{String: c.ID, Valid: true}, true
		}
		return sql.NullString{}, false
	}
	return *p, true
}

// Set overwrites the attribute named by one of Fields. The id can't be set.
func (c *Customer) Set(field string, v sql.NullString) bool {
	p := c.field(field)
	if p == nil {
		return false
	}
	*p = v
	return true
}

func (c *Customer) field(name string) *sql.NullString {
	switch name {
	case "firstName":
		return &c.FirstName
	case "lastName":
		return &c.LastName
	case "email":
		return &c.Email
	case "gender":
		return &c.Gender
	case "contactNo":
		return &c.ContactNo
	case "country":
		return &c.Country
	case "dob":
		return &c.DOB
	}
	return nil
}
