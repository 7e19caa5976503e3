package transform

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/andys/customer_import/customer"
	"github.com/brianvoe/gofakeit/v7"
)

var dobStart = time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)
var dobEnd = time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC)

// Anonymizer replaces personal fields with generated values
type Anonymizer struct {
	fields []string
	mu     sync.Mutex
	faker  *gofakeit.Faker
}

// NewAnonymizer anonymizes the given fields. A seed of 0 picks a random one.
func NewAnonymizer(fields []string, seed uint64) (*Anonymizer, error) {
	for _, f := range fields {
		if f == "id" {
			return nil, fmt.Errorf("the id field can't be anonymized")
		}
		if _, ok := (&customer.Customer{}).Get(f); !ok {
			return nil, fmt.Errorf("unknown field %q", f)
		}
	}
	return &Anonymizer{fields: fields, faker: gofakeit.New(seed)}, nil
}

// Transform fakes each configured field. NULL and empty values are left alone.
func (a *Anonymizer) Transform(rec customer.Customer) (customer.Customer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, field := range a.fields {
		v, _ := rec.Get(field)
		if !v.Valid || v.String == "" {
			continue
		}
		rec.Set(field, sql.NullString{String: a.fake(field), Valid: true})
	}
	return rec, nil
}

func (a *Anonymizer) fake(field string) string {
	switch field {
	case "firstName":
		return a.faker.FirstName()
	case "lastName":
		return a.faker.LastName()
	case "email":
		return a.faker.Email()
	case "gender":
		return a.faker.Gender()
	case "contactNo":
		return a.faker.Phone()
	case "country":
		return a.faker.Country()
	case "dob":
		return a.faker.DateRange(dobStart, dobEnd).Format("2006-01-02")
	}
	return a.faker.Word()
}
