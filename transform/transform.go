package transform

import (
	"errors"
	"fmt"

	"github.com/andys/customer_import/customer"
)

// ErrTransform is matched by every transform Error
var ErrTransform = errors.New("transform failed")

// Error excludes a single record from its chunk
type Error struct {
	ID  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform failed for record %s: %v", e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrTransform
}

// Transformer is applied to every record before it is written
type Transformer interface {
	Transform(rec customer.Customer) (customer.Customer, error)
}

// Func adapts a plain function to Transformer
type Func func(rec customer.Customer) (customer.Customer, error)

func (f Func) Transform(rec customer.Customer) (customer.Customer, error) {
	return f(rec)
}

type identity struct{}

func (identity) Transform(rec customer.Customer) (customer.Customer, error) {
	return rec, nil
}

// Identity returns records unchanged
var Identity Transformer = identity{}

// Chain applies transformers in order and stops at the first failure
type Chain []Transformer

func (ch Chain) Transform(rec customer.Customer) (customer.Customer, error) {
	var err error
	for _, t := range ch {
		if t == nil {
			continue
		}
		rec, err = t.Transform(rec)
		if err != nil {
			if !errors.Is(err, ErrTransform) {
				err = &Error{ID: rec.ID, Err: err}
			}
			return rec, err
		}
	}
	return rec, nil
}
