package parse

import (
	"errors"
	"fmt"
)

var ErrParse = errors.New("parse failure")

// Error describes why a source document could not be turned into a result.
type Error struct {
	// Source is the format being parsed, like "csv" or "html".
	Source string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %s", e.Source, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

const (
	reasonRound   = "round number not found"
	reasonNumbers = "incomplete drawing numbers"
	reasonBonus   = "bonus number not found"
	reasonDate    = "unparseable date"
	reasonTable   = "result table not found"
	reasonIndex   = "no csv file listed"
)

func failure(source, reason string, err error) error {
	return &Error{Source: source, Reason: reason, Err: err}
}
