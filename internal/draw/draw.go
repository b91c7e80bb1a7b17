package draw

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Kind is the game discriminator written to the "type" field of every record.
const Kind = "loto6"

const (
	MinNumber    = 1
	MaxNumber    = 43
	NumbersCount = 6
)

// ErrInvalidResult is returned when a Result violates one of its invariants.
var ErrInvalidResult = errors.New("invalid draw result")

// Result is the outcome of a single Loto6 drawing.
type Result struct {
	Kind    string `json:"type"`
	Round   int    `json:"round"`
	Date    string `json:"date"`
	Numbers []int  `json:"numbers"`
	Bonus   int    `json:"bonus"`
}

// New builds a validated Result, sorting a copy of numbers.
func New(round int, date time.Time, numbers []int, bonus int) (Result, error) {
	sorted := slices.Clone(numbers)
	slices.Sort(sorted)

	r := Result{
		Kind:    Kind,
		Round:   round,
		Date:    date.Format(time.DateOnly),
		Numbers: sorted,
		Bonus:   bonus,
	}
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	return r, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidResult, fmt.Sprintf(format, args...))
}

// Validate checks every invariant of a Result.
func (r Result) Validate() error {
	if r.Kind != Kind {
		return invalid("unexpected type %q", r.Kind)
	}
	if r.Round <= 0 {
		return invalid("round must be positive, got %d", r.Round)
	}
	if _, err := time.Parse(time.DateOnly, r.Date); err != nil {
		return invalid("round %d: unparseable date %q", r.Round, r.Date)
	}
	if len(r.Numbers) != NumbersCount {
		return invalid("round %d: expected %d numbers, got %d", r.Round, NumbersCount, len(r.Numbers))
	}
	for i, n := range r.Numbers {
		if n < MinNumber || n > MaxNumber {
			return invalid("round %d: number %d out of range", r.Round, n)
		}
		if i > 0 && r.Numbers[i-1] >= n {
			if r.Numbers[i-1] == n {
				return invalid("round %d: duplicate number %d", r.Round, n)
			}
			return invalid("round %d: numbers are not sorted", r.Round)
		}
	}
	if r.Bonus < MinNumber || r.Bonus > MaxNumber {
		return invalid("round %d: bonus %d out of range", r.Round, r.Bonus)
	}
	if slices.Contains(r.Numbers, r.Bonus) {
		return invalid("round %d: bonus %d is also a main number", r.Round, r.Bonus)
	}
	return nil
}

// Time returns the drawing date at midnight in loc.
func (r Result) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, r.Date, loc)
}

func (r Result) Equal(other Result) bool {
	return r.Kind == other.Kind &&
		r.Round == other.Round &&
		r.Date == other.Date &&
		r.Bonus == other.Bonus &&
		slices.Equal(r.Numbers, other.Numbers)
}

func (r Result) String() string {
	return fmt.Sprintf("第%d回 (%s) %v + %d", r.Round, r.Date, r.Numbers, r.Bonus)
}
