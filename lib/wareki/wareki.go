// Package wareki converts dates written in the Japanese era calendar
// (和暦, e.g. 令和7年12月22日) into Gregorian dates.
package wareki

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrDate = errors.New("unparseable date")

type Era struct {
	Name  string
	Start time.Time
}

// Eras is ordered from the most recent era.
var Eras = []Era{
	{Name: "令和", Start: time.Date(2019, time.May, 1, 0, 0, 0, 0, time.UTC)},
	{Name: "平成", Start: time.Date(1989, time.January, 8, 0, 0, 0, 0, time.UTC)},
	{Name: "昭和", Start: time.Date(1926, time.December, 25, 0, 0, 0, 0, time.UTC)},
}

var (
	kanjiDate = regexp.MustCompile(`(令和|平成|昭和)?\s*(元|\d{1,4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
	slashDate = regexp.MustCompile(`(\d{4})[/.-](\d{1,2})[/.-](\d{1,2})`)
)

func lookupEra(name string) (Era, bool) {
	for _, e := range Eras {
		if e.Name == name {
			return e, true
		}
	}
	return Era{}, false
}

// date builds a calendar date, rejecting values that time.Date would
// silently normalize (like February 30th).
func date(year, month, day int, loc *time.Location) (time.Time, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d is not a calendar date", ErrDate, year, month, day)
	}
	return t, nil
}

// Find locates the first date in text and returns it at midnight in loc.
// It understands era dates (令和7年12月22日, 平成元年1月8日), Gregorian
// kanji dates (2025年12月22日) and numeric dates (2025/12/22).
//
// Digits are expected to be half-width.
func Find(text string, loc *time.Location) (time.Time, error) {
	if m := kanjiDate.FindStringSubmatch(text); m != nil {
		year := 1
		if m[2] != "元" {
			year, _ = strconv.Atoi(m[2])
		}
		month, _ := strconv.Atoi(m[3])
		day, _ := strconv.Atoi(m[4])

		if m[1] == "" {
			if year < 1000 {
				return time.Time{}, fmt.Errorf("%w: year %d without an era", ErrDate, year)
			}
			return date(year, month, day, loc)
		}

		era, _ := lookupEra(m[1])
		if year < 1 {
			return time.Time{}, fmt.Errorf("%w: %s%d年", ErrDate, era.Name, year)
		}
		t, err := date(era.Start.Year()+year-1, month, day, loc)
		if err != nil {
			return time.Time{}, err
		}
		start := time.Date(era.Start.Year(), era.Start.Month(), era.Start.Day(), 0, 0, 0, 0, loc)
		if t.Before(start) {
			return time.Time{}, fmt.Errorf("%w: %s is before the start of %s", ErrDate, t.Format(time.DateOnly), era.Name)
		}
		return t, nil
	}

	if m := slashDate.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return date(year, month, day, loc)
	}

	return time.Time{}, fmt.Errorf("%w: no date in %q", ErrDate, text)
}

// Format renders t in the era calendar, like 令和7年12月22日.
func Format(t time.Time) (string, error) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for _, e := range Eras {
		if day.Before(e.Start) {
			continue
		}
		year := t.Year() - e.Start.Year() + 1
		yearText := strconv.Itoa(year)
		if year == 1 {
			yearText = "元"
		}
		return fmt.Sprintf("%s%s年%d月%d日", e.Name, yearText, t.Month(), t.Day()), nil
	}
	return "", fmt.Errorf("%w: %s predates known eras", ErrDate, t.Format(time.DateOnly))
}
