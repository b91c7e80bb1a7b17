package chrono

import (
	"time"
)

var tokyo *time.Location

func init() {
	var err error
	tokyo, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		// hosts without tzdata, JST has had no DST since 1951
		tokyo = time.FixedZone("JST", 9*60*60)
	}
}

// Tokyo returns a [*time.Location] for Asia/Tokyo, drawing dates are in this zone.
func Tokyo() *time.Location {
	return tokyo
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in Asia/Tokyo.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(tokyo)
}

// FixedTime is a TimeAPI that always returns the same instant.
type FixedTime time.Time

func (f FixedTime) Now() time.Time {
	return time.Time(f).In(tokyo)
}
