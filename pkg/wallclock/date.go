package wallclock

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date that travels as "YYYY-MM-DD" in JSON and maps to a
// DATE column.
type Date struct {
	time.Time
}

func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	// Accept full timestamps from clients that send Date.toISOString().
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = StartOfDay(v)
		return nil
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	case nil:
		d.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into wallclock.Date", src)
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// YearsOn returns the age in whole years on day.
func (d Date) YearsOn(day time.Time) int {
	years := day.Year() - d.Year()
	if day.Month() < d.Month() || (day.Month() == d.Month() && day.Day() < d.Day()) {
		years--
	}
	return years
}
