package wallclock

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateTime is a naive local date-time that travels as "YYYY-MM-DDTHH:MM:SS"
// in JSON and maps to a TIMESTAMP column.
type DateTime struct {
	time.Time
}

func NewDateTime(t time.Time) DateTime {
	return DateTime{From(t)}
}

func (d DateTime) String() string {
	return Format(d.Time)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON reads the zone-less form, falling back to RFC 3339 whose
// offset is dropped and wall clock kept.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{ISOLayout, time.RFC3339Nano, DateTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = From(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date-time %q, expected %s", s, ISOLayout)
}

func (d *DateTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = From(v)
		return nil
	case nil:
		d.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into wallclock.DateTime", src)
}

func (d DateTime) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}
