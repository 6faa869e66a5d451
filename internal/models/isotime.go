// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package models

import (
	"fmt"
	"strings"
	"time"
)

// ISOTime is a time.Time that serializes as a zone-less ISO-8601 local
// timestamp ("2026-05-01T18:30:00", with microseconds when present). This is
// the format already found in existing items.json and bids.json files.
// Zoned RFC 3339 values are accepted on input.
type ISOTime struct {
	time.Time
}

const (
	isoSeconds = "2006-01-02T15:04:05"
	isoMicros  = "2006-01-02T15:04:05.000000"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	isoSeconds,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NewISOTime wraps t.
func NewISOTime(t time.Time) ISOTime {
	return ISOTime{Time: t}
}

// ParseISOTime parses any accepted layout. Values without a zone are local time.
func ParseISOTime(s string) (ISOTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return ISOTime{Time: t}, nil
		}
	}
	return ISOTime{}, fmt.Errorf("invalid ISO-8601 time %q", s)
}

// String formats the time the way it is written to disk.
func (t ISOTime) String() string {
	if t.IsZero() {
		return ""
	}
	local := t.Local()
	if local.Nanosecond()/1000 != 0 {
		return local.Format(isoMicros)
	}
	return local.Format(isoSeconds)
}

func (t ISOTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *ISOTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseISOTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
