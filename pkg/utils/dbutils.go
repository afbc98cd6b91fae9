package utils

import (
	"database/sql"
	"fmt"
	"time"
)

func NewSQLNullString(s string) sql.NullString {
	if len(s) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{
		String: s,
		Valid:  true,
	}
}

// GetTimeZone returns t's UTC offset in whole hours.
func GetTimeZone(t time.Time) int {
	_, offset := t.Zone()
	return offset / 3600
}

// ConvertTimeToLocal renders t in a fixed zone offset hours from UTC, for
// compliance report exports that must show local wall-clock time rather
// than the audit trail's stored UTC timestamps.
func ConvertTimeToLocal(t time.Time, offset time.Duration) time.Time {
	loc := time.FixedZone(fmt.Sprintf("UTC%+d", int(offset)), int((offset * time.Hour).Seconds()))
	return t.In(loc)
}
