package iso8601date

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"
)

type ISO8601date struct {
	datetime string
}

func (c ISO8601date) String() string {
	return string(c.datetime)
}
func Parse(s string) (ISO8601date, error) {
	ISO8601DateRegexString := `^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})([+-])(\d{2}):(\d{2})$`
	ISO8601DateRegex := regexp.MustCompile(ISO8601DateRegexString)

	if ISO8601DateRegex.MatchString(s) {
		return ISO8601date{s}, nil
	}
	return ISO8601date{}, errors.New("invalid iso8601 date format")

}
func (c ISO8601date) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.datetime)
}

func (c *ISO8601date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ISO8601date{
		datetime: s,
	}
	return nil
}

// Canonicalize formats t in UTC with an explicit "+00:00" offset (rather
// than "Z") so that the same instant always produces the same ISO8601date
// regardless of the host's local timezone or monotonic clock reading.
func Canonicalize(t time.Time) ISO8601date {
	s := t.UTC().Format("2006-01-02T15:04:05+00:00")
	d, err := Parse(s)
	if err != nil {
		// Parse only fails if the layout above stops matching the
		// package's own regex; that would be a bug in this function.
		panic("iso8601date: canonical format does not match Parse regex: " + err.Error())
	}
	return d
}
