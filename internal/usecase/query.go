package usecase

import (
	"net/url"
	"unicode/utf8"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// minutePrecisionLen is the length of a "YYYY-MM-DDTHH:MM" timestamp.
const minutePrecisionLen = 16

// NormalizeTimestamp appends ":00" to a minute-precision timestamp. Any
// other input is returned unchanged; the time zone is never touched.
func NormalizeTimestamp(ts string) string {
	if utf8.RuneCountInString(ts) == minutePrecisionLen {
		return ts + ":00"
	}
	return ts
}

// BuildQuery maps criteria to GET /logs parameters. Empty fields are left
// out entirely, so all-empty criteria produce an empty set.
func BuildQuery(c domain.FilterCriteria) url.Values {
	params := url.Values{}
	for _, f := range domain.FilterFields {
		v := c.Get(f)
		if v == "" {
			continue
		}
		if f == domain.FieldFromTs || f == domain.FieldToTs {
			v = NormalizeTimestamp(v)
		}
		params.Set(string(f), v)
	}
	return params
}
