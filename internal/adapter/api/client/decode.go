package client

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// stringList normalizes one dimension of a response to an ordered list.
// Arrays keep their order. Objects yield their values: keys that are array
// indices first in ascending numeric order, then the rest in document
// order. A missing or null dimension yields an empty list.
func stringList(v *fastjson.Value) []string {
	out := []string{}
	if v == nil {
		return out
	}

	switch v.Type() {
	case fastjson.TypeArray:
		arr, _ := v.Array()
		for _, item := range arr {
			if s, ok := scalar(item); ok {
				out = append(out, s)
			}
		}
	case fastjson.TypeObject:
		obj, _ := v.Object()
		type entry struct {
			index int
			value *fastjson.Value
		}
		var indexed []entry
		var named []*fastjson.Value
		obj.Visit(func(key []byte, item *fastjson.Value) {
			if idx, ok := arrayIndex(string(key)); ok {
				indexed = append(indexed, entry{index: idx, value: item})
				return
			}
			named = append(named, item)
		})
		sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].index < indexed[j].index })
		for _, e := range indexed {
			if s, ok := scalar(e.value); ok {
				out = append(out, s)
			}
		}
		for _, item := range named {
			if s, ok := scalar(item); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// arrayIndex reports whether key is a canonical non-negative integer.
func arrayIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// scalar renders a string, number or boolean as text. Nulls and nested
// structures are skipped.
func scalar(v *fastjson.Value) (string, bool) {
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes()), true
	case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
		return v.String(), true
	}
	return "", false
}

func decodeFilterOptions(v *fastjson.Value) domain.FilterOptions {
	return domain.FilterOptions{
		Projects:      stringList(v.Get("projects")),
		Apps:          stringList(v.Get("apps")),
		Microservices: stringList(v.Get("microservices")),
		Levels:        stringList(v.Get("levels")),
	}
}

// decodeLogRecords reads the /logs payload. Anything but an array is an
// empty result.
func decodeLogRecords(v *fastjson.Value) []domain.LogRecord {
	if v.Type() != fastjson.TypeArray {
		return []domain.LogRecord{}
	}
	arr, _ := v.Array()
	records := make([]domain.LogRecord, 0, len(arr))
	for _, item := range arr {
		if item.Type() != fastjson.TypeObject {
			continue
		}
		records = append(records, domain.LogRecord{
			ID:           field(item, "id", "_id"),
			ProjectName:  field(item, "projectName"),
			AppName:      field(item, "appName"),
			Microservice: field(item, "microservice"),
			SourceApp:    field(item, "sourceApp"),
			Level:        field(item, "level"),
			Timestamp:    timestamp(item.Get("timestamp")),
			Message:      field(item, "message"),
		})
	}
	return records
}

// field returns the first present key rendered as text.
func field(v *fastjson.Value, keys ...string) string {
	for _, k := range keys {
		if item := v.Get(k); item != nil {
			if s, ok := scalar(item); ok {
				return s
			}
		}
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// timestamp accepts RFC 3339 strings, zone-less local strings and epoch
// milliseconds. Unparseable values yield the zero time.
func timestamp(v *fastjson.Value) time.Time {
	if v == nil {
		return time.Time{}
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		return time.UnixMilli(v.GetInt64()).UTC()
	case fastjson.TypeString:
		s := strings.TrimSpace(string(v.GetStringBytes()))
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// decodeLevelCounts accepts {"ERROR": 3} or [{"level"|"_id": "ERROR", "count": 3}].
func decodeLevelCounts(v *fastjson.Value) domain.LevelCounts {
	counts := domain.LevelCounts{}
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		obj.Visit(func(key []byte, item *fastjson.Value) {
			if item.Type() == fastjson.TypeNumber {
				counts[string(key)] = item.GetInt64()
			}
		})
	case fastjson.TypeArray:
		arr, _ := v.Array()
		for _, item := range arr {
			level := field(item, "level", "_id")
			if level == "" {
				continue
			}
			counts[level] += item.GetInt64("count")
		}
	}
	return counts
}
