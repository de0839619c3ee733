package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/model"
)

// Stored forms for boolean fields
const (
	StoredTrue  = "1"
	StoredFalse = "0"
)

// dateLayouts are tried in order when parsing date strings
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Mon Jan 2 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// Coerce converts a non-nil raw value into the canonical stored form for def
func Coerce(def model.FieldDef, raw interface{}) (string, error) {
	switch def.Type {
	case model.FieldTypeInteger:
		return coerceInteger(def.Name, raw)
	case model.FieldTypeBoolean:
		return coerceBoolean(raw), nil
	case model.FieldTypeDateString:
		return coerceDate(def.Name, raw)
	case model.FieldTypeString:
		return coerceString(raw), nil
	default:
		return "", errors.Validation(def.Name, fmt.Sprintf("unknown field type %q", def.Type))
	}
}

func coerceInteger(field string, raw interface{}) (string, error) {
	notInteger := errors.Validation(field, "is not of type integer")

	switch v := raw.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return coerceUnsigned(uint64(v), notInteger)
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return coerceUnsigned(v, notInteger)
	case float32:
		return coerceIntegralFloat(float64(v), notInteger)
	case float64:
		return coerceIntegralFloat(v, notInteger)
	case json.Number:
		return coerceIntegerString(v.String(), notInteger)
	case string:
		return coerceIntegerString(v, notInteger)
	default:
		return "", notInteger
	}
}

// stored integers are int64
func coerceUnsigned(u uint64, notInteger error) (string, error) {
	if u > math.MaxInt64 {
		return "", notInteger
	}
	return strconv.FormatUint(u, 10), nil
}

// 2^63 itself is out of range, hence >= on the upper bound
func coerceIntegralFloat(f float64, notInteger error) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return "", notInteger
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return "", notInteger
	}
	return strconv.FormatInt(int64(f), 10), nil
}

func coerceIntegerString(s string, notInteger error) (string, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return "", notInteger
	}
	return strconv.FormatInt(n, 10), nil
}

// coerceBoolean never fails: truthy non-zero input is 1, anything else 0
func coerceBoolean(raw interface{}) string {
	if Truthy(raw) {
		return StoredTrue
	}
	return StoredFalse
}

// Truthy reports whether raw counts as a set flag: true, non-zero numbers and
// non-empty strings other than false-like or zero-like text.
func Truthy(raw interface{}) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int8:
		return v != 0
	case int16:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case uint:
		return v != 0
	case uint8:
		return v != 0
	case uint16:
		return v != 0
	case uint32:
		return v != 0
	case uint64:
		return v != 0
	case float32:
		return v != 0 && !math.IsNaN(float64(v))
	case float64:
		return v != 0 && !math.IsNaN(v)
	case json.Number:
		return Truthy(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return true
	default:
		return raw != nil
	}
}

func coerceDate(field string, raw interface{}) (string, error) {
	switch v := raw.(type) {
	case time.Time:
		return model.FormatDate(v), nil
	case *time.Time:
		if v == nil {
			break
		}
		return model.FormatDate(*v), nil
	case string:
		if t, ok := ParseDate(v); ok {
			return model.FormatDate(t), nil
		}
		return "", errors.Validation(field, fmt.Sprintf("is not a parseable date string (%s)", v))
	}
	return "", errors.Validation(field, fmt.Sprintf("is not a parseable date string (%v)", raw))
}

// ParseDate parses s with the accepted date layouts. Zone-less inputs are UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func coerceString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
