package model

import (
	"strconv"
	"time"
)

// Patch carries raw field values for create and update. A key mapped to nil
// clears that field; absent keys are left untouched.
type Patch map[string]interface{}

// Dog is a stored dog record decoded from its hash.
// Values hold int64 for integer fields, bool for boolean fields and string
// for string and date fields (dates as ISO-8601 instants).
type Dog struct {
	ID     int64                  `json:"id" yaml:"id"`
	Fields map[string]interface{} `json:"fields" yaml:"fields"`

	// ImageURL is a random member of the dog's photo set, filled on
	// single-dog reads only. Never persisted.
	ImageURL string `json:"imageURL,omitempty" yaml:"imageURL,omitempty"`
}

// Name returns the dog's name field
func (d *Dog) Name() string {
	s, _ := d.String(FieldName)
	return s
}

// String returns a string or date field
func (d *Dog) String(field string) (string, bool) {
	v, ok := d.Fields[field].(string)
	return v, ok
}

// Int returns an integer field
func (d *Dog) Int(field string) (int64, bool) {
	v, ok := d.Fields[field].(int64)
	return v, ok
}

// Bool returns a boolean field
func (d *Dog) Bool(field string) (bool, bool) {
	v, ok := d.Fields[field].(bool)
	return v, ok
}

// Has reports whether field is populated
func (d *Dog) Has(field string) bool {
	_, ok := d.Fields[field]
	return ok
}

// DecodeDog builds a Dog from raw hash contents. Unknown or undecodable
// fields are kept as their stored string.
func DecodeDog(raw map[string]string) *Dog {
	dog := &Dog{Fields: make(map[string]interface{}, len(raw))}
	for name, stored := range raw {
		def, ok := LookupField(name)
		if !ok {
			dog.Fields[name] = stored
			continue
		}
		switch def.Type {
		case FieldTypeInteger:
			if n, err := strconv.ParseInt(stored, 10, 64); err == nil {
				dog.Fields[name] = n
				continue
			}
		case FieldTypeBoolean:
			dog.Fields[name] = stored == "1"
			continue
		}
		dog.Fields[name] = stored
	}
	dog.ID, _ = dog.Int(FieldID)
	return dog
}

// Filter selects dogs whose indexed Field equals Value
type Filter struct {
	Field string      `json:"key" yaml:"key"`
	Value interface{} `json:"value" yaml:"value"`
}

// DateLayout is the canonical stored date form (JavaScript toISOString)
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatDate renders t in the canonical stored date form
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Midnight truncates t to the start of its UTC day
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
