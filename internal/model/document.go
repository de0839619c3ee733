package model

import "fmt"

// Document is a free-form tenant metadata record (team, user or channel)
type Document map[string]interface{}

// ID returns the document's id rendered as a string, or "" if unset
func (d Document) ID() string {
	v, ok := d["id"]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}
