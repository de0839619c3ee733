package model

// FieldType tags how a field's raw input is coerced before storage
type FieldType string

const (
	FieldTypeInteger    FieldType = "integer"
	FieldTypeString     FieldType = "string"
	FieldTypeBoolean    FieldType = "boolean"
	FieldTypeDateString FieldType = "datestring"
)

// FieldDef describes one dog field
type FieldDef struct {
	Name     string
	Type     FieldType
	Indexed  bool
	Required bool
}

// Field names referenced outside the schema table
const (
	FieldID             = "id"
	FieldName           = "name"
	FieldIsGood         = "isGood"
	FieldIsBad          = "isBad"
	FieldGoneDate       = "goneDate"
	FieldHereDate       = "hereDate"
	FieldIsHereEveryday = "isHereEveryday"
	FieldCreatedBy      = "createdBy"
)

// DogFields is the fixed dog schema. Order matters: saves walk it front to back.
var DogFields = []FieldDef{
	{Name: "birthMonth", Type: FieldTypeInteger, Indexed: true},
	{Name: "birthDay", Type: FieldTypeInteger, Indexed: true},
	{Name: "birthYear", Type: FieldTypeInteger, Indexed: true},
	{Name: "breed", Type: FieldTypeString, Indexed: true},
	{Name: FieldCreatedBy, Type: FieldTypeString},
	{Name: FieldGoneDate, Type: FieldTypeDateString, Indexed: true},
	{Name: FieldHereDate, Type: FieldTypeDateString, Indexed: true},
	{Name: FieldID, Type: FieldTypeInteger, Required: true},
	{Name: FieldIsGood, Type: FieldTypeBoolean, Indexed: true},
	{Name: FieldIsBad, Type: FieldTypeBoolean, Indexed: true},
	{Name: FieldIsHereEveryday, Type: FieldTypeBoolean, Indexed: true},
	{Name: "isHereMonday", Type: FieldTypeBoolean, Indexed: true},
	{Name: "isHereTuesday", Type: FieldTypeBoolean, Indexed: true},
	{Name: "isHereWednesday", Type: FieldTypeBoolean, Indexed: true},
	{Name: "isHereThursday", Type: FieldTypeBoolean, Indexed: true},
	{Name: "isHereFriday", Type: FieldTypeBoolean, Indexed: true},
	{Name: "isHereSaturday", Type: FieldTypeBoolean, Indexed: true},
	{Name: "isHereSunday", Type: FieldTypeBoolean, Indexed: true},
	{Name: "location", Type: FieldTypeString, Indexed: true},
	{Name: FieldName, Type: FieldTypeString, Indexed: true, Required: true},
	{Name: "owner", Type: FieldTypeString},
	{Name: "gender", Type: FieldTypeBoolean, Indexed: true}, // 1 = male, 0 = female
}

var dogFieldsByName = func() map[string]FieldDef {
	m := make(map[string]FieldDef, len(DogFields))
	for _, f := range DogFields {
		m[f.Name] = f
	}
	return m
}()

// LookupField returns the schema entry for name
func LookupField(name string) (FieldDef, bool) {
	f, ok := dogFieldsByName[name]
	return f, ok
}

// WeekdayField returns the recurring-presence field for a weekday index
// (0 = Sunday, matching time.Weekday).
func WeekdayField(day int) string {
	return [...]string{
		"isHereSunday",
		"isHereMonday",
		"isHereTuesday",
		"isHereWednesday",
		"isHereThursday",
		"isHereFriday",
		"isHereSaturday",
	}[day%7]
}
