// Package codec maps between typed custom field values and the single string
// encoding the backend stores per field. Decoding is total: malformed input
// degrades to "unset" (or the type's neutral value) instead of failing, because
// stored values are only loosely validated server-side and a field may change
// type after values were written under an older definition.
package codec

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"example.com/lifeplanner/internal/observability"
	"example.com/lifeplanner/internal/schema"
)

// Value is one decoded custom field value.
type Value interface {
	// Type reports the field type that produced the value.
	Type() schema.FieldType
	// Display renders the value the way list views show it.
	Display() string
	// Matches evaluates the type's filter predicate against raw user input.
	Matches(input string) bool
}

// Text is a free-form string value.
type Text string

func (Text) Type() schema.FieldType { return schema.FieldTypeText }
func (t Text) Display() string      { return string(t) }

// Matches does case-insensitive substring containment.
func (t Text) Matches(input string) bool {
	return strings.Contains(strings.ToLower(string(t)), strings.ToLower(input))
}

// Number is a decimal value.
type Number float64

func (Number) Type() schema.FieldType { return schema.FieldTypeNumber }
func (n Number) Display() string      { return strconv.FormatFloat(float64(n), 'f', -1, 64) }

// Matches does substring containment on the displayed string, not numeric
// comparison, mirroring how the list view filters what it renders.
func (n Number) Matches(input string) bool {
	return strings.Contains(n.Display(), strings.TrimSpace(input))
}

// Duration is a length of time in whole seconds.
type Duration int64

func (Duration) Type() schema.FieldType { return schema.FieldTypeDuration }
func (d Duration) Display() string      { return strconv.FormatInt(int64(d), 10) }

// Matches does substring containment on the displayed string, like Number.
func (d Duration) Matches(input string) bool {
	return strings.Contains(d.Display(), strings.TrimSpace(input))
}

// Date is an ISO calendar date kept in its encoded form.
type Date string

func (Date) Type() schema.FieldType { return schema.FieldTypeDate }
func (d Date) Display() string      { return string(d) }

// Matches requires exact string equality.
func (d Date) Matches(input string) bool {
	return string(d) == strings.TrimSpace(input)
}

// Checkbox is a boolean value.
type Checkbox bool

func (Checkbox) Type() schema.FieldType { return schema.FieldTypeCheckbox }

func (c Checkbox) Display() string {
	if c {
		return "true"
	}
	return "false"
}

// Matches requires exact equality with the displayed literal.
func (c Checkbox) Matches(input string) bool {
	return c.Display() == strings.TrimSpace(input)
}

// Select is a single chosen option. Values outside the field's declared option
// list are kept and displayed as-is, so entities keep matching by their legacy
// value after an option is removed from the definition.
type Select string

func (Select) Type() schema.FieldType { return schema.FieldTypeSelect }
func (s Select) Display() string      { return string(s) }

// Matches requires exact, case-insensitive equality.
func (s Select) Matches(input string) bool {
	return strings.EqualFold(string(s), strings.TrimSpace(input))
}

// MultiSelect is an ordered set of chosen options.
type MultiSelect []string

func (MultiSelect) Type() schema.FieldType { return schema.FieldTypeMultiSelect }
func (m MultiSelect) Display() string      { return strings.Join(m, ", ") }

// Matches splits the input on commas and reports whether any element is a
// case-insensitive substring of any stored option. An empty selection never
// matches.
func (m MultiSelect) Matches(input string) bool {
	for _, part := range strings.Split(input, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		for _, stored := range m {
			if strings.Contains(strings.ToLower(stored), part) {
				return true
			}
		}
	}
	return false
}

// Decode converts an encoded string into a typed value. The boolean is false
// when the input cannot be read as the given type, which callers must treat as
// "unset". Decode never fails for text and select; malformed multi_select
// degrades to an empty selection rather than unset.
func Decode(fieldType schema.FieldType, raw string) (Value, bool) {
	switch fieldType {
	case schema.FieldTypeText:
		return Text(raw), true
	case schema.FieldTypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			observability.RecordDecodeFailure(string(fieldType))
			return nil, false
		}
		return Number(f), true
	case schema.FieldTypeDuration:
		secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			observability.RecordDecodeFailure(string(fieldType))
			return nil, false
		}
		return Duration(secs), true
	case schema.FieldTypeDate:
		trimmed := strings.TrimSpace(raw)
		if _, err := time.Parse("2006-01-02", trimmed); err != nil {
			observability.RecordDecodeFailure(string(fieldType))
			return nil, false
		}
		return Date(trimmed), true
	case schema.FieldTypeCheckbox:
		switch raw {
		case "true":
			return Checkbox(true), true
		case "false":
			return Checkbox(false), true
		}
		observability.RecordDecodeFailure(string(fieldType))
		return nil, false
	case schema.FieldTypeSelect:
		return Select(raw), true
	case schema.FieldTypeMultiSelect:
		var options []string
		if err := json.Unmarshal([]byte(raw), &options); err != nil {
			observability.RecordDecodeFailure(string(fieldType))
			return MultiSelect{}, true
		}
		if options == nil {
			options = []string{}
		}
		return MultiSelect(options), true
	}
	observability.RecordDecodeFailure(string(fieldType))
	return nil, false
}

// Encode converts a typed value back into its stored string form.
// Encode(Decode(raw)) returns raw for every well-formed raw, up to numeric
// formatting.
func Encode(v Value) string {
	switch val := v.(type) {
	case MultiSelect:
		data, err := json.Marshal([]string(val))
		if err != nil {
			return "[]"
		}
		return string(data)
	default:
		return v.Display()
	}
}

// DecodeFieldValue decodes a wire-level field value record using its resolved
// field definition. An absent value decodes to unset.
func DecodeFieldValue(fv schema.FieldValue) (Value, bool) {
	raw, ok := fv.Raw()
	if !ok {
		return nil, false
	}
	return Decode(fv.Field.FieldType, raw)
}
