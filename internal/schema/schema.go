// Package schema defines the wire-level data model shared with the Life-Planner
// backend: activity categories, their custom field definitions, and the
// exercises that carry values for those fields.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FieldType enumerates the supported custom field types.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multi_select"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeDate        FieldType = "date"
	FieldTypeDuration    FieldType = "duration"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeSelect, FieldTypeMultiSelect,
		FieldTypeCheckbox, FieldTypeDate, FieldTypeDuration:
		return true
	}
	return false
}

// RequiresOptions reports whether the type needs a declared option list.
func (t FieldType) RequiresOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeMultiSelect
}

// ActivityCategory is a user-scoped grouping of exercises, e.g. "Musculation".
// Default categories are seeded by the system and cannot be deleted.
type ActivityCategory struct {
	ID           int               `json:"id"`
	Name         string            `json:"name"`
	Icon         string            `json:"icon,omitempty"`
	Color        string            `json:"color,omitempty"`
	IsDefault    bool              `json:"is_default"`
	IsFavorite   bool              `json:"is_favorite"`
	UserID       *int              `json:"user_id,omitempty"`
	CustomFields []FieldDefinition `json:"custom_fields"`
	CreatedAt    time.Time         `json:"created_at"`
}

// FieldByID returns the field definition with the given id, if present.
func (c ActivityCategory) FieldByID(fieldID int) (FieldDefinition, bool) {
	for _, f := range c.CustomFields {
		if f.ID == fieldID {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// FieldDefinition describes one dynamic attribute within a category.
type FieldDefinition struct {
	ID             int       `json:"id"`
	ActivityTypeID int       `json:"activity_type_id"`
	Name           string    `json:"name"`
	FieldType      FieldType `json:"field_type"`
	Options        []string  `json:"options,omitempty"`
	Unit           string    `json:"unit,omitempty"`
	Placeholder    string    `json:"placeholder,omitempty"`
	DefaultValue   string    `json:"default_value,omitempty"`
	IsRequired     bool      `json:"is_required"`
	Order          int       `json:"order"`
	CreatedAt      time.Time `json:"created_at"`
}

var (
	// ErrInvalidFieldType is returned for an unknown field type.
	ErrInvalidFieldType = errors.New("invalid field type")
	// ErrOptionsRequired is returned when a select/multi_select field has no options.
	ErrOptionsRequired = errors.New("options required for select fields")
)

// Validate checks the invariants a field definition must satisfy before it is
// sent to the backend.
func (f FieldDefinition) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("field name is required")
	}
	if !f.FieldType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFieldType, f.FieldType)
	}
	if f.FieldType.RequiresOptions() && len(f.Options) == 0 {
		return fmt.Errorf("%w (field %q)", ErrOptionsRequired, f.Name)
	}
	return nil
}

// Exercise is the entity carrying a sparse set of custom field values.
type Exercise struct {
	ID                   int          `json:"id"`
	Name                 string       `json:"name"`
	Description          string       `json:"description,omitempty"`
	ActivityType         string       `json:"activity_type"`
	CustomActivityTypeID *int         `json:"custom_activity_type_id,omitempty"`
	MuscleGroup          string       `json:"muscle_group,omitempty"`
	Equipment            string       `json:"equipment,omitempty"`
	IsCompound           bool         `json:"is_compound"`
	UserID               *int         `json:"user_id,omitempty"`
	FieldValues          []FieldValue `json:"field_values"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// FieldValueFor returns the value record referencing the given field, if any.
// At most one value exists per (exercise, field) pair.
func (e Exercise) FieldValueFor(fieldID int) (FieldValue, bool) {
	for _, fv := range e.FieldValues {
		if fv.FieldID == fieldID {
			return fv, true
		}
	}
	return FieldValue{}, false
}

// CategoryID returns the custom activity type id, or 0 when the exercise only
// carries a legacy activity type.
func (e Exercise) CategoryID() int {
	if e.CustomActivityTypeID == nil {
		return 0
	}
	return *e.CustomActivityTypeID
}

// FieldValue holds one encoded value for one field of one exercise. The value
// is an opaque string interpreted according to the field's declared type; a nil
// value means "unset". The backend resolves the field definition inline.
type FieldValue struct {
	ID         int             `json:"id"`
	ExerciseID int             `json:"exercise_id"`
	FieldID    int             `json:"field_id"`
	Value      *string         `json:"value"`
	Field      FieldDefinition `json:"field"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Raw returns the encoded string and whether a value is present.
func (v FieldValue) Raw() (string, bool) {
	if v.Value == nil {
		return "", false
	}
	return *v.Value, true
}
