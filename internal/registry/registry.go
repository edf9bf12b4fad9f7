// Package registry caches the user's activity categories and their field
// definitions, and applies mutations by patching the cache locally after the
// backend confirms them, so list views stay responsive without refetching.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"example.com/lifeplanner/internal/apiclient"
	"example.com/lifeplanner/internal/schema"
)

var (
	// ErrDefaultCategory is returned when a mutation targets a system-provided
	// category. Rejected locally, before any network call.
	ErrDefaultCategory = errors.New("default categories cannot be modified")
	// ErrCategoryNotFound is returned for an unknown category id.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrFieldNotFound is returned for an unknown field id.
	ErrFieldNotFound = errors.New("field not found")
)

// API is the call surface the registry needs from the resilient client.
type API interface {
	Do(ctx context.Context, method, path string, body, out interface{}, opts ...apiclient.RequestOption) error
}

// FieldInput describes a field definition to create.
type FieldInput struct {
	Name         string           `json:"name"`
	FieldType    schema.FieldType `json:"field_type"`
	Options      []string         `json:"options,omitempty"`
	Unit         string           `json:"unit,omitempty"`
	Placeholder  string           `json:"placeholder,omitempty"`
	DefaultValue string           `json:"default_value,omitempty"`
	IsRequired   bool             `json:"is_required"`
	Order        int              `json:"order"`
}

// Validate applies the field definition invariants client-side.
func (f FieldInput) Validate() error {
	return schema.FieldDefinition{
		Name:      f.Name,
		FieldType: f.FieldType,
		Options:   f.Options,
	}.Validate()
}

// CreateCategoryInput describes a category to create, optionally with an
// initial batch of fields.
type CreateCategoryInput struct {
	Name         string       `json:"name"`
	Icon         string       `json:"icon,omitempty"`
	Color        string       `json:"color,omitempty"`
	CustomFields []FieldInput `json:"custom_fields,omitempty"`
}

// UpdateCategoryInput carries a partial category update; nil fields are left
// unchanged.
type UpdateCategoryInput struct {
	Name  *string `json:"name,omitempty"`
	Icon  *string `json:"icon,omitempty"`
	Color *string `json:"color,omitempty"`
}

// ExerciseQuery narrows an exercise listing.
type ExerciseQuery struct {
	Search string
	Skip   int
	Limit  int
}

// Registry is the client-side cache of categories and exercises. The backend
// is the record of truth; every mutation goes to it first and the cache is
// patched only on success, never optimistically.
type Registry struct {
	api API

	mu         sync.Mutex
	categories []schema.ActivityCategory
	exercises  []schema.Exercise
	loaded     bool
}

// New constructs an empty Registry.
func New(api API) *Registry {
	return &Registry{api: api}
}

// Load fetches the category list, replacing the cache.
func (r *Registry) Load(ctx context.Context) error {
	var categories []schema.ActivityCategory
	if err := r.api.Do(ctx, http.MethodGet, "/workout/activity-types", nil, &categories); err != nil {
		return fmt.Errorf("load activity types: %w", err)
	}

	r.mu.Lock()
	r.categories = categories
	r.loaded = true
	r.mu.Unlock()
	return nil
}

// Loaded reports whether a category list has been fetched.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Categories returns a copy of the cached category list.
func (r *Registry) Categories() []schema.ActivityCategory {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.ActivityCategory, len(r.categories))
	copy(out, r.categories)
	return out
}

// CategoryByID looks up a cached category.
func (r *Registry) CategoryByID(id int) (schema.ActivityCategory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.ID == id {
			return c, true
		}
	}
	return schema.ActivityCategory{}, false
}

// FieldByID looks up a cached field definition across all categories.
func (r *Registry) FieldByID(fieldID int) (schema.FieldDefinition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if f, ok := c.FieldByID(fieldID); ok {
			return f, true
		}
	}
	return schema.FieldDefinition{}, false
}

// CreateCategory creates a category and appends it to the cache.
func (r *Registry) CreateCategory(ctx context.Context, input CreateCategoryInput) (schema.ActivityCategory, error) {
	for _, f := range input.CustomFields {
		if err := f.Validate(); err != nil {
			return schema.ActivityCategory{}, err
		}
	}

	var created schema.ActivityCategory
	if err := r.api.Do(ctx, http.MethodPost, "/workout/activity-types", input, &created); err != nil {
		return schema.ActivityCategory{}, fmt.Errorf("create category: %w", err)
	}

	r.mu.Lock()
	r.categories = append(r.categories, created)
	r.mu.Unlock()
	return created, nil
}

// UpdateCategory applies a partial update to a non-default category.
func (r *Registry) UpdateCategory(ctx context.Context, id int, input UpdateCategoryInput) (schema.ActivityCategory, error) {
	category, ok := r.CategoryByID(id)
	if !ok {
		return schema.ActivityCategory{}, ErrCategoryNotFound
	}
	if category.IsDefault {
		return schema.ActivityCategory{}, ErrDefaultCategory
	}

	var updated schema.ActivityCategory
	path := "/workout/activity-types/" + strconv.Itoa(id)
	if err := r.api.Do(ctx, http.MethodPut, path, input, &updated); err != nil {
		return schema.ActivityCategory{}, fmt.Errorf("update category: %w", err)
	}

	r.mu.Lock()
	for i := range r.categories {
		if r.categories[i].ID == id {
			r.categories[i] = updated
			break
		}
	}
	r.mu.Unlock()
	return updated, nil
}

// DeleteCategory removes a non-default category. The default guard fails
// locally without touching the network.
func (r *Registry) DeleteCategory(ctx context.Context, id int) error {
	category, ok := r.CategoryByID(id)
	if !ok {
		return ErrCategoryNotFound
	}
	if category.IsDefault {
		return ErrDefaultCategory
	}

	path := "/workout/activity-types/" + strconv.Itoa(id)
	if err := r.api.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	r.mu.Lock()
	kept := r.categories[:0]
	for _, c := range r.categories {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	r.categories = kept
	r.mu.Unlock()
	return nil
}

// ToggleFavorite flips the favorite flag on a category. The backend enforces a
// single favorite; the cache mirrors that by clearing the flag everywhere else.
func (r *Registry) ToggleFavorite(ctx context.Context, id int) (schema.ActivityCategory, error) {
	if _, ok := r.CategoryByID(id); !ok {
		return schema.ActivityCategory{}, ErrCategoryNotFound
	}

	var updated schema.ActivityCategory
	path := "/workout/activity-types/" + strconv.Itoa(id) + "/favorite"
	if err := r.api.Do(ctx, http.MethodPost, path, nil, &updated); err != nil {
		return schema.ActivityCategory{}, fmt.Errorf("toggle favorite: %w", err)
	}

	r.mu.Lock()
	for i := range r.categories {
		if r.categories[i].ID == id {
			r.categories[i] = updated
		} else if updated.IsFavorite {
			r.categories[i].IsFavorite = false
		}
	}
	r.mu.Unlock()
	return updated, nil
}

// AddField creates a field on a category and appends it to the cached
// definition. Invalid definitions are rejected before any network call.
func (r *Registry) AddField(ctx context.Context, categoryID int, input FieldInput) (schema.FieldDefinition, error) {
	if err := input.Validate(); err != nil {
		return schema.FieldDefinition{}, err
	}
	if _, ok := r.CategoryByID(categoryID); !ok {
		return schema.FieldDefinition{}, ErrCategoryNotFound
	}

	var created schema.FieldDefinition
	path := "/workout/activity-types/" + strconv.Itoa(categoryID) + "/fields"
	if err := r.api.Do(ctx, http.MethodPost, path, input, &created); err != nil {
		return schema.FieldDefinition{}, fmt.Errorf("add field: %w", err)
	}

	r.mu.Lock()
	for i := range r.categories {
		if r.categories[i].ID == categoryID {
			r.categories[i].CustomFields = append(r.categories[i].CustomFields, created)
			break
		}
	}
	r.mu.Unlock()
	return created, nil
}

// DeleteField removes a field definition. On success the field disappears from
// its category and every cached exercise loses its value for that field, so no
// stale reference survives without a full reload.
func (r *Registry) DeleteField(ctx context.Context, fieldID int) error {
	if _, ok := r.FieldByID(fieldID); !ok {
		return ErrFieldNotFound
	}

	path := "/workout/fields/" + strconv.Itoa(fieldID)
	if err := r.api.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete field: %w", err)
	}

	r.mu.Lock()
	for i := range r.categories {
		kept := make([]schema.FieldDefinition, 0, len(r.categories[i].CustomFields))
		for _, f := range r.categories[i].CustomFields {
			if f.ID != fieldID {
				kept = append(kept, f)
			}
		}
		r.categories[i].CustomFields = kept
	}
	for i := range r.exercises {
		kept := make([]schema.FieldValue, 0, len(r.exercises[i].FieldValues))
		for _, fv := range r.exercises[i].FieldValues {
			if fv.FieldID != fieldID {
				kept = append(kept, fv)
			}
		}
		r.exercises[i].FieldValues = kept
	}
	r.mu.Unlock()
	return nil
}

// LoadExercises fetches the exercise list and replaces the cached copy.
func (r *Registry) LoadExercises(ctx context.Context, query ExerciseQuery) ([]schema.Exercise, error) {
	values := url.Values{}
	if query.Search != "" {
		values.Set("search", query.Search)
	}
	if query.Skip > 0 {
		values.Set("skip", strconv.Itoa(query.Skip))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}

	var exercises []schema.Exercise
	if err := r.api.Do(ctx, http.MethodGet, "/workout/exercises", nil, &exercises, apiclient.WithQuery(values)); err != nil {
		return nil, fmt.Errorf("load exercises: %w", err)
	}

	r.mu.Lock()
	r.exercises = exercises
	r.mu.Unlock()
	return exercises, nil
}

// Exercises returns a copy of the cached exercise list.
func (r *Registry) Exercises() []schema.Exercise {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.Exercise, len(r.exercises))
	copy(out, r.exercises)
	return out
}
