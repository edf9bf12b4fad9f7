package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/lifeplanner/internal/apiclient"
	"example.com/lifeplanner/internal/codec"
	"example.com/lifeplanner/internal/schema"
)

// fakeAPI records calls and serves canned responses keyed by method+path.
type fakeAPI struct {
	calls     []string
	responses map[string]any
	err       error
}

func (f *fakeAPI) Do(ctx context.Context, method, path string, body, out interface{}, opts ...apiclient.RequestOption) error {
	f.calls = append(f.calls, method+" "+path)
	if f.err != nil {
		return f.err
	}
	if out == nil {
		return nil
	}
	resp, ok := f.responses[method+" "+path]
	if !ok {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func strPtr(s string) *string { return &s }

func seededRegistry(t *testing.T) (*Registry, *fakeAPI) {
	t.Helper()

	distance := schema.FieldDefinition{
		ID:             10,
		ActivityTypeID: 2,
		Name:           "distance",
		FieldType:      schema.FieldTypeNumber,
		Unit:           "km",
	}
	style := schema.FieldDefinition{
		ID:             11,
		ActivityTypeID: 2,
		Name:           "style",
		FieldType:      schema.FieldTypeMultiSelect,
		Options:        []string{"Facile", "Difficile"},
	}

	api := &fakeAPI{responses: map[string]any{
		"GET /workout/activity-types": []schema.ActivityCategory{
			{ID: 1, Name: "Musculation", IsDefault: true},
			{ID: 2, Name: "Course à pied", CustomFields: []schema.FieldDefinition{distance, style}},
		},
		"GET /workout/exercises": []schema.Exercise{
			{
				ID:                   100,
				Name:                 "5K",
				CustomActivityTypeID: intPtr(2),
				FieldValues: []schema.FieldValue{
					{ID: 1000, ExerciseID: 100, FieldID: 10, Value: strPtr("5"), Field: distance},
					{ID: 1001, ExerciseID: 100, FieldID: 11, Value: strPtr(`["Facile"]`), Field: style},
				},
			},
			{
				ID:                   101,
				Name:                 "Sortie longue",
				CustomActivityTypeID: intPtr(2),
				FieldValues: []schema.FieldValue{
					{ID: 1002, ExerciseID: 101, FieldID: 10, Value: strPtr("15"), Field: distance},
				},
			},
		},
	}}

	r := New(api)
	require.NoError(t, r.Load(context.Background()))
	_, err := r.LoadExercises(context.Background(), ExerciseQuery{})
	require.NoError(t, err)

	api.calls = nil
	return r, api
}

func intPtr(i int) *int { return &i }

func findExercise(exercises []schema.Exercise, id int) (schema.Exercise, bool) {
	for _, ex := range exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return schema.Exercise{}, false
}

func TestLoadCachesCategories(t *testing.T) {
	r, _ := seededRegistry(t)
	require.True(t, r.Loaded())

	categories := r.Categories()
	require.Len(t, categories, 2)

	course, ok := r.CategoryByID(2)
	require.True(t, ok)
	require.Len(t, course.CustomFields, 2)

	field, ok := r.FieldByID(10)
	require.True(t, ok)
	require.Equal(t, "distance", field.Name)
}

func TestDeleteCategoryDefaultGuardSkipsNetwork(t *testing.T) {
	r, api := seededRegistry(t)

	err := r.DeleteCategory(context.Background(), 1)
	require.ErrorIs(t, err, ErrDefaultCategory)
	require.Empty(t, api.calls, "default guard must fail before any network call")

	_, ok := r.CategoryByID(1)
	require.True(t, ok, "cache must be untouched")
}

func TestDeleteCategoryRemovesFromCache(t *testing.T) {
	r, api := seededRegistry(t)

	require.NoError(t, r.DeleteCategory(context.Background(), 2))
	require.Equal(t, []string{"DELETE /workout/activity-types/2"}, api.calls)

	_, ok := r.CategoryByID(2)
	require.False(t, ok)
}

func TestMutationFailureLeavesCacheUnchanged(t *testing.T) {
	r, api := seededRegistry(t)
	api.err = errors.New("network down")

	before := r.Categories()

	err := r.DeleteCategory(context.Background(), 2)
	require.Error(t, err)
	require.Equal(t, before, r.Categories())

	_, err = r.AddField(context.Background(), 2, FieldInput{Name: "allure", FieldType: schema.FieldTypeText})
	require.Error(t, err)
	require.Equal(t, before, r.Categories())
}

func TestAddFieldValidatesBeforeNetwork(t *testing.T) {
	r, api := seededRegistry(t)

	_, err := r.AddField(context.Background(), 2, FieldInput{
		Name:      "intensité",
		FieldType: schema.FieldTypeSelect,
	})
	require.ErrorIs(t, err, schema.ErrOptionsRequired)
	require.Empty(t, api.calls)

	_, err = r.AddField(context.Background(), 2, FieldInput{
		Name:      "météo",
		FieldType: schema.FieldType("weather"),
	})
	require.ErrorIs(t, err, schema.ErrInvalidFieldType)
	require.Empty(t, api.calls)
}

func TestAddFieldAppendsToCategory(t *testing.T) {
	r, api := seededRegistry(t)
	api.responses["POST /workout/activity-types/2/fields"] = schema.FieldDefinition{
		ID:             12,
		ActivityTypeID: 2,
		Name:           "allure",
		FieldType:      schema.FieldTypeText,
		CreatedAt:      time.Now().UTC(),
	}

	created, err := r.AddField(context.Background(), 2, FieldInput{Name: "allure", FieldType: schema.FieldTypeText})
	require.NoError(t, err)
	require.Equal(t, 12, created.ID)

	course, _ := r.CategoryByID(2)
	require.Len(t, course.CustomFields, 3)
}

func TestDeleteFieldPurgesCachedValues(t *testing.T) {
	r, api := seededRegistry(t)

	require.NoError(t, r.DeleteField(context.Background(), 10))
	require.Equal(t, []string{"DELETE /workout/fields/10"}, api.calls)

	// The definition is gone from its category.
	course, _ := r.CategoryByID(2)
	require.Len(t, course.CustomFields, 1)
	require.Equal(t, 11, course.CustomFields[0].ID)

	// Every cached exercise lost its value for the deleted field and still
	// decodes cleanly.
	for _, ex := range r.Exercises() {
		_, ok := ex.FieldValueFor(10)
		require.False(t, ok, "exercise %d should have no value for the deleted field", ex.ID)
		for _, fv := range ex.FieldValues {
			_, decoded := codec.DecodeFieldValue(fv)
			require.True(t, decoded)
		}
	}

	// The other field's values survived.
	five, found := findExercise(r.Exercises(), 100)
	require.True(t, found)
	_, ok := five.FieldValueFor(11)
	require.True(t, ok)
}

func TestDeleteFieldUnknownID(t *testing.T) {
	r, api := seededRegistry(t)
	err := r.DeleteField(context.Background(), 999)
	require.ErrorIs(t, err, ErrFieldNotFound)
	require.Empty(t, api.calls)
}

func TestCreateCategoryAppendsToCache(t *testing.T) {
	r, api := seededRegistry(t)
	api.responses["POST /workout/activity-types"] = schema.ActivityCategory{
		ID:   3,
		Name: "Escalade",
		Icon: "Mountain",
	}

	created, err := r.CreateCategory(context.Background(), CreateCategoryInput{Name: "Escalade", Icon: "Mountain"})
	require.NoError(t, err)
	require.Equal(t, 3, created.ID)
	require.Len(t, r.Categories(), 3)
}

func TestCreateCategoryValidatesInitialFields(t *testing.T) {
	r, api := seededRegistry(t)

	_, err := r.CreateCategory(context.Background(), CreateCategoryInput{
		Name: "Escalade",
		CustomFields: []FieldInput{
			{Name: "voie", FieldType: schema.FieldTypeMultiSelect},
		},
	})
	require.ErrorIs(t, err, schema.ErrOptionsRequired)
	require.Empty(t, api.calls)
}

func TestUpdateCategoryGuardsDefaults(t *testing.T) {
	r, api := seededRegistry(t)

	_, err := r.UpdateCategory(context.Background(), 1, UpdateCategoryInput{Name: strPtr("Muscu")})
	require.ErrorIs(t, err, ErrDefaultCategory)
	require.Empty(t, api.calls)
}

func TestToggleFavoriteClearsOthers(t *testing.T) {
	r, api := seededRegistry(t)
	api.responses["POST /workout/activity-types/2/favorite"] = schema.ActivityCategory{
		ID:         2,
		Name:       "Course à pied",
		IsFavorite: true,
	}

	updated, err := r.ToggleFavorite(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, updated.IsFavorite)

	for _, c := range r.Categories() {
		if c.ID != 2 {
			require.False(t, c.IsFavorite, "only one category may be favorite")
		}
	}
}

func TestLoadExercisesSendsQuery(t *testing.T) {
	r, api := seededRegistry(t)

	_, err := r.LoadExercises(context.Background(), ExerciseQuery{Search: "squat", Limit: 50})
	require.NoError(t, err)
	require.Equal(t, []string{"GET /workout/exercises"}, api.calls)
}
