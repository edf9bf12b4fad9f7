// Package query filters, sorts and groups the exercise list entirely
// client-side, evaluating per-field clauses against decoded custom field
// values.
package query

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"example.com/lifeplanner/internal/codec"
	"example.com/lifeplanner/internal/observability"
	"example.com/lifeplanner/internal/schema"
)

// SortDirection orders results by entity name.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Options narrow and order one filter pass.
type Options struct {
	// CategoryID keeps only exercises of one category; zero means all.
	CategoryID int
	// Clauses maps field ids to raw filter input. Blank input is no
	// constraint, not a match against the empty string.
	Clauses map[int]string
	// Sort orders by name; empty defaults to ascending.
	Sort SortDirection
}

// Group is one category's slice of the filtered result, in result order.
type Group struct {
	CategoryID int
	Exercises  []schema.Exercise
}

// Engine runs filter passes with locale-aware name ordering.
type Engine struct {
	collator *collate.Collator
}

// NewEngine builds an Engine collating names for the given locale. Unknown
// tags fall back to the unmarked locale.
func NewEngine(locale string) *Engine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Engine{collator: collate.New(tag, collate.IgnoreCase)}
}

// Apply produces the filtered, ordered view of exercises. Clauses combine with
// logical AND; an exercise missing a value for any active clause's field is
// excluded. The pass is synchronous and performs no I/O.
func (e *Engine) Apply(exercises []schema.Exercise, opts Options) []schema.Exercise {
	start := time.Now()

	result := make([]schema.Exercise, 0, len(exercises))
	for _, ex := range exercises {
		if opts.CategoryID != 0 && ex.CategoryID() != opts.CategoryID {
			continue
		}
		if !matchesAll(ex, opts.Clauses) {
			continue
		}
		result = append(result, ex)
	}

	e.sortByName(result, opts.Sort)

	observability.RecordFilterPass(time.Since(start))
	return result
}

// GroupByCategory splits a filtered result by category, preserving the result
// order within each group. Groups appear in order of first appearance.
func (e *Engine) GroupByCategory(exercises []schema.Exercise) []Group {
	index := make(map[int]int)
	groups := make([]Group, 0)
	for _, ex := range exercises {
		id := ex.CategoryID()
		pos, ok := index[id]
		if !ok {
			pos = len(groups)
			index[id] = pos
			groups = append(groups, Group{CategoryID: id})
		}
		groups[pos].Exercises = append(groups[pos].Exercises, ex)
	}
	return groups
}

func matchesAll(ex schema.Exercise, clauses map[int]string) bool {
	for fieldID, input := range clauses {
		if strings.TrimSpace(input) == "" {
			continue
		}
		fv, ok := ex.FieldValueFor(fieldID)
		if !ok {
			// Missing is not a wildcard: any active clause the entity has no
			// value for excludes it.
			return false
		}
		value, ok := codec.DecodeFieldValue(fv)
		if !ok {
			return false
		}
		if !value.Matches(input) {
			return false
		}
	}
	return true
}

func (e *Engine) sortByName(exercises []schema.Exercise, direction SortDirection) {
	sort.SliceStable(exercises, func(i, j int) bool {
		cmp := e.collator.CompareString(exercises[i].Name, exercises[j].Name)
		if direction == SortDescending {
			return cmp > 0
		}
		return cmp < 0
	})
}
