package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tablegrid/internal/table"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func intPtr(n int) *int { return &n }

func TestValidate_Valid(t *testing.T) {
	spec := &table.Spec{
		Name: "people",
		Columns: []table.ColumnSpec{
			{ID: "id", Width: "60"},
			{ID: "name", Pinned: table.PinLeft},
		},
		Options: table.SpecOptions{
			ResizeMode: table.ResizeOnChange,
			Fuzzy:      table.FuzzySpec{Enabled: true, Keys: []string{"name"}, Threshold: 0.3},
		},
	}
	assert.Empty(t, Validate(spec))
}

func TestValidate_CollectsAll(t *testing.T) {
	spec := &table.Spec{
		Columns: []table.ColumnSpec{
			{ID: "a"},
			{ID: "a"},
			{ID: ""},
			{ID: "has space"},
			{ID: "w", Width: "wide"},
		},
		Options: table.SpecOptions{
			ResizeMode: "sometimes",
			DebounceMS: -1,
			Fuzzy:      table.FuzzySpec{Keys: []string{"nope"}, Threshold: 1.5},
			Virtual:    table.VirtualSpec{Enabled: true, Overscan: intPtr(-2)},
			Server:     table.ServerSpec{PageSize: 5000},
		},
	}

	assert.Equal(t, []string{
		ErrTableNameEmpty,
		ErrDuplicateID,
		ErrColumnIDEmpty,
		ErrInvalidColumnID,
		ErrInvalidWidth,
		ErrInvalidResizeMode,
		ErrInvalidDebounce,
		ErrUnknownFuzzyKey,
		ErrInvalidThreshold,
		ErrInvalidRowHeight,
		ErrInvalidOverscan,
		ErrInvalidPageSize,
	}, codes(Validate(spec)))
}

func TestValidate_NoColumns(t *testing.T) {
	errs := Validate(&table.Spec{Name: "t"})
	assert.Equal(t, []string{ErrNoColumns}, codes(errs))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "columns[0].id", Message: "column id is required", Code: ErrColumnIDEmpty}
	assert.Equal(t, "[E102] columns[0].id: column id is required", e.Error())

	e.Line = 7
	assert.Equal(t, "[E102] line 7: columns[0].id: column id is required", e.Error())
}
