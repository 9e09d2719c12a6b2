package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Board represents one task board as returned by the remote board service.
type Board struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []Column `json:"columns"`
}

// NewBoard builds an unsaved board seeded with the default column. The ID stays
// empty until the service assigns one.
func NewBoard(name, description string) (Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Board{}, ErrInvalidName
	}
	return Board{
		Name:        name,
		Description: strings.TrimSpace(description),
		Columns:     SeedColumns(),
	}, nil
}

// Clone deep-copies the board so projections never alias authoritative data.
func (b Board) Clone() Board {
	out := b
	if b.Columns == nil {
		return out
	}
	out.Columns = make([]Column, len(b.Columns))
	for idx, column := range b.Columns {
		out.Columns[idx] = column.Clone()
	}
	return out
}

// Column returns the first column whose name equals name exactly.
func (b Board) Column(name string) (Column, bool) {
	for _, column := range b.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

// WithTask returns a copy of b with task appended to the named column.
func (b Board) WithTask(columnName string, task Task) (Board, error) {
	out := b.Clone()
	for idx := range out.Columns {
		if out.Columns[idx].Name != columnName {
			continue
		}
		out.Columns[idx].Tasks = append(out.Columns[idx].Tasks, task)
		return out, nil
	}
	return Board{}, fmt.Errorf("%w: %q on board %q", ErrColumnNotFound, columnName, b.ID)
}

// TaskCount returns the number of tasks across all columns.
func (b Board) TaskCount() int {
	total := 0
	for _, column := range b.Columns {
		total += len(column.Tasks)
	}
	return total
}

// Equal reports deep value equality.
func (b Board) Equal(other Board) bool {
	if b.ID != other.ID || b.Name != other.Name || b.Description != other.Description {
		return false
	}
	return slices.EqualFunc(b.Columns, other.Columns, Column.Equal)
}

// CloneBoards deep-copies a board list, preserving order.
func CloneBoards(in []Board) []Board {
	if in == nil {
		return nil
	}
	out := make([]Board, len(in))
	for idx, board := range in {
		out[idx] = board.Clone()
	}
	return out
}

// DiffBoards lists human-readable differences between want and got.
func DiffBoards(want, got Board) []string {
	var diffs []string
	if want.ID != got.ID {
		diffs = append(diffs, fmt.Sprintf("id %q != %q", want.ID, got.ID))
	}
	if want.Name != got.Name {
		diffs = append(diffs, fmt.Sprintf("name %q != %q", want.Name, got.Name))
	}
	if want.Description != got.Description {
		diffs = append(diffs, "description changed")
	}
	for _, column := range want.Columns {
		other, ok := got.Column(column.Name)
		if !ok {
			diffs = append(diffs, fmt.Sprintf("column %q missing", column.Name))
			continue
		}
		if !column.Equal(other) {
			diffs = append(diffs, fmt.Sprintf("column %q tasks %d != %d", column.Name, len(column.Tasks), len(other.Tasks)))
		}
	}
	for _, column := range got.Columns {
		if _, ok := want.Column(column.Name); !ok {
			diffs = append(diffs, fmt.Sprintf("column %q added", column.Name))
		}
	}
	return diffs
}
