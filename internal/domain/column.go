package domain

import (
	"slices"
	"strings"
)

// DefaultColumnName is the single column every new board is seeded with.
const DefaultColumnName = "To Do"

// Column is a named workflow stage holding an ordered task list.
type Column struct {
	Name  string `json:"name"`
	Tasks []Task `json:"tasks"`
}

// NewColumn constructs an empty column.
func NewColumn(name string) (Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Column{}, ErrInvalidName
	}
	return Column{Name: name, Tasks: []Task{}}, nil
}

// SeedColumns returns the column set sent with every create-board mutation.
func SeedColumns() []Column {
	return []Column{{Name: DefaultColumnName, Tasks: []Task{}}}
}

// Clone deep-copies the column.
func (c Column) Clone() Column {
	out := Column{Name: c.Name, Tasks: make([]Task, len(c.Tasks))}
	copy(out.Tasks, c.Tasks)
	return out
}

// Equal reports value equality, including task order.
func (c Column) Equal(other Column) bool {
	return c.Name == other.Name && slices.Equal(c.Tasks, other.Tasks)
}
