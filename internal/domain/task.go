package domain

import "strings"

// Task is a titled, described unit of work owned by one column.
type Task struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewTask validates the add-task preconditions: both fields must be non-empty.
func NewTask(title, description string) (Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return Task{}, ErrInvalidTitle
	}
	if description == "" {
		return Task{}, ErrInvalidDescription
	}
	return Task{Title: title, Description: description}, nil
}
