package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Todo is a single todo item. Field order matches the wire format.
type Todo struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
}

// TodoCreate - payload for new items, the id is generated.
type TodoCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// NewTodo assigns a fresh v4 id.
func NewTodo(in TodoCreate) Todo {
	return Todo{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
	}
}

// TodoUpdate carries only the fields present in the request body.
// A nil Title or Completed means "keep". Description may be explicitly
// set to null, which DescriptionSet distinguishes from absence.
type TodoUpdate struct {
	Title          *string
	Description    *string
	DescriptionSet bool
	Completed      *bool
}

var null = []byte("null")

// UnmarshalJSON keeps track of which keys were sent.
func (u *TodoUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = TodoUpdate{}
	if v, ok := raw["title"]; ok {
		if bytes.Equal(v, null) {
			return errors.New("title: must not be null")
		}
		var title string
		if err := json.Unmarshal(v, &title); err != nil {
			return fmt.Errorf("title: %w", err)
		}
		if title == "" {
			return errors.New("title: must not be empty")
		}
		u.Title = &title
	}
	if v, ok := raw["description"]; ok {
		u.DescriptionSet = true
		if err := json.Unmarshal(v, &u.Description); err != nil {
			return fmt.Errorf("description: %w", err)
		}
	}
	if v, ok := raw["completed"]; ok {
		if bytes.Equal(v, null) {
			return errors.New("completed: must not be null")
		}
		var completed bool
		if err := json.Unmarshal(v, &completed); err != nil {
			return fmt.Errorf("completed: %w", err)
		}
		u.Completed = &completed
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u TodoUpdate) Empty() bool {
	return u.Title == nil && !u.DescriptionSet && u.Completed == nil
}

// Apply returns a copy of t with the update merged in.
func (u TodoUpdate) Apply(t Todo) Todo {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.DescriptionSet {
		t.Description = u.Description
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	return t
}
