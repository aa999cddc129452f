package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound is returned by Update when no task has the given ID.
	ErrTaskNotFound = errors.New("task not found")
	// ErrCorruptData marks persisted content that cannot be turned into a valid collection.
	ErrCorruptData = errors.New("corrupt task data")
)

// Task represents a single to-do item
type Task struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TaskPatch carries the fields of an update. A nil field is left unchanged;
// a non-nil field overwrites, even with "" or false.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// apply returns a copy of t with the provided fields overridden
func (p TaskPatch) apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// String and Bool return pointers for building patches
func String(s string) *string { return &s }

func Bool(b bool) *bool { return &b }

// nextID derives the ID counter from a loaded collection: max id + 1, or 1 when empty
func nextID(tasks []Task) int {
	if len(tasks) == 0 {
		return 1
	}
	highest := tasks[0].ID
	for _, t := range tasks[1:] {
		if t.ID > highest {
			highest = t.ID
		}
	}
	return highest + 1
}

// validate checks that loaded tasks have unique IDs
func validate(tasks []Task) error {
	seen := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate task id %d", ErrCorruptData, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}
