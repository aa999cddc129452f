package storage

import (
	"fmt"
	"log/slog"
	"sync"
)

// Store defines the task list operations.
// Queries never fail; Update reports ErrTaskNotFound while Delete reports a
// missing task as false.
type Store interface {
	List() []Task
	Get(id int) (Task, bool)
	Create(title, description string) (Task, error)
	Update(id int, patch TaskPatch) (Task, error)
	Delete(id int) (bool, error)

	// Lifecycle
	Close() error
}

// Backend is the persistence target holding the durable copy of the collection.
// Save always receives the complete collection.
type Backend interface {
	Load() ([]Task, error)
	Save(tasks []Task) error
	Close() error
	String() string
}

// Options controls how a TaskStore starts up
type Options struct {
	// StrictLoad aborts startup when persisted data is unreadable or malformed
	// instead of starting with an empty collection.
	StrictLoad bool
	Logger     *slog.Logger
}

// TaskStore implements Store on top of a Backend
type TaskStore struct {
	backend Backend
	tasks   []Task
	nextID  int
	loadErr error
	logger  *slog.Logger
	mu      sync.RWMutex
}

// NewTaskStore loads the collection from backend and derives the ID counter
func NewTaskStore(backend Backend, opts Options) (*TaskStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage", "backend", backend.String())

	s := &TaskStore{
		backend: backend,
		tasks:   []Task{},
		logger:  logger,
	}

	tasks, err := backend.Load()
	if err == nil {
		err = validate(tasks)
	}
	if err != nil {
		if opts.StrictLoad {
			return nil, fmt.Errorf("failed to load tasks: %w", err)
		}
		// Unreadable data is indistinguishable from an empty list from here on
		s.loadErr = err
		logger.Warn("could not load tasks, starting empty", "error", err)
	} else if tasks != nil {
		s.tasks = tasks
	}

	s.nextID = nextID(s.tasks)
	logger.Debug("task store loaded", "tasks", len(s.tasks), "next_id", s.nextID)
	return s, nil
}

// LoadErr returns the error swallowed at startup, if any
func (s *TaskStore) LoadErr() error {
	return s.loadErr
}

// List returns all tasks in collection order
func (s *TaskStore) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, len(s.tasks))
	copy(tasks, s.tasks)
	return tasks
}

// Get returns the first task with the given ID
func (s *TaskStore) Get(id int) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return Task{}, false
}

// Create appends a new task and persists the collection
func (s *TaskStore) Create(title, description string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := Task{
		ID:          s.nextID,
		Title:       title,
		Description: description,
		Completed:   false,
	}
	s.nextID++
	s.tasks = append(s.tasks, task)

	if err := s.save(); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return Task{}, err
	}

	s.logger.Debug("task created", "id", task.ID)
	return task, nil
}

// Update merges patch into the task with the given ID and persists the collection
func (s *TaskStore) Update(id int, patch TaskPatch) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Task{}, ErrTaskNotFound
	}

	previous := s.tasks[i]
	updated := patch.apply(previous)
	s.tasks[i] = updated

	if err := s.save(); err != nil {
		s.tasks[i] = previous
		return Task{}, err
	}

	s.logger.Debug("task updated", "id", id)
	return updated, nil
}

// Delete removes the task with the given ID.
// A missing task is reported as false, not as an error.
func (s *TaskStore) Delete(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	previous := s.tasks
	remaining := make([]Task, 0, len(s.tasks)-1)
	remaining = append(remaining, s.tasks[:i]...)
	remaining = append(remaining, s.tasks[i+1:]...)
	s.tasks = remaining

	if err := s.save(); err != nil {
		s.tasks = previous
		return false, err
	}

	s.logger.Debug("task deleted", "id", id)
	return true, nil
}

// Close releases the backend
func (s *TaskStore) Close() error {
	return s.backend.Close()
}

// indexOf must be called with s.mu held
func (s *TaskStore) indexOf(id int) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// save must be called with s.mu held for writing
func (s *TaskStore) save() error {
	if err := s.backend.Save(s.tasks); err != nil {
		s.logger.Error("failed to persist tasks", "error", err)
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}
