package storage

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestStore creates a JSON-backed store in a temp directory
func newTestStore(t *testing.T) (*TaskStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tasks.json")
	store, err := NewTaskStore(NewJSONFile(path), Options{Logger: quietLogger})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, path
}

// flakyBackend wraps a backend and fails Save on demand
type flakyBackend struct {
	Backend
	fail  bool
	saves int
}

func (b *flakyBackend) Save(tasks []Task) error {
	if b.fail {
		return errors.New("disk full")
	}
	b.saves++
	return b.Backend.Save(tasks)
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestScenarioAddToEmptyStore(t *testing.T) {
	store, _ := newTestStore(t)

	task, err := store.Create("Buy milk", "")
	require.NoError(t, err)
	assert.Equal(t, Task{ID: 1, Title: "Buy milk", Description: "", Completed: false}, task)
	assert.Equal(t, []Task{task}, store.List())
}

func TestScenarioIDsNotReused(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("Buy milk", "")
	require.NoError(t, err)

	clean, err := store.Create("Clean", "Sweep floor")
	require.NoError(t, err)
	assert.Equal(t, 2, clean.ID)
	assert.Equal(t, "Sweep floor", clean.Description)

	deleted, err := store.Delete(1)
	require.NoError(t, err)
	assert.True(t, deleted)

	read, err := store.Create("Read", "")
	require.NoError(t, err)
	assert.Equal(t, 3, read.ID)

	ids := []int{}
	for _, task := range store.List() {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int{2, 3}, ids)
}

func TestScenarioUpdateCompletedOnly(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Create("Buy milk", "")
	require.NoError(t, err)
	_, err = store.Create("Clean", "Sweep floor")
	require.NoError(t, err)

	updated, err := store.Update(2, TaskPatch{Completed: Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, Task{ID: 2, Title: "Clean", Description: "Sweep floor", Completed: true}, updated)

	got, ok := store.Get(2)
	require.True(t, ok)
	assert.Equal(t, updated, got)
}

func TestScenarioUpdateMissing(t *testing.T) {
	store, path := newTestStore(t)
	_, err := store.Create("Buy milk", "")
	require.NoError(t, err)

	before := store.List()
	fileBefore := readFile(t, path)

	_, err = store.Update(999, TaskPatch{Title: String("X")})
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, before, store.List())
	assert.Equal(t, fileBefore, readFile(t, path))
}

func TestScenarioDeleteMissing(t *testing.T) {
	store, path := newTestStore(t)
	_, err := store.Create("Buy milk", "")
	require.NoError(t, err)

	before := store.List()
	fileBefore := readFile(t, path)

	deleted, err := store.Delete(999)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, before, store.List())
	assert.Equal(t, fileBefore, readFile(t, path))
}

func TestDeleteMissingDoesNotPersist(t *testing.T) {
	backend := &flakyBackend{Backend: NewJSONFile(filepath.Join(t.TempDir(), "tasks.json"))}
	store, err := NewTaskStore(backend, Options{Logger: quietLogger})
	require.NoError(t, err)

	_, err = store.Update(5, TaskPatch{Completed: Bool(true)})
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = store.Delete(5)
	require.NoError(t, err)

	assert.Zero(t, backend.saves)
}

func TestGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, ok := store.Get(1)
	assert.False(t, ok)
}

func TestUpdateExplicitEmptyOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	task, err := store.Create("Clean", "Sweep floor")
	require.NoError(t, err)
	_, err = store.Update(task.ID, TaskPatch{Completed: Bool(true)})
	require.NoError(t, err)

	updated, err := store.Update(task.ID, TaskPatch{Description: String(""), Completed: Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, "Clean", updated.Title)
	assert.Equal(t, "", updated.Description)
	assert.False(t, updated.Completed)
}

func TestUpdateEmptyPatchKeepsTask(t *testing.T) {
	store, _ := newTestStore(t)
	task, err := store.Create("Clean", "Sweep floor")
	require.NoError(t, err)

	updated, err := store.Update(task.ID, TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, task, updated)
}

func TestUpdateKeepsPosition(t *testing.T) {
	store, _ := newTestStore(t)
	for _, title := range []string{"a", "b", "c"} {
		_, err := store.Create(title, "")
		require.NoError(t, err)
	}

	_, err := store.Update(2, TaskPatch{Title: String("B")})
	require.NoError(t, err)

	titles := []string{}
	for _, task := range store.List() {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"a", "B", "c"}, titles)
}

func TestDeletePreservesOrder(t *testing.T) {
	store, _ := newTestStore(t)
	for _, title := range []string{"a", "b", "c", "d"} {
		_, err := store.Create(title, "")
		require.NoError(t, err)
	}

	deleted, err := store.Delete(2)
	require.NoError(t, err)
	require.True(t, deleted)

	titles := []string{}
	for _, task := range store.List() {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"a", "c", "d"}, titles)
}

func TestListReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Create("Buy milk", "")
	require.NoError(t, err)

	tasks := store.List()
	tasks[0].Title = "changed"

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Buy milk", got.Title)
}

func TestIDsUniqueAndMonotonic(t *testing.T) {
	store, _ := newTestStore(t)

	last := 0
	for i := 0; i < 50; i++ {
		task, err := store.Create("task", "")
		require.NoError(t, err)
		assert.Greater(t, task.ID, last)
		last = task.ID

		// Delete every third task, including the newest one
		if i%3 == 0 {
			_, err := store.Delete(task.ID)
			require.NoError(t, err)
		}
	}

	seen := map[int]bool{}
	for _, task := range store.List() {
		assert.False(t, seen[task.ID], "duplicate id %d", task.ID)
		seen[task.ID] = true
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	store, path := newTestStore(t)
	_, err := store.Create("Buy milk", "")
	require.NoError(t, err)
	_, err = store.Create("Clean", "Sweep floor")
	require.NoError(t, err)
	_, err = store.Create("Read", "chapter 3")
	require.NoError(t, err)
	_, err = store.Update(2, TaskPatch{Completed: Bool(true)})
	require.NoError(t, err)
	_, err = store.Delete(1)
	require.NoError(t, err)

	reloaded, err := NewTaskStore(NewJSONFile(path), Options{Logger: quietLogger})
	require.NoError(t, err)
	assert.Equal(t, store.List(), reloaded.List())
	assert.NoError(t, reloaded.LoadErr())

	task, err := reloaded.Create("Next", "")
	require.NoError(t, err)
	assert.Equal(t, 4, task.ID)
}

func TestCounterFromLoadedMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	writeTasks(t, path, []Task{{ID: 7, Title: "a"}, {ID: 3, Title: "b"}})

	store, err := NewTaskStore(NewJSONFile(path), Options{Logger: quietLogger})
	require.NoError(t, err)

	task, err := store.Create("c", "")
	require.NoError(t, err)
	assert.Equal(t, 8, task.ID)
}

func TestLenientLoadStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	store, err := NewTaskStore(NewJSONFile(path), Options{Logger: quietLogger})
	require.NoError(t, err)
	assert.Empty(t, store.List())
	assert.ErrorIs(t, store.LoadErr(), ErrCorruptData)

	task, err := store.Create("first", "")
	require.NoError(t, err)
	assert.Equal(t, 1, task.ID)
}

func TestStrictLoadFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	_, err := NewTaskStore(NewJSONFile(path), Options{StrictLoad: true, Logger: quietLogger})
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestStrictLoadAcceptsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")

	store, err := NewTaskStore(NewJSONFile(path), Options{StrictLoad: true, Logger: quietLogger})
	require.NoError(t, err)
	assert.Empty(t, store.List())
}

func TestDuplicateIDsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	writeTasks(t, path, []Task{{ID: 1, Title: "a"}, {ID: 1, Title: "b"}})

	_, err := NewTaskStore(NewJSONFile(path), Options{StrictLoad: true, Logger: quietLogger})
	assert.ErrorIs(t, err, ErrCorruptData)

	store, err := NewTaskStore(NewJSONFile(path), Options{Logger: quietLogger})
	require.NoError(t, err)
	assert.Empty(t, store.List())
}

func TestWriteFailureRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	backend := &flakyBackend{Backend: NewJSONFile(path)}
	store, err := NewTaskStore(backend, Options{Logger: quietLogger})
	require.NoError(t, err)

	_, err = store.Create("a", "")
	require.NoError(t, err)
	_, err = store.Create("b", "")
	require.NoError(t, err)
	before := store.List()
	fileBefore := readFile(t, path)

	backend.fail = true

	_, err = store.Create("c", "")
	assert.Error(t, err)
	_, err = store.Update(1, TaskPatch{Title: String("changed")})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTaskNotFound)
	deleted, err := store.Delete(2)
	assert.Error(t, err)
	assert.False(t, deleted)

	assert.Equal(t, before, store.List())
	assert.Equal(t, fileBefore, readFile(t, path))

	// The failed create still consumed its id
	backend.fail = false
	task, err := store.Create("d", "")
	require.NoError(t, err)
	assert.Equal(t, 4, task.ID)
}

func TestCounterFromNegativeIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	writeTasks(t, path, []Task{{ID: -5, Title: "a"}, {ID: -9, Title: "b"}})

	store, err := NewTaskStore(NewJSONFile(path), Options{StrictLoad: true, Logger: quietLogger})
	require.NoError(t, err)

	task, err := store.Create("c", "")
	require.NoError(t, err)
	assert.Equal(t, -4, task.ID)
}

func TestConcurrentMutations(t *testing.T) {
	store, path := newTestStore(t)

	const workers = 40
	created := make(chan Task, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			task, err := store.Create("task", "")
			if !assert.NoError(t, err) {
				return
			}
			created <- task

			_, err = store.Update(task.ID, TaskPatch{Completed: Bool(true)})
			assert.NoError(t, err)
			store.List()
			store.Get(task.ID)
		}()
	}
	wg.Wait()
	close(created)

	ids := map[int]bool{}
	for task := range created {
		assert.False(t, ids[task.ID], "duplicate id %d", task.ID)
		ids[task.ID] = true
	}
	require.Len(t, ids, workers)

	// Delete half of them concurrently while more creates run
	var deleted sync.Map
	for id := range ids {
		if id%2 == 0 {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				ok, err := store.Delete(id)
				assert.NoError(t, err)
				assert.True(t, ok)
				deleted.Store(id, true)
			}(id)
		}
	}
	for i := 0; i < workers/2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create("late", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	reloaded, err := NewTaskStore(NewJSONFile(path), Options{StrictLoad: true, Logger: quietLogger})
	require.NoError(t, err)

	tasks := reloaded.List()
	// ids 1..40 were created, the 20 even ones deleted and 20 more created
	assert.Len(t, tasks, workers)
	assert.Equal(t, store.List(), tasks)

	seen := map[int]bool{}
	for _, task := range tasks {
		assert.False(t, seen[task.ID], "duplicate id %d after reload", task.ID)
		seen[task.ID] = true
		_, wasDeleted := deleted.Load(task.ID)
		assert.False(t, wasDeleted, "deleted task %d came back", task.ID)
	}
}
