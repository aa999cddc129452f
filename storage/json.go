package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// JSONFile implements Backend using a single JSON array file
type JSONFile struct {
	filename string
}

// NewJSONFile returns a backend for filename. The file is not touched until
// the first Load or Save.
func NewJSONFile(filename string) *JSONFile {
	return &JSONFile{filename: filename}
}

// Load reads the collection. A missing file is an empty collection.
func (f *JSONFile) Load() ([]Task, error) {
	data, err := os.ReadFile(f.filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorruptData, f.filename)
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if tasks == nil {
		// literal null
		return nil, fmt.Errorf("%w: %s does not hold a task list", ErrCorruptData, f.filename)
	}
	return tasks, nil
}

// Save overwrites the file with the whole collection, pretty-printed with
// two-space indentation
func (f *JSONFile) Save(tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}

	// Write beside the target and rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(f.filename), filepath.Base(f.filename)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.filename)
}

// Close is a no-op; the file is only open during Load and Save
func (f *JSONFile) Close() error {
	return nil
}

func (f *JSONFile) String() string {
	return "json:" + f.filename
}
