package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Parse decodes either a JSON array of tasks, or a single task object
func Parse(b []byte) ([]Task, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("Empty task document")
	}
	if b[0] == '[' {
		tasks := []Task{}
		if err := json.Unmarshal(b, &tasks); err != nil {
			return nil, fmt.Errorf("Failed to decode task list: %w", err)
		}
		return tasks, nil
	}
	var t Task
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("Failed to decode task: %w", err)
	}
	return []Task{t}, nil
}

// LoadFile reads tasks from a single JSON file
func LoadFile(filename string) ([]Task, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	tasks, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return tasks, nil
}

// Load reads tasks from a JSON file, or from every *.json file in a directory.
// Directory entries are read in lexical order.
func Load(path string) ([]Task, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return LoadFile(path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	all := []Task{}
	for _, name := range names {
		tasks, err := LoadFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
	}
	return all, nil
}
