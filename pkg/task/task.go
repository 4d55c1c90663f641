// Package task holds the task records that annotation results arrive in.
package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Task is one unit of work: a data item, and the annotations made on it
type Task struct {
	ID          int64          `json:"id"`
	Data        map[string]any `json:"data"`
	Annotations []Annotation   `json:"annotations"`
	Predictions []Annotation   `json:"predictions,omitempty"`
	Agreement   *float64       `json:"agreement,omitempty"`
}

func (t *Task) UnmarshalJSON(b []byte) error {
	type alias Task
	var a struct {
		alias
		Data        json.RawMessage `json:"data"`
		Completions []Annotation    `json:"completions"` // Older exports call annotations "completions"
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*t = Task(a.alias)
	data, err := DecodeData(a.Data)
	if err != nil {
		return fmt.Errorf("Invalid data in task %v: %w", t.ID, err)
	}
	t.Data = data
	if len(t.Annotations) == 0 && len(a.Completions) != 0 {
		t.Annotations = a.Completions
	}
	return nil
}

// DecodeData decodes a task's data object. Numbers are kept as json.Number, so
// that large integer ids survive unchanged. Empty input or null is an empty map.
func DecodeData(b []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(b)) == 0 || string(bytes.TrimSpace(b)) == "null" {
		return map[string]any{}, nil
	}
	return decodeGeneric(b)
}

// DataString returns task.Data[key] if it is a string
func (t *Task) DataString(key string) string {
	s, _ := t.Data[key].(string)
	return s
}

// Annotation is one person's (or one model's) set of results on a task
type Annotation struct {
	ID           int64        `json:"id,omitempty"`
	Result       []ResultItem `json:"result"`
	CompletedBy  any          `json:"completed_by,omitempty"` // Either a user id, or an object with id and email
	CreatedAt    string       `json:"created_at,omitempty"`
	UpdatedAt    string       `json:"updated_at,omitempty"`
	LeadTime     *float64     `json:"lead_time,omitempty"`
	WasCancelled bool         `json:"was_cancelled,omitempty"`
	ModelVersion *string      `json:"model_version,omitempty"` // predictions only
	Score        *float64     `json:"score,omitempty"`         // predictions only
}

// Annotator returns a printable identity of whoever made the annotation
func (a *Annotation) Annotator() any {
	switch v := a.CompletedBy.(type) {
	case map[string]any:
		if email, ok := v["email"].(string); ok && email != "" {
			return email
		}
		return v["id"]
	default:
		return v
	}
}

// Results returns the results of all annotations that were not cancelled
func (t *Task) Results() [][]ResultItem {
	all := [][]ResultItem{}
	for _, a := range t.Annotations {
		if a.WasCancelled {
			continue
		}
		all = append(all, a.Result)
	}
	return all
}

// ImageFilename derives a file name for the task's media, from the URL in
// task.Data[key]. If there is no usable name, we fall back to the task ID.
func (t *Task) ImageFilename(key string) string {
	ref := t.DataString(key)
	if ref != "" {
		// Strip query strings (eg /data/local-files/?d=dir/img.jpg)
		if i := strings.Index(ref, "?d="); i != -1 {
			ref = ref[i+3:]
		} else if i := strings.IndexAny(ref, "?#"); i != -1 {
			ref = ref[:i]
		}
		if base := path.Base(ref); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return fmt.Sprintf("task-%v", t.ID)
}
