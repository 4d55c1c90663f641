package taskstore

import (
	"encoding/json"
	"fmt"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/labelconv/pkg/task"
)

// Record is a task as it is stored in the database.
// Tasks are keyed by (project, id), so two projects may reuse the same task ids.
type Record struct {
	Project     string                            `gorm:"primaryKey;autoIncrement:false" json:"project"`
	ID          int64                             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Data        dbh.JSONField[json.RawMessage]    `json:"data"`
	Annotations *dbh.JSONField[[]task.Annotation] `json:"annotations"`
	Predictions *dbh.JSONField[[]task.Annotation] `json:"predictions"`
	Agreement   *float64                          `json:"agreement"`
	ImportedAt  dbh.IntTime                       `json:"importedAt"`
}

func (Record) TableName() string {
	return "task"
}

func makeRecord(project string, t *task.Task) (*Record, error) {
	data := t.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("Task %v: %w", t.ID, err)
	}
	r := &Record{
		Project:   project,
		ID:        t.ID,
		Data:      *dbh.MakeJSONField(json.RawMessage(raw)),
		Agreement: t.Agreement,
	}
	if len(t.Annotations) != 0 {
		r.Annotations = dbh.MakeJSONField(t.Annotations)
	}
	if len(t.Predictions) != 0 {
		r.Predictions = dbh.MakeJSONField(t.Predictions)
	}
	return r, nil
}

// Task converts the record back into the form that the exporters consume.
// Data is decoded the same way as an imported task, so numbers keep their precision.
func (r *Record) Task() (task.Task, error) {
	data, err := task.DecodeData(r.Data.Data)
	if err != nil {
		return task.Task{}, fmt.Errorf("Task %v/%v: %w", r.Project, r.ID, err)
	}
	t := task.Task{
		ID:        r.ID,
		Data:      data,
		Agreement: r.Agreement,
	}
	if r.Annotations != nil {
		t.Annotations = r.Annotations.Data
	}
	if r.Predictions != nil {
		t.Predictions = r.Predictions.Data
	}
	return t, nil
}
