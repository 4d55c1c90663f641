// Package taskstore keeps imported tasks in a SQL database, so that they can be
// converted later without holding the original export files around.
package taskstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

type TaskStore struct {
	Log logs.Log
	DB  *gorm.DB
}

// Open connects to the database described by dbc, creating it and running
// migrations if necessary.
func Open(log logs.Log, dbc dbh.DBConfig) (*TaskStore, error) {
	if dbc.Driver == dbh.DriverSqlite {
		os.MkdirAll(filepath.Dir(dbc.Database), 0777)
	}
	db, err := dbh.OpenDB(log, dbc, Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open task database %v: %w", dbc.Database, err)
	}
	return &TaskStore{
		Log: log,
		DB:  db,
	}, nil
}

// OpenSqlite opens (or creates) a sqlite task database
func OpenSqlite(log logs.Log, filename string) (*TaskStore, error) {
	return Open(log, dbh.MakeSqliteConfig(filename))
}

func (s *TaskStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Import stores tasks under project, replacing any existing tasks with the same id.
// Tasks without an id are given the next free id in the project.
// Returns the number of tasks written.
func (s *TaskStore) Import(project string, tasks []task.Task) (int, error) {
	now := dbh.MakeIntTime(time.Now())
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var maxID int64
		if err := tx.Model(&Record{}).Where("project = ?", project).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return err
		}
		for i := range tasks {
			t := &tasks[i]
			if t.ID == 0 {
				maxID++
				t.ID = maxID
			} else if t.ID > maxID {
				maxID = t.ID
			}
			rec, err := makeRecord(project, t)
			if err != nil {
				return err
			}
			rec.ImportedAt = now
			if err := tx.Where("project = ? AND id = ?", project, t.ID).Delete(&Record{}).Error; err != nil {
				return err
			}
			if err := tx.Create(rec).Error; err != nil {
				return fmt.Errorf("Failed to store task %v: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Log.Infof("Imported %v tasks into project '%v'", len(tasks), project)
	return len(tasks), nil
}

// Count returns the number of tasks in project
func (s *TaskStore) Count(project string) (int64, error) {
	n := int64(0)
	err := s.DB.Model(&Record{}).Where("project = ?", project).Count(&n).Error
	return n, err
}

// All returns every task in project, ordered by id
func (s *TaskStore) All(project string) ([]task.Task, error) {
	records := []Record{}
	if err := s.DB.Where("project = ?", project).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	tasks := make([]task.Task, 0, len(records))
	for i := range records {
		t, err := records[i].Task()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Get returns a single task
func (s *TaskStore) Get(project string, id int64) (*task.Task, error) {
	rec := Record{}
	if err := s.DB.Where("project = ? AND id = ?", project, id).First(&rec).Error; err != nil {
		return nil, err
	}
	t, err := rec.Task()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Projects returns the names of all projects that hold tasks
func (s *TaskStore) Projects() ([]string, error) {
	projects := []string{}
	err := s.DB.Model(&Record{}).Distinct("project").Order("project").Pluck("project", &projects).Error
	return projects, err
}

// DeleteProject removes all tasks in project
func (s *TaskStore) DeleteProject(project string) error {
	return s.DB.Where("project = ?", project).Delete(&Record{}).Error
}
