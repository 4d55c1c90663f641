package taskstore

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE task(
			project TEXT NOT NULL,
			id BIGINT NOT NULL,
			data TEXT NOT NULL,
			annotations TEXT,
			predictions TEXT,
			agreement REAL,
			imported_at BIGINT,
			PRIMARY KEY (project, id)
		);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE INDEX idx_task_imported_at ON task (imported_at);
	`))

	return migs
}
