package db

import (
	"testing"
	"testing/fstest"
	"time"
)

func TestLoadMigrations(t *testing.T) {
	files := fstest.MapFS{
		"002_logs.sql":  {Data: []byte("CREATE TABLE daily_log (id UUID PRIMARY KEY);")},
		"001_core.sql":  {Data: []byte("CREATE TABLE care_plan (id UUID PRIMARY KEY);")},
		"010_index.sql": {Data: []byte("CREATE INDEX x ON daily_log (id);")},
	}

	migrations, err := NewMigrator(nil, files).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_core.sql" {
		t.Errorf("unexpected first migration %+v", migrations[0])
	}
	if migrations[0].SQL != "CREATE TABLE care_plan (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
	if migrations[1].Version != 2 || migrations[2].Version != 10 {
		t.Errorf("migrations not sorted by version: %d, %d", migrations[1].Version, migrations[2].Version)
	}
}

func TestLoadMigrations_SkipsNonSQLAndUnnumbered(t *testing.T) {
	files := fstest.MapFS{
		"001_core.sql":  {Data: []byte("SELECT 1;")},
		"README.md":     {Data: []byte("docs")},
		"core.sql":      {Data: []byte("SELECT 2;")},
		"abc_bad.sql":   {Data: []byte("SELECT 3;")},
		"sub/002_x.sql": {Data: []byte("SELECT 4;")},
	}
	migrations, err := NewMigrator(nil, files).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migrations))
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	files := fstest.MapFS{
		"001_core.sql":  {Data: []byte("SELECT 1;")},
		"001_other.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := NewMigrator(nil, files).LoadMigrations(); err == nil {
		t.Fatal("expected error for duplicate versions")
	}
}

func TestMergeStatus(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	statuses := mergeStatus([]Migration{
		{Version: 1, Name: "001_core.sql"},
		{Version: 2, Name: "002_logs.sql"},
	}, map[int]time.Time{1: at})

	if !statuses[0].Applied || statuses[0].AppliedAt == nil || !statuses[0].AppliedAt.Equal(at) {
		t.Errorf("expected first migration applied at %v, got %+v", at, statuses[0])
	}
	if statuses[1].Applied || statuses[1].AppliedAt != nil {
		t.Errorf("expected second migration pending, got %+v", statuses[1])
	}
}
