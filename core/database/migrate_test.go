package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/rentbot/migrations"
)

func TestListMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {},
		"000001_a.up.sql":   {},
		"000001_a.down.sql": {},
		"notes.txt":         {},
	}
	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, listMigrationFiles(fsys))
}

func TestEmbeddedMigrations(t *testing.T) {
	files := listMigrationFiles(migrations.FS)
	assert.Equal(t, []string{"000001_users.up.sql", "000002_payments.up.sql"}, files)
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}
	assert.Equal(t, []string{"000002_b.up.sql", "000003_c.up.sql"}, selectApplied(files, 1, 3))
	assert.Nil(t, selectApplied(files, 3, 3))
	assert.Equal(t, uint64(0), parseVersion("bad"))
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "rent"}
	assert.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=rent sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bot:p%40ss@db:5432/rent?sslmode=disable", cfg.URL())
}
