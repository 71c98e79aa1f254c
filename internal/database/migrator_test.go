package database

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_events.up.sql":     {Data: []byte("SELECT 2;")},
		"migrations/0001_accounts.up.sql":   {Data: []byte("SELECT 1;")},
		"migrations/0001_accounts.down.sql": {Data: []byte("DROP TABLE accounts;")},
		"migrations/README.md":              {Data: []byte("notes")},
		"migrations/nested/0003.up.sql":     {Data: []byte("SELECT 3;")},
	}

	names, err := ListMigrations(fsys, "migrations")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_accounts.up.sql", "0002_events.up.sql"}, names)
}

func TestListMigrations_RepositoryMigrations(t *testing.T) {
	names, err := ListMigrations(os.DirFS("../.."), "migrations")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_accounts.up.sql", "0002_transfer_events.up.sql"}, names)
}

func TestListMigrations_MissingDir(t *testing.T) {
	_, err := ListMigrations(fstest.MapFS{}, "missing")
	assert.Error(t, err)
}
