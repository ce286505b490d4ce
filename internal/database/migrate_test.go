package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestSplitStatements(t *testing.T) {
	src := `-- header
CREATE TABLE a (id INT);

-- second
CREATE TABLE b (
  id INT -- trailing is kept
);
`
	got := splitStatements(src)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", got[0])
	assert.Contains(t, got[1], "CREATE TABLE b")
}

func TestSchemaStatementsParse(t *testing.T) {
	raw, err := migrationFiles.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	stmts := splitStatements(string(raw))
	assert.GreaterOrEqual(t, len(stmts), 9)
	for _, s := range stmts {
		assert.Regexp(t, `^CREATE TABLE IF NOT EXISTS \w+`, s)
	}
}
