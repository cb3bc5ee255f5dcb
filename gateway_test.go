package sqlview

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDatabase creates a database file under t.TempDir and runs each
// statement against it through a writable handle.
func newTestDatabase(t *testing.T, statements ...string) string {
	t.Helper()

	return newTestDatabaseAt(t, filepath.Join(t.TempDir(), "test.db"), statements...)
}

func newTestDatabaseAt(t *testing.T, path string, statements ...string) string {
	t.Helper()

	db, err := sql.Open(driverName, fileURI(path, ""))
	require.Nil(t, err)
	defer db.Close()

	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.Nil(t, err, stmt)
	}

	// Make sure the file exists even when no statements were given.
	require.Nil(t, db.Ping())
	_, err = db.Exec("PRAGMA user_version = 1")
	require.Nil(t, err)

	return path
}

var usersFixture = []string{
	"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
	"INSERT INTO users (id, name) VALUES (1, 'Terry'), (2, 'Anette'), (3, NULL)",
}

func TestGateway_ListTables(t *testing.T) {
	path := newTestDatabase(t,
		"CREATE TABLE zebra (x INT)",
		"CREATE TABLE apple (x INT)",
		"CREATE VIEW middle AS SELECT * FROM apple",
		"CREATE INDEX apple_x ON apple (x)",
	)
	g := NewGateway(path)

	tables, err := g.ListTables(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, []string{"apple", "zebra"}, tables)
}

func TestGateway_ListTablesEmpty(t *testing.T) {
	g := NewGateway(newTestDatabase(t))

	tables, err := g.ListTables(context.Background())
	assert.Nil(t, err)
	assert.NotNil(t, tables)
	assert.Len(t, tables, 0)
}

func TestGateway_MissingFile(t *testing.T) {
	g := NewGateway(filepath.Join(t.TempDir(), "missing.db"))

	_, err := g.ListTables(context.Background())
	assert.NotNil(t, err)

	_, err = g.RunStatement(context.Background(), "SELECT 1")
	assert.NotNil(t, err)
}

func TestGateway_FetchRows(t *testing.T) {
	g := NewGateway(newTestDatabase(t, usersFixture...))

	rows, err := g.FetchRows(context.Background(), "users", TableRowLimit)
	require.Nil(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"id", "name"}, rows[0].Columns())
	assert.Equal(t, []interface{}{int64(1), "Terry"}, rows[0].Values())
	name, ok := rows[2].Get("name")
	assert.True(t, ok)
	assert.Nil(t, name)
}

func TestGateway_FetchRowsLimit(t *testing.T) {
	path := newTestDatabase(t,
		"CREATE TABLE numbers (n INTEGER)",
		"WITH RECURSIVE c(n) AS (SELECT 1 UNION ALL SELECT n+1 FROM c WHERE n < 250) INSERT INTO numbers SELECT n FROM c",
	)
	g := NewGateway(path)

	rows, err := g.FetchRows(context.Background(), "numbers", TableRowLimit)
	assert.Nil(t, err)
	assert.Len(t, rows, TableRowLimit)

	all, err := g.RunStatement(context.Background(), "SELECT * FROM numbers")
	assert.Nil(t, err)
	assert.Len(t, all, 250)
}

func TestGateway_FetchRowsTableNotFound(t *testing.T) {
	g := NewGateway(newTestDatabase(t, usersFixture...))

	for _, name := range []string{
		"missing",
		"USERS",
		"users; DROP TABLE users",
		"users LIMIT 1 --",
		`"users"`,
	} {
		_, err := g.FetchRows(context.Background(), name, TableRowLimit)
		assert.Equal(t, ErrTableNotFound, err, name)
	}

	rows, err := g.FetchRows(context.Background(), "users", TableRowLimit)
	assert.Nil(t, err)
	assert.Len(t, rows, 3)
}

func TestGateway_FetchRowsQuotedName(t *testing.T) {
	path := newTestDatabase(t,
		`CREATE TABLE "odd ""name"" here" (x INT)`,
		`INSERT INTO "odd ""name"" here" VALUES (7)`,
		`CREATE TABLE "select" (x INT)`,
	)
	g := NewGateway(path)

	tables, err := g.ListTables(context.Background())
	require.Nil(t, err)

	for _, table := range tables {
		_, err := g.FetchRows(context.Background(), table, TableRowLimit)
		assert.Nil(t, err, table)
	}

	rows, err := g.FetchRows(context.Background(), `odd "name" here`, TableRowLimit)
	require.Nil(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("x")
	assert.Equal(t, int64(7), v)
}

func TestGateway_ListColumns(t *testing.T) {
	path := newTestDatabase(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL DEFAULT 'anon', age INT)",
	)
	g := NewGateway(path)

	columns, err := g.ListColumns(context.Background(), "users")
	require.Nil(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "id", columns[0].Name)
	assert.Equal(t, "INTEGER", columns[0].Type)
	assert.Equal(t, 1, columns[0].PK)
	assert.Nil(t, columns[0].Default)

	assert.Equal(t, "name", columns[1].Name)
	assert.Equal(t, 1, columns[1].NotNull)
	assert.Equal(t, 0, columns[1].PK)
	require.NotNil(t, columns[1].Default)
	assert.Equal(t, "'anon'", *columns[1].Default)

	assert.Equal(t, 2, columns[2].CID)
}

func TestGateway_ListColumnsMissingTable(t *testing.T) {
	g := NewGateway(newTestDatabase(t, usersFixture...))

	columns, err := g.ListColumns(context.Background(), "missing")
	assert.Nil(t, err)
	assert.NotNil(t, columns)
	assert.Len(t, columns, 0)

	columns, err = g.ListColumns(context.Background(), "users); DROP TABLE users; --")
	assert.Nil(t, err)
	assert.Len(t, columns, 0)

	tables, err := g.ListTables(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, []string{"users"}, tables)
}

func TestGateway_ListIndexes(t *testing.T) {
	path := newTestDatabase(t,
		"CREATE TABLE users (email TEXT PRIMARY KEY, name TEXT)",
		"CREATE UNIQUE INDEX users_name ON users (name)",
	)
	g := NewGateway(path)

	indexes, err := g.ListIndexes(context.Background(), "users")
	require.Nil(t, err)
	require.Len(t, indexes, 2)

	byName := map[string]IndexInfo{}
	for _, i := range indexes {
		byName[i.Name] = i
	}

	assert.Equal(t, 1, byName["users_name"].Unique)
	assert.False(t, byName["users_name"].PrimaryKey())
	assert.True(t, byName["sqlite_autoindex_users_1"].PrimaryKey())
}

func TestGateway_RunStatement(t *testing.T) {
	g := NewGateway(newTestDatabase(t, usersFixture...))

	tests := []struct {
		query string
		rows  int
	}{
		{"SELECT * FROM users", 3},
		{"SELECT * FROM users WHERE id > 100", 0},
		{"select name from users where name is not null", 2},
		{"SELECT 1 AS one, 'two' AS two, 3.5 AS three, NULL AS four", 1},
	}

	for _, test := range tests {
		rows, err := g.RunStatement(context.Background(), test.query)
		assert.Nil(t, err, test.query)
		assert.NotNil(t, rows, test.query)
		assert.Len(t, rows, test.rows, test.query)
	}
}

func TestGateway_RunStatementValues(t *testing.T) {
	g := NewGateway(newTestDatabase(t))

	rows, err := g.RunStatement(context.Background(), "SELECT 1 AS i, 2.5 AS f, 'x' AS s, NULL AS n, x'6869' AS b, 9e999 AS inf, x'ff00' AS raw")
	require.Nil(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, []interface{}{int64(1), 2.5, "x", nil, "hi", "+Inf", "X'FF00'"}, rows[0].Values())
}

func TestGateway_RunStatementError(t *testing.T) {
	g := NewGateway(newTestDatabase(t, usersFixture...))

	for _, query := range []string{
		"SELECT * FROM",
		"SELECT missing_column FROM users",
		"SELECT * FROM missing_table",
	} {
		rows, err := g.RunStatement(context.Background(), query)
		assert.NotNil(t, err, query)
		assert.NotEmpty(t, err.Error(), query)
		assert.Nil(t, rows, query)
	}
}

func TestGateway_ReadOnly(t *testing.T) {
	g := NewGateway(newTestDatabase(t, usersFixture...))

	_, err := g.RunStatement(context.Background(), "DELETE FROM users")
	assert.NotNil(t, err)

	rows, err := g.FetchRows(context.Background(), "users", TableRowLimit)
	assert.Nil(t, err)
	assert.Len(t, rows, 3)
}

func TestGateway_FreshConnectionPerCall(t *testing.T) {
	path := newTestDatabase(t, "CREATE TABLE a (x INT)")
	g := NewGateway(path)

	tables, err := g.ListTables(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []string{"a"}, tables)

	db, err := sql.Open(driverName, path)
	require.Nil(t, err)
	defer db.Close()
	for i := 0; i < 3; i++ {
		_, err = db.Exec(fmt.Sprintf("CREATE TABLE b%d (x INT)", i))
		require.Nil(t, err)
	}

	tables, err = g.ListTables(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []string{"a", "b0", "b1", "b2"}, tables)
}

func TestGateway_RunStatementSingleStatementOnly(t *testing.T) {
	g := NewGateway(newTestDatabase(t, usersFixture...))

	for _, query := range []string{
		"SELECT 1 AS a; SELECT 2 AS b",
		"SELECT 1; DROP TABLE users",
		"SELECT * FROM users;\n-- next\nSELECT 2",
	} {
		rows, err := g.RunStatement(context.Background(), query)
		assert.Equal(t, ErrMultipleStatements, err, query)
		assert.Nil(t, rows, query)
	}

	for _, query := range []string{
		"SELECT 1 AS a;",
		"SELECT 1 AS a; -- done",
		"SELECT ';' AS a",
		"SELECT 1 AS a /* ; SELECT 2 */",
	} {
		rows, err := g.RunStatement(context.Background(), query)
		assert.Nil(t, err, query)
		assert.Len(t, rows, 1, query)
	}

	tables, err := g.ListTables(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, []string{"users"}, tables)
}

func TestGateway_PathsWithURICharacters(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"we%20ird.db", "odd?name.db", "hash#1.db", "100%.db"} {
		path := newTestDatabaseAt(t, filepath.Join(dir, name), usersFixture...)
		g := NewGateway(path)

		tables, err := g.ListTables(context.Background())
		assert.Nil(t, err, name)
		assert.Equal(t, []string{"users"}, tables, name)

		rows, err := g.FetchRows(context.Background(), "users", TableRowLimit)
		assert.Nil(t, err, name)
		assert.Len(t, rows, 3, name)
	}
}

func TestFileURI(t *testing.T) {
	assert.Equal(t, "file:/tmp/app.db?mode=ro", fileURI("/tmp/app.db", "mode=ro"))
	assert.Equal(t, "file:/tmp/we%2520ird.db", fileURI("/tmp/we%20ird.db", ""))
	assert.Equal(t, "file:a%3fb%23c.db?mode=ro", fileURI("a?b#c.db", "mode=ro"))
}
