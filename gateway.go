package sqlview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	listTablesQuery  = "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name"
	lookupTableQuery = "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
	tableInfoQuery   = "SELECT * FROM pragma_table_info(?)"
	indexListQuery   = "SELECT * FROM pragma_index_list(?)"
)

// ColumnInfo describes a column as reported by PRAGMA table_info.
type ColumnInfo struct {
	CID     int     `db:"cid" json:"cid"`
	Name    string  `db:"name" json:"name"`
	Type    string  `db:"type" json:"type"`
	NotNull int     `db:"notnull" json:"notnull"`
	Default *string `db:"dflt_value" json:"dflt_value"`
	PK      int     `db:"pk" json:"pk"`
}

// IndexInfo describes an index as reported by PRAGMA index_list.
type IndexInfo struct {
	Seq     int    `db:"seq" json:"seq"`
	Name    string `db:"name" json:"name"`
	Unique  int    `db:"unique" json:"unique"`
	Origin  string `db:"origin" json:"origin"`
	Partial int    `db:"partial" json:"partial"`
}

// PrimaryKey reports whether the index backs the table's primary key.
func (i IndexInfo) PrimaryKey() bool {
	return i.Origin == "pk"
}

// Store is the set of read operations the query service and shell run
// against a database.
type Store interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]ColumnInfo, error)
	ListIndexes(ctx context.Context, table string) ([]IndexInfo, error)
	FetchRows(ctx context.Context, table string, limit int) ([]Row, error)
	RunStatement(ctx context.Context, query string) ([]Row, error)
}

// Gateway runs each operation on its own read-only connection to a
// single SQLite file. Nothing is kept open between calls.
type Gateway struct {
	path string
	dsn  string
}

func NewGateway(path string) *Gateway {
	return &Gateway{
		path: path,
		dsn:  fileURI(path, "mode=ro"),
	}
}

// uriEscaper covers the characters SQLite treats specially in the path of
// a file: URI. SQLite decodes %HH escapes back before opening the file.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// fileURI builds a SQLite file: URI for path with an optional query.
func fileURI(path, query string) string {
	uri := "file:" + uriEscaper.Replace(path)
	if query != "" {
		uri += "?" + query
	}
	return uri
}

func (g *Gateway) Path() string {
	return g.path
}

func (g *Gateway) open() (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, g.dsn)
	if err != nil {
		return nil, err
	}

	// The existence check and the row fetch must share a connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (g *Gateway) ListTables(ctx context.Context) ([]string, error) {
	db, err := g.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tables := []string{}
	if err := db.SelectContext(ctx, &tables, listTablesQuery); err != nil {
		return nil, err
	}

	return tables, nil
}

// ListColumns returns an empty slice when the table does not exist.
func (g *Gateway) ListColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	db, err := g.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	columns := []ColumnInfo{}
	if err := db.SelectContext(ctx, &columns, tableInfoQuery, table); err != nil {
		return nil, err
	}

	return columns, nil
}

func (g *Gateway) ListIndexes(ctx context.Context, table string) ([]IndexInfo, error) {
	db, err := g.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	indexes := []IndexInfo{}
	if err := db.SelectContext(ctx, &indexes, indexListQuery, table); err != nil {
		return nil, err
	}

	return indexes, nil
}

// FetchRows returns at most limit rows of table in storage order.
//
// Identifiers cannot be bound as parameters, so the table is first looked
// up in sqlite_master with a bound name and only the catalog's copy of the
// name is interpolated into the SELECT.
func (g *Gateway) FetchRows(ctx context.Context, table string, limit int) ([]Row, error) {
	db, err := g.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var name string
	err = db.GetContext(ctx, &name, lookupTableQuery, table)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT ?", quoteIdentifier(name))
	rows, err := db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	return collectRows(rows)
}

// RunStatement executes query as given and returns every row it yields.
// Text holding more than one statement is refused before anything runs.
func (g *Gateway) RunStatement(ctx context.Context, query string) ([]Row, error) {
	if hasTrailingStatement(query) {
		return nil, ErrMultipleStatements
	}

	db, err := g.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return collectRows(rows)
}

func collectRows(rows *sqlx.Rows) ([]Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := []Row{}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}

		results = append(results, NewRow(columns, values))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
