package sqlview

import "errors"

var (
	// ErrNoDatabase is returned when no database path was configured
	ErrNoDatabase = errors.New("No database path configured")
	// ErrDatabaseNotFound is returned when the configured database file does not exist
	ErrDatabaseNotFound = errors.New("Database not found")
	// ErrTableNotFound is returned when a table is not present in sqlite_master
	ErrTableNotFound = errors.New("Table not found")
	// ErrNotReadOnly is returned when a statement does not start with SELECT
	ErrNotReadOnly    = errors.New("Only SELECT queries are allowed")
	ErrInvalidRequest = errors.New("Invalid request body")
	// ErrMultipleStatements is returned when a query holds more than one statement
	ErrMultipleStatements = errors.New("You can only execute one statement at a time.")
	ErrNotFound           = errors.New("Not found")
	ErrMethodNotAllowed   = errors.New("Method not allowed")
)
