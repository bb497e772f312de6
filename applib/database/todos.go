package database

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrNoFieldsToUpdate is returned by Update when none of the optional fields
// are set. The store is not touched in that case.
var ErrNoFieldsToUpdate = errors.New("no fields to update")

type Todo struct {
	ID     uint64 `db:"id" json:"id"`
	Author string `db:"author" json:"author"`
	Body   string `db:"body" json:"body"`
	Done   bool   `db:"done" json:"done"`
}

// TodoUpdate holds the optional replacement values for an existing todo. Nil
// fields are left untouched.
type TodoUpdate struct {
	Author *string
	Body   *string
	Done   *bool
}

func (u TodoUpdate) IsEmpty() bool {
	return u.Author == nil && u.Body == nil && u.Done == nil
}

const todosSchema = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	author TEXT NOT NULL,
	body TEXT NOT NULL,
	done INTEGER NOT NULL
);
`

const listTodosSql = `
SELECT id, author, body, done FROM todos;
`

const insertTodoSql = `
INSERT INTO todos (author, body, done)
VALUES ($1, $2, $3);
`

const deleteTodoSql = `
DELETE FROM todos WHERE id = $1;
`

func TodosDBInit(tx *sqlx.Tx) error {
	_, err := tx.Exec(todosSchema)
	return err
}

// List returns every todo in the order SQLite yields them. An empty table
// gives an empty, non-nil slice.
func (db *Database) List() ([]Todo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	todos := []Todo{}
	if err := db.db.Select(&todos, listTodosSql); err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// Create inserts a new, not-yet-done todo. The id is assigned by SQLite.
func (db *Database) Create(author, body string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.Exec(insertTodoSql, author, body, boolToInt(false)); err != nil {
		return fmt.Errorf("failed to insert todo by %s: %w", author, err)
	}
	return nil
}

// Delete removes the todo with the given id. Deleting a missing id is not an
// error.
func (db *Database) Delete(id uint64) error {
	if id > math.MaxInt64 {
		// SQLite rowids are signed 64-bit, nothing can match
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.Exec(deleteTodoSql, int64(id)); err != nil {
		return fmt.Errorf("failed to delete todo %d: %w", id, err)
	}
	return nil
}

// Update replaces the fields set in fields on the todo with the given id and
// returns the number of rows changed. A missing id changes zero rows and is
// not an error.
func (db *Database) Update(id uint64, fields TodoUpdate) (int64, error) {
	query, args, err := buildUpdateQuery(id, fields)
	if err != nil {
		return 0, err
	}
	if id > math.MaxInt64 {
		return 0, nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update todo %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rowsAffected, nil
}

type columnValue struct {
	column string
	value  any
}

// buildUpdateQuery renders an UPDATE statement covering only the present
// fields, in author, body, done order. The id is always the last bound
// parameter.
func buildUpdateQuery(id uint64, fields TodoUpdate) (string, []any, error) {
	var columns []columnValue
	if fields.Author != nil {
		columns = append(columns, columnValue{"author", *fields.Author})
	}
	if fields.Body != nil {
		columns = append(columns, columnValue{"body", *fields.Body})
	}
	if fields.Done != nil {
		columns = append(columns, columnValue{"done", boolToInt(*fields.Done)})
	}
	if len(columns) == 0 {
		return "", nil, ErrNoFieldsToUpdate
	}

	assignments := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, c := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", c.column, i+1))
		args = append(args, c.value)
	}
	query := fmt.Sprintf("UPDATE todos SET %s WHERE id = $%d",
		strings.Join(assignments, ", "), len(columns)+1)
	args = append(args, int64(id))
	return query, args, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
