package database

import (
	"context"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

const (
	createUsers = `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100),
			email VARCHAR(100) UNIQUE,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)
	`
	insertUser = "INSERT INTO users (name, email) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	selectUser = "SELECT id, name, email FROM users WHERE name = $1"

	// activeExampleUsers carries its filter values inline. Under the
	// obfuscate policy they are recorded as "?".
	activeExampleUsers = "SELECT id, name, email FROM users WHERE email LIKE '%@example.com' AND active = TRUE LIMIT 10"
)

// CreateTable creates the users table. DDL is reported under the "ddl"
// call site.
func (db *DB) CreateTable(ctx context.Context) error {
	_, err := db.SQL.ExecContext(ctx, createUsers)
	return err
}

// SeedUsers inserts users through one prepared database/sql statement.
// Every execution is traced with the text it was prepared with.
func (db *DB) SeedUsers(ctx context.Context, users []User) error {
	stmt, err := db.SQL.PrepareContext(ctx, insertUser)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.ExecContext(ctx, u.Name, u.Email); err != nil {
			return err
		}
	}
	return nil
}

// ActiveUsers runs a statement with inline literals through sqlx, after
// logging the span it is going to produce.
func (db *DB) ActiveUsers(ctx context.Context) ([]User, error) {
	tel := db.X.Interceptor().Describe(dbtrace.Call{
		Site:      dbtrace.CallQuery,
		Statement: dbtrace.Text(activeExampleUsers),
	})
	statement, _ := tel.Attributes.Get(dbtrace.KeyStatement)
	db.log.Debug().
		Str("span", tel.Name(dbtrace.CallOptions{})).
		Str("db.statement", statement).
		Str("outcome", tel.Obfuscation.Outcome.String()).
		Msg("recording active users query")

	var users []User
	if err := db.X.SelectContext(ctx, &users, activeExampleUsers); err != nil {
		return nil, err
	}
	return users, nil
}

// UserByName looks a user up through a prepared sqlx statement, so the
// span reports the prepared text and, when the driver names its
// statements, db.statement.prepared_name.
func (db *DB) UserByName(ctx context.Context, name string) (*User, error) {
	stmt, err := db.X.PreparexContext(ctx, selectUser)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var u User
	if err := stmt.GetContext(ctx, &u, name); err != nil {
		return nil, err
	}
	return &u, nil
}

// RenameUser updates a user through a named statement. The span carries
// the bound query sent to the database, not the :name form.
func (db *DB) RenameUser(ctx context.Context, from, to string) error {
	stmt, err := db.X.PrepareNamedContext(ctx, "UPDATE users SET name = :to WHERE name = :from")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, map[string]interface{}{"from": from, "to": to})
	return err
}

// Deactivate flags a user inactive and reads it back in one transaction.
// BEGIN, the statements and COMMIT or ROLLBACK each get a span.
func (db *DB) Deactivate(ctx context.Context, email string) (err error) {
	tx, err := db.X.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "UPDATE users SET active = FALSE WHERE email = $1", email); err != nil {
		return err
	}

	var u User
	if err = tx.GetContext(ctx, &u, "SELECT id, name, email FROM users WHERE email = $1", email); err != nil {
		return err
	}
	db.log.Info().Str("name", u.Name).Msg("user deactivated")

	return tx.Commit()
}
