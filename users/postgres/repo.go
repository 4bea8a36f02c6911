// Package postgres stores user records in PostgreSQL through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/jrsteele09/go-members-gateway/users"
	"github.com/jrsteele09/go-members-gateway/users/postgres/migrations"
	"github.com/pressly/goose/v3"
)

// signupLockKey serializes inserts so the empty-table check and the insert happen atomically
const signupLockKey int64 = 0x6d656d62657273

var _ users.UserRepo = (*Repo)(nil)

type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Open connects with the pgx driver and brings the schema up to date
func Open(ctx context.Context, dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("[postgres Open] db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("[postgres Open] ping: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewRepo(db), nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("[postgres Migrate] dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("[postgres Migrate] migration error: %w", err)
	}
	return nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	query :=
		`SELECT email, display_name, password_hash, role, created_at FROM users
		 WHERE email = $1`

	u := &users.User{}
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.DateJoined)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *Repo) Insert(ctx context.Context, user *users.User) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, signupLockKey); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query :=
		`INSERT INTO users (email, display_name, password_hash, role)
		 VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''),
		         CASE WHEN EXISTS (SELECT 1 FROM users) THEN 'user' ELSE 'admin' END))
		 ON CONFLICT (email) DO NOTHING
		 RETURNING role, created_at`

	err = tx.QueryRowContext(ctx, query,
		user.Email, user.DisplayName, user.PasswordHash, string(user.Role)).
		Scan(&user.Role, &user.DateJoined)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.ErrDuplicateKey
			return err
		}
		return fmt.Errorf("db error: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *Repo) UpdateRole(ctx context.Context, email string, role users.RoleType) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2 WHERE email = $1`, email, string(role))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (r *Repo) List(ctx context.Context) ([]*users.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email, display_name, role, created_at FROM users
		 ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []*users.User
	for rows.Next() {
		u := &users.User{}
		if err := rows.Scan(&u.Email, &u.DisplayName, &u.Role, &u.DateJoined); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}
